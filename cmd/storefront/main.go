package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fikriandhika/go-storefront/internal/apiclient"
	"github.com/fikriandhika/go-storefront/internal/auth"
	"github.com/fikriandhika/go-storefront/internal/basket"
	"github.com/fikriandhika/go-storefront/internal/checkout"
	"github.com/fikriandhika/go-storefront/internal/config"
	"github.com/fikriandhika/go-storefront/internal/localstore"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/payments"
	"github.com/fikriandhika/go-storefront/internal/redisx"
)

// Demo session: sign in, fill the basket from the catalog, pay with the test
// card, then watch the order land in history.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	kv := localstore.NewRedis(rdb)

	api := apiclient.New(cfg.APIBaseURL)
	store := basket.Load(ctx, kv)
	ledger := orders.NewLedger(kv)

	// Auth state feed: keep the persisted user in sync with sign-in state.
	// Seed from the snapshot first, or the initial callback would overwrite
	// the restored user with nil.
	stream := auth.NewStateStream()
	stream.Set(store.User())
	unsub := stream.Subscribe(func(u *auth.User) {
		store.SetUser(ctx, u)
		if u != nil {
			log.Printf("signed in as %s", u.Email)
			api.SetToken(u.Token)
		}
	})
	defer unsub()

	email := getenv("STOREFRONT_EMAIL", "demo@example.com")
	password := getenv("STOREFRONT_PASSWORD", "demo-password")
	user, err := api.SignIn(ctx, email, password)
	if err != nil {
		log.Printf("sign in failed (%v), signing up", err)
		if user, err = api.SignUp(ctx, email, password); err != nil {
			log.Fatalf("sign up: %v", err)
		}
	}
	stream.Set(user)

	// Fill the basket from the catalog.
	products, err := api.Products(ctx)
	if err != nil {
		log.Fatalf("products: %v", err)
	}
	for i, p := range products {
		if i == 2 {
			break
		}
		store.Add(ctx, basket.Item{ID: p.ID, Title: p.Title, Image: p.Image, Price: p.Price, Rating: p.Rating})
	}
	log.Printf("basket: %d items, subtotal $%.2f", store.Len(), store.Total())

	// Checkout.
	processor := payments.NewClient(cfg.StripeBaseURL, cfg.StripeSecretKey)
	flow := checkout.NewController(ctx, store, api, processor, ledger, api)
	defer flow.Close()
	flow.Navigate = func() { log.Println("-> navigating to orders") }

	if err := flow.RequestSecret(ctx); err != nil {
		log.Fatalf("payment secret: %v", err)
	}
	card := payments.Card{
		Number:   getenv("STOREFRONT_CARD", "4242424242424242"),
		ExpMonth: "12", ExpYear: "2030", CVC: "123",
	}
	if err := flow.Submit(ctx, card); err != nil {
		_, msg := flow.LastFailure()
		log.Fatalf("payment: %s (%v)", msg, err)
	}
	log.Println("payment succeeded")

	// Order history, with live reload on change notifications.
	loader := &orders.HistoryLoader{Remote: api, Ledger: ledger}
	printOrders := func() {
		views, err := loader.Load(ctx, user.ID)
		if err != nil {
			log.Printf("orders: %v", err)
			return
		}
		for _, v := range views {
			log.Printf("order %s: %d items, $%.2f", v.ID, len(v.Basket), float64(v.AmountCents)/100)
		}
	}
	printOrders()

	notif := &orders.Notifier{RDB: rdb}
	unsubOrders, err := notif.Subscribe(ctx, user.ID, printOrders)
	if err != nil {
		log.Printf("order notifications unavailable: %v", err)
	} else {
		defer unsubOrders()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-time.After(10 * time.Second):
	}
	log.Println("session done")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
