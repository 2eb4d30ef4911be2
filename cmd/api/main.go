package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fikriandhika/go-storefront/internal/auth"
	"github.com/fikriandhika/go-storefront/internal/catalog"
	"github.com/fikriandhika/go-storefront/internal/config"
	"github.com/fikriandhika/go-storefront/internal/httpx"
	kafkax "github.com/fikriandhika/go-storefront/internal/kafka"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/payments"
	"github.com/fikriandhika/go-storefront/internal/postgres"
	"github.com/fikriandhika/go-storefront/internal/redisx"

	"github.com/google/uuid"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start(ctx)

	// Services & handlers
	authSvc := &auth.Service{
		Users:    &auth.Repo{DB: db},
		Sessions: &auth.RedisSessions{RDB: rdb},
		NewID:    uuid.NewString,
	}
	router := httpx.NewRouter()
	(&httpx.AuthHandler{Auth: authSvc}).Register(router)
	(&httpx.ProductsHandler{Repo: &catalog.Repo{DB: db}}).Register(router)
	(&httpx.PaymentsHandler{
		Payments: payments.NewClient(cfg.StripeBaseURL, cfg.StripeSecretKey),
	}).Register(router)
	(&httpx.OrdersHandler{
		Repo:     &orders.Repo{DB: db},
		Auth:     authSvc,
		Producer: prod,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
