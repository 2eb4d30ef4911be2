package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/fikriandhika/go-storefront/internal/auth"
	kafkax "github.com/fikriandhika/go-storefront/internal/kafka"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/redisx"
)

type OrdersHandler struct {
	Repo     *orders.Repo
	Auth     *auth.Service
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.saveOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/users/{id}/orders", h.listUserOrders)
}

// saveOrder is the remote half of the checkout dual write. The caller has
// already recorded the order locally; this endpoint makes it queryable.
func (h *OrdersHandler) saveOrder(w http.ResponseWriter, r *http.Request) {
	var o orders.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if o.ID == "" || o.UserID == "" || o.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Auth.Authenticate(ctx, bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	if userID != o.UserID {
		writeError(w, http.StatusForbidden, "order does not belong to session user")
		return
	}

	if err := h.Repo.Insert(ctx, o); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Cache the record for GET /orders/{id}.
	key := fmt.Sprintf(redisx.KeyOrderCache, o.ID)
	_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(o), redisx.TTLOrderCache).Err()

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
	}
	ev.Payload = kafkax.MustMarshal(orders.OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		AmountCents: o.AmountCents,
	})
	h.Producer.Publish(orders.PartitionKey(o.UserID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusCreated, map[string]string{"id": o.ID})
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sessionUser, err := h.Auth.Authenticate(ctx, bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	if sessionUser != userID {
		writeError(w, http.StatusForbidden, "not your orders")
		return
	}

	list, err := h.Repo.ListByUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache first, DB on miss.
	key := fmt.Sprintf(redisx.KeyOrderCache, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	o, err := h.Repo.Get(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	b := kafkax.MustMarshal(o)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
