package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// IntentCreator mints a payment secret for an amount in minor units.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int) (string, error)
}

// PaymentsHandler exposes the create-payment-secret endpoint the session
// calls before collecting card details.
type PaymentsHandler struct {
	Payments IntentCreator
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments/create", h.createSecret)
}

func (h *PaymentsHandler) createSecret(w http.ResponseWriter, r *http.Request) {
	total := r.URL.Query().Get("total")
	if total == "" {
		writeError(w, http.StatusBadRequest, "Total amount is required")
		return
	}
	amount, err := strconv.Atoi(total)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "Total amount must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	secret, err := h.Payments.CreateIntent(ctx, amount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to create payment intent",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"client_secret": secret})
}
