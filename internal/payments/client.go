package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the card processor. CreateIntent runs server-side when the
// API mints a payment secret; ConfirmCard runs from the session with the
// secret plus card details.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type Card struct {
	Number   string
	ExpMonth string
	ExpYear  string
	CVC      string
}

func (c Card) Complete() bool {
	return c.Number != "" && c.ExpMonth != "" && c.ExpYear != "" && c.CVC != ""
}

// Confirmation is the processor's record of a captured payment.
type Confirmation struct {
	TransactionID string
	AmountCents   int
	CreatedAt     time.Time
}

// CardError is a processor decline; its message is shown to the user
// verbatim and the same client secret stays usable for a retry.
type CardError struct{ Message string }

func (e *CardError) Error() string { return e.Message }

// CreateIntent registers a payment intent for amountCents and returns its
// client secret.
func (c *Client) CreateIntent(ctx context.Context, amountCents int) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.Itoa(amountCents))
	form.Set("currency", "usd")
	form.Set("metadata[integration_check]", "accept_a_payment")

	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := c.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return "", err
	}
	if out.ClientSecret == "" {
		return "", fmt.Errorf("payments: intent response missing client_secret")
	}
	return out.ClientSecret, nil
}

// ConfirmCard submits card details against the intent scoped by secret.
func (c *Client) ConfirmCard(ctx context.Context, secret string, card Card) (*Confirmation, error) {
	id, err := IntentID(secret)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("client_secret", secret)
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][number]", card.Number)
	form.Set("payment_method_data[card][exp_month]", card.ExpMonth)
	form.Set("payment_method_data[card][exp_year]", card.ExpYear)
	form.Set("payment_method_data[card][cvc]", card.CVC)

	var out struct {
		ID      string `json:"id"`
		Amount  int    `json:"amount"`
		Created int64  `json:"created"`
		Status  string `json:"status"`
	}
	if err := c.post(ctx, "/v1/payment_intents/"+id+"/confirm", form, &out); err != nil {
		return nil, err
	}
	if out.Status != "succeeded" {
		return nil, &CardError{Message: "payment not completed (status " + out.Status + ")"}
	}
	return &Confirmation{
		TransactionID: out.ID,
		AmountCents:   out.Amount,
		CreatedAt:     time.Unix(out.Created, 0).UTC(),
	}, nil
}

// IntentID extracts the intent id from a "pi_..._secret_..." client secret.
func IntentID(secret string) (string, error) {
	i := strings.Index(secret, "_secret")
	if i <= 0 {
		return "", fmt.Errorf("payments: malformed client secret")
	}
	return secret[:i], nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error.Message != "" {
			if e.Error.Type == "card_error" || resp.StatusCode == http.StatusPaymentRequired {
				return &CardError{Message: e.Error.Message}
			}
			return fmt.Errorf("payments: %s", e.Error.Message)
		}
		return fmt.Errorf("payments: processor returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
