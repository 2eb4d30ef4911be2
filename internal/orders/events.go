package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"

	TopicOrderCreated = "storefront.order.created"
)

// Envelope wraps every event on the wire, versioned so consumers can skip
// payloads they don't understand.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	AmountCents int    `json:"amount_cents"`
}

// Partition key = user_id: a user's order events stay ordered, which keeps
// their notification stream ordered too.
func PartitionKey(userID string) []byte { return []byte(userID) }
