package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/fikriandhika/go-storefront/internal/kafka"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/redisx"
)

// Service bridges order events to per-user pub/sub notifications: consumed
// from Kafka, deduped in Redis, fanned out on the user's orders channel so
// open sessions reload their history.
type Service struct {
	Redis       *redis.Client
	Notifier    *orders.Notifier
	ServiceName string
}

// HandleOrderCreated is wired as the consumer handler for the order-created
// topic.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil // ignore
	}

	// Dedup by event_id: redeliveries must not re-notify.
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	return s.Notifier.Publish(ctx, p.UserID, p.OrderID)
}
