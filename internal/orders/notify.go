package orders

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/fikriandhika/go-storefront/internal/redisx"
)

// Notifier carries order-change notifications over per-user Redis pub/sub
// channels. The payload is just the order id; subscribers reload in full.
type Notifier struct{ RDB *redis.Client }

func (n *Notifier) Publish(ctx context.Context, userID, orderID string) error {
	return n.RDB.Publish(ctx, redisx.UserOrdersChannel(userID), orderID).Err()
}

// Subscribe invokes fn on every notification for userID until the returned
// unsubscribe func is called or ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context, userID string, fn func()) (func(), error) {
	ps := n.RDB.Subscribe(ctx, redisx.UserOrdersChannel(userID))
	// Force the SUBSCRIBE round-trip so a broken connection surfaces here,
	// not as a silently idle channel.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for range ps.Channel() {
			fn()
		}
	}()

	return func() {
		if err := ps.Close(); err != nil {
			log.Printf("orders: unsubscribe: %v", err)
		}
	}, nil
}
