package redisx

import "fmt"

const (
	// Session token -> user_id: session:{token}
	KeySession = "session:%s"

	// Cached order record for fast GET /orders/{id}: order:{order_id}
	KeyOrderCache = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channel carrying order-change notifications per user.
	chanUserOrders = "orders:user:%s"
)

func UserOrdersChannel(userID string) string {
	return fmt.Sprintf(chanUserOrders, userID)
}
