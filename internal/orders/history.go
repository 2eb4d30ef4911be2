package orders

import (
	"context"
	"log"
)

// RemoteReader lists a user's orders from the remote store.
type RemoteReader interface {
	GetUserOrders(ctx context.Context, userID string) ([]Order, error)
}

// Subscriber delivers change notifications for a user's orders. Subscribe
// returns an unsubscribe func that must be called on teardown or user change.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, fn func()) (func(), error)
}

// HistoryLoader reads order history remote-first with the local ledger as
// fallback. A remote failure is masked, not surfaced: an empty list is a
// valid state, the ledger guarantees locally written orders stay visible.
type HistoryLoader struct {
	Remote RemoteReader
	Ledger *Ledger
}

// Load returns the user's orders newest first, normalized to Views. An empty
// userID (signed out) returns nil without touching the remote store.
func (h *HistoryLoader) Load(ctx context.Context, userID string) ([]View, error) {
	if userID == "" {
		return nil, nil
	}

	list, err := h.Remote.GetUserOrders(ctx, userID)
	if err != nil {
		log.Printf("orders: remote unavailable, loading from local ledger: %v", err)
		list, err = h.Ledger.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	views := make([]View, 0, len(list))
	for _, o := range list {
		views = append(views, o.View())
	}
	return views, nil
}
