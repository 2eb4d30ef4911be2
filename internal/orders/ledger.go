package orders

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"github.com/fikriandhika/go-storefront/internal/localstore"
)

const ledgerKey = "storefront:orders"

// maxLedgerPerUser bounds the fallback ledger: it exists to keep orders
// visible while the remote store is unreachable, not to be a full archive.
const maxLedgerPerUser = 100

// Ledger is the locally persisted order list, the durability backstop for
// the dual write. The remote store owns listing when it is reachable.
type Ledger struct {
	kv localstore.Store
}

func NewLedger(kv localstore.Store) *Ledger {
	return &Ledger{kv: kv}
}

// Append records o. This write must succeed before a checkout may declare
// the confirmation consistent.
func (l *Ledger) Append(ctx context.Context, o Order) error {
	all := l.readAll(ctx)
	all = append(all, o)

	// Evict oldest beyond the per-user cap.
	var mine, others []Order
	for _, e := range all {
		if e.UserID == o.UserID {
			mine = append(mine, e)
		} else {
			others = append(others, e)
		}
	}
	if len(mine) > maxLedgerPerUser {
		sort.SliceStable(mine, func(i, j int) bool {
			return mine[i].CreatedAt.Before(mine[j].CreatedAt)
		})
		mine = mine[len(mine)-maxLedgerPerUser:]
	}
	all = append(others, mine...)

	b, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return l.kv.Set(ctx, ledgerKey, b)
}

// ListByUser filters the ledger, newest first.
func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	all := l.readAll(ctx)
	var out []Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// readAll treats a missing or corrupt ledger as empty; the ledger is a
// fallback, it must never block an append.
func (l *Ledger) readAll(ctx context.Context) []Order {
	b, err := l.kv.Get(ctx, ledgerKey)
	if err != nil {
		if err != localstore.ErrNotFound {
			log.Printf("ledger: read: %v", err)
		}
		return nil
	}
	var all []Order
	if err := json.Unmarshal(b, &all); err != nil {
		log.Printf("ledger: corrupt, starting empty: %v", err)
		return nil
	}
	return all
}
