package orders

import (
	"time"

	"github.com/fikriandhika/go-storefront/internal/basket"
)

// Order is created exactly once per successful payment confirmation. ID is
// the processor's transaction id. Never mutated, never deleted.
type Order struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Basket      []basket.Item `json:"basket"`
	AmountCents int           `json:"amount"`
	CreatedAt   time.Time     `json:"created_at"`
}

// View is the one display shape both the remote store and the local ledger
// normalize into.
type View struct {
	ID            string        `json:"id"`
	Basket        []basket.Item `json:"basket"`
	AmountCents   int           `json:"amount"`
	CreatedAtUnix int64         `json:"created"`
}

func (o Order) View() View {
	return View{
		ID:            o.ID,
		Basket:        o.Basket,
		AmountCents:   o.AmountCents,
		CreatedAtUnix: o.CreatedAt.Unix(),
	}
}
