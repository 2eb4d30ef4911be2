package orders

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fikriandhika/go-storefront/internal/basket"
)

// Repo is the remote (authoritative-when-reachable) order store.
type Repo struct{ DB *pgxpool.Pool }

// Insert is idempotent on order id: a replayed write of the same transaction
// is a no-op, matching "created exactly once per confirmation".
func (r *Repo) Insert(ctx context.Context, o Order) error {
	b, err := json.Marshal(o.Basket)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders(id, user_id, basket, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.UserID, b, o.AmountCents, o.CreatedAt)
	return err
}

// ListByUser returns the user's orders newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, basket, amount_cents, created_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var b []byte
		if err := rows.Scan(&o.ID, &o.UserID, &b, &o.AmountCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &o.Basket); err != nil {
			return nil, err
		}
		if o.Basket == nil {
			o.Basket = []basket.Item{}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get fetches one order by id.
func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	var b []byte
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, basket, amount_cents, created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &b, &o.AmountCents, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(b, &o.Basket); err != nil {
		return Order{}, err
	}
	return o, nil
}
