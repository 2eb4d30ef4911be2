package basket

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sync"

	"github.com/fikriandhika/go-storefront/internal/auth"
	"github.com/fikriandhika/go-storefront/internal/localstore"
)

// Item is one basket entry. Quantity > 1 is represented by duplicate entries,
// there is no qty field.
type Item struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Image  string  `json:"image"`
	Price  float64 `json:"price"`
	Rating int     `json:"rating"`
}

// snapshot is the single persisted record holding basket + user.
type snapshot struct {
	Basket []Item     `json:"basket"`
	User   *auth.User `json:"user"`
}

const snapshotKey = "storefront:snapshot"

// Store holds the session state: the ordered basket and the signed-in user.
// Every mutation writes the snapshot back to the durable store before
// returning.
type Store struct {
	mu    sync.Mutex
	items []Item
	user  *auth.User
	kv    localstore.Store
}

// Load restores the snapshot from kv. A missing or corrupt snapshot means
// empty basket and no user, never a startup failure.
func Load(ctx context.Context, kv localstore.Store) *Store {
	s := &Store{kv: kv}
	b, err := kv.Get(ctx, snapshotKey)
	if err != nil {
		if err != localstore.ErrNotFound {
			log.Printf("basket: load snapshot: %v", err)
		}
		return s
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		log.Printf("basket: corrupt snapshot, starting empty: %v", err)
		return s
	}
	s.items = snap.Basket
	s.user = snap.User
	return s
}

// Add appends item. Duplicates by id are allowed, each occurrence is
// independent.
func (s *Store) Add(ctx context.Context, item Item) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.persist(ctx)
	s.mu.Unlock()
}

// Remove deletes the first item with a matching id. A missing id leaves the
// basket unchanged.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist(ctx)
			return
		}
	}
	log.Printf("basket: can't remove %q, not in basket", id)
}

func (s *Store) Empty(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.persist(ctx)
	s.mu.Unlock()
}

func (s *Store) SetUser(ctx context.Context, u *auth.User) {
	s.mu.Lock()
	s.user = u
	s.persist(ctx)
	s.mu.Unlock()
}

// Total is the sum of item prices; 0 for an empty basket.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, it := range s.items {
		total += it.Price
	}
	return total
}

// TotalCents converts the subtotal to minor currency units without drift.
func (s *Store) TotalCents() int {
	return Cents(s.Total())
}

func Cents(total float64) int {
	return int(math.Round(total * 100))
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) User() *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// persist writes the snapshot synchronously; caller holds the lock. A failed
// write is logged, the in-memory state stays authoritative for the session.
func (s *Store) persist(ctx context.Context) {
	snap := snapshot{Basket: s.items, User: s.user}
	b, err := json.Marshal(snap)
	if err != nil {
		log.Printf("basket: marshal snapshot: %v", err)
		return
	}
	if err := s.kv.Set(ctx, snapshotKey, b); err != nil {
		log.Printf("basket: persist snapshot: %v", err)
	}
}
