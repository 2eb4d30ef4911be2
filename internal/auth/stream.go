package auth

import "sync"

// StateStream is the client-side auth-state feed. Subscribe registers a
// handler and returns its disposer; teardown must call the disposer, the
// stream never drops subscribers on its own.
type StateStream struct {
	mu   sync.Mutex
	subs map[int]func(*User)
	next int
	cur  *User
}

func NewStateStream() *StateStream {
	return &StateStream{subs: map[int]func(*User){}}
}

// Subscribe fires fn immediately with the current user, then on every change.
func (s *StateStream) Subscribe(fn func(*User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	cur := s.cur
	s.mu.Unlock()

	fn(cur)
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Set replaces the current user (nil on sign-out) and notifies subscribers.
func (s *StateStream) Set(u *User) {
	s.mu.Lock()
	s.cur = u
	fns := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

func (s *StateStream) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
