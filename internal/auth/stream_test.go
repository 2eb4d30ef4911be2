package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamFiresImmediatelyAndOnChange(t *testing.T) {
	s := NewStateStream()

	var seen []*User
	unsub := s.Subscribe(func(u *User) { seen = append(seen, u) })
	defer unsub()

	// initial callback with the current (nil) user
	assert.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	u := &User{ID: "u1", Email: "u1@example.com"}
	s.Set(u)
	s.Set(nil) // sign-out

	assert.Len(t, seen, 3)
	assert.Equal(t, u, seen[1])
	assert.Nil(t, seen[2])
}

func TestStreamUnsubscribeStopsDelivery(t *testing.T) {
	s := NewStateStream()

	calls := 0
	unsub := s.Subscribe(func(*User) { calls++ })
	assert.Equal(t, 1, calls)

	unsub()
	s.Set(&User{ID: "u1"})
	assert.Equal(t, 1, calls)

	// other subscribers unaffected
	other := 0
	defer s.Subscribe(func(*User) { other++ })()
	s.Set(nil)
	assert.Equal(t, 2, other)
}

// Seeding the stream with a restored user before subscribing means the
// initial callback carries that user, not nil; a nil here would clobber the
// persisted snapshot at startup.
func TestStreamSeededUserReachesSubscriber(t *testing.T) {
	s := NewStateStream()
	restored := &User{ID: "u1", Email: "u1@example.com"}
	s.Set(restored)

	var got *User
	defer s.Subscribe(func(u *User) { got = u })()
	assert.Equal(t, restored, got)
}

func TestStreamCurrent(t *testing.T) {
	s := NewStateStream()
	assert.Nil(t, s.Current())

	u := &User{ID: "u1"}
	s.Set(u)
	assert.Equal(t, u, s.Current())
}
