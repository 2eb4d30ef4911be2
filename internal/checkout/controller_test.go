package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikriandhika/go-storefront/internal/auth"
	"github.com/fikriandhika/go-storefront/internal/basket"
	"github.com/fikriandhika/go-storefront/internal/localstore"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/payments"
)

type mockSecrets struct {
	mu      sync.Mutex
	secrets []string // returned in call order
	err     error
	amounts []int
	started chan struct{} // signalled when a call begins, if set
	release chan struct{} // blocks the first call until closed, if set
}

func (m *mockSecrets) CreateIntent(_ context.Context, amountCents int) (string, error) {
	m.mu.Lock()
	call := len(m.amounts)
	m.amounts = append(m.amounts, amountCents)
	started := m.started
	release := m.release
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil && call == 0 {
		<-release
	}
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if call < len(m.secrets) {
		return m.secrets[call], nil
	}
	return m.secrets[len(m.secrets)-1], nil
}

type mockConfirmer struct {
	mu      sync.Mutex
	conf    *payments.Confirmation
	err     error
	secrets []string
	block   chan struct{} // blocks Confirm until closed, if set
}

func (m *mockConfirmer) ConfirmCard(_ context.Context, secret string, _ payments.Card) (*payments.Confirmation, error) {
	m.mu.Lock()
	m.secrets = append(m.secrets, secret)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.conf, nil
}

func (m *mockConfirmer) lastSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secrets[len(m.secrets)-1]
}

type mockRemote struct {
	mu    sync.Mutex
	saved []orders.Order
	err   error
	done  chan orders.Order
}

func (m *mockRemote) SaveOrder(_ context.Context, o orders.Order) error {
	m.mu.Lock()
	m.saved = append(m.saved, o)
	err := m.err
	m.mu.Unlock()
	if m.done != nil {
		m.done <- o
	}
	return err
}

var testCard = payments.Card{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123"}

func testConfirmation() *payments.Confirmation {
	return &payments.Confirmation{
		TransactionID: "pi_123",
		AmountCents:   3550,
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// fixture wires a controller over in-memory stores with a signed-in user and
// a basket of $10.00 + $25.50.
type fixture struct {
	store     *basket.Store
	ledger    *orders.Ledger
	secrets   *mockSecrets
	confirmer *mockConfirmer
	remote    *mockRemote
	flow      *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	kv := localstore.NewMemory()
	store := basket.Load(ctx, kv)
	store.SetUser(ctx, &auth.User{ID: "u1", Email: "u1@example.com"})
	store.Add(ctx, basket.Item{ID: "a", Title: "Book", Price: 10.00})
	store.Add(ctx, basket.Item{ID: "b", Title: "Mixer", Price: 25.50})

	f := &fixture{
		store:     store,
		ledger:    orders.NewLedger(kv),
		secrets:   &mockSecrets{secrets: []string{"pi_123_secret_abc"}},
		confirmer: &mockConfirmer{conf: testConfirmation()},
		remote:    &mockRemote{done: make(chan orders.Order, 1)},
	}
	f.flow = NewController(ctx, store, f.secrets, f.confirmer, f.ledger, f.remote)
	t.Cleanup(f.flow.Close)
	return f
}

func TestSuccessfulCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.flow.RequestSecret(ctx))
	assert.Equal(t, StateReadyToPay, f.flow.State())
	assert.Equal(t, []int{3550}, f.secrets.amounts)

	require.NoError(t, f.flow.Submit(ctx, testCard))
	assert.Equal(t, StateSucceeded, f.flow.State())

	// basket cleared only after the local write succeeded
	assert.Equal(t, 0, f.store.Len())

	local, err := f.ledger.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "pi_123", local[0].ID)
	assert.Equal(t, 3550, local[0].AmountCents)
	assert.Len(t, local[0].Basket, 2)

	// best-effort remote write fires too
	select {
	case o := <-f.remote.done:
		assert.Equal(t, "pi_123", o.ID)
	case <-time.After(time.Second):
		t.Fatal("remote write never fired")
	}
}

func TestEmptyBasketCannotRequestSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Empty(ctx)

	assert.ErrorIs(t, f.flow.RequestSecret(ctx), ErrEmptyBasket)
	assert.Equal(t, StateIdle, f.flow.State())
}

func TestSecretRequestFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.secrets.err = errors.New("edge function down")

	err := f.flow.RequestSecret(ctx)
	require.Error(t, err)
	assert.Equal(t, StateFailed, f.flow.State())
	failure, msg := f.flow.LastFailure()
	assert.Equal(t, FailureSecretRequest, failure)
	assert.Contains(t, msg, "Unable to process payment")

	// no secret, no submit
	assert.ErrorIs(t, f.flow.Submit(ctx, testCard), ErrNoSecret)

	// user re-triggers once the service is back
	f.secrets.err = nil
	require.NoError(t, f.flow.RequestSecret(ctx))
	assert.Equal(t, StateReadyToPay, f.flow.State())
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.flow.Submit(ctx, testCard), ErrNoSecret)

	require.NoError(t, f.flow.RequestSecret(ctx))
	assert.ErrorIs(t, f.flow.Submit(ctx, payments.Card{Number: "4242"}), ErrIncompleteCard)
}

func TestDoubleSubmitRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	block := make(chan struct{})
	f.confirmer.block = block

	require.NoError(t, f.flow.RequestSecret(ctx))

	done := make(chan error, 1)
	go func() { done <- f.flow.Submit(ctx, testCard) }()

	require.Eventually(t, func() bool {
		return f.flow.State() == StateProcessing
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.flow.Submit(ctx, testCard), ErrProcessing)
	assert.ErrorIs(t, f.flow.RequestSecret(ctx), ErrProcessing)

	close(block)
	require.NoError(t, <-done)
}

func TestDeclineKeepsBasketAndSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.confirmer.err = &payments.CardError{Message: "Your card was declined."}

	require.NoError(t, f.flow.RequestSecret(ctx))
	secret := f.flow.Secret()

	err := f.flow.Submit(ctx, testCard)
	require.Error(t, err)
	assert.Equal(t, StateFailed, f.flow.State())
	failure, msg := f.flow.LastFailure()
	assert.Equal(t, FailureCardDeclined, failure)
	assert.True(t, failure.Recoverable())
	assert.Equal(t, "Payment failed: Your card was declined.", msg)

	// basket untouched, same secret reusable
	assert.Equal(t, 2, f.store.Len())
	assert.Equal(t, secret, f.flow.Secret())

	f.confirmer.mu.Lock()
	f.confirmer.err = nil
	f.confirmer.mu.Unlock()
	require.NoError(t, f.flow.Submit(ctx, testCard))
	assert.Equal(t, StateSucceeded, f.flow.State())
	assert.Equal(t, secret, f.confirmer.lastSecret())
}

func TestUnexpectedConfirmError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.confirmer.err = errors.New("connection reset")

	require.NoError(t, f.flow.RequestSecret(ctx))
	require.Error(t, f.flow.Submit(ctx, testCard))

	assert.Equal(t, StateFailed, f.flow.State())
	failure, _ := f.flow.LastFailure()
	assert.Equal(t, FailureUnexpected, failure)
	assert.False(t, failure.Recoverable())

	// attempt is dead: no resubmit with the stale secret
	assert.ErrorIs(t, f.flow.Submit(ctx, testCard), ErrNoSecret)

	f.flow.Reset()
	assert.Equal(t, StateIdle, f.flow.State())
	assert.Equal(t, 2, f.store.Len())
}

func TestRemoteWriteFailureStillClearsBasket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.err = errors.New("orders table absent")

	require.NoError(t, f.flow.RequestSecret(ctx))
	require.NoError(t, f.flow.Submit(ctx, testCard))

	assert.Equal(t, StateSucceeded, f.flow.State())
	assert.Equal(t, 0, f.store.Len())

	select {
	case <-f.remote.done:
	case <-time.After(time.Second):
		t.Fatal("remote write never attempted")
	}

	// the order is still visible via the fallback path
	h := &orders.HistoryLoader{Remote: failingReader{}, Ledger: f.ledger}
	views, err := h.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "pi_123", views[0].ID)
	assert.Equal(t, 3550, views[0].AmountCents)
}

type failingReader struct{}

func (failingReader) GetUserOrders(context.Context, string) ([]orders.Order, error) {
	return nil, errors.New("unreachable")
}

func TestSupersededSecretDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.secrets.secrets = []string{"pi_old_secret_1", "pi_new_secret_2"}
	f.secrets.started = make(chan struct{}, 2)
	f.secrets.release = make(chan struct{})

	// first request hangs at the payment service
	firstDone := make(chan error, 1)
	go func() { firstDone <- f.flow.RequestSecret(ctx) }()
	<-f.secrets.started

	// basket changes; the new request supersedes the old one
	f.store.Add(ctx, basket.Item{ID: "c", Price: 5.00})
	require.NoError(t, f.flow.RequestSecret(ctx))
	<-f.secrets.started
	assert.Equal(t, "pi_new_secret_2", f.flow.Secret())
	assert.Equal(t, []int{3550, 4050}, f.secrets.amounts)

	// stale result arrives late and is dropped
	close(f.secrets.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, "pi_new_secret_2", f.flow.Secret())
	assert.Equal(t, StateReadyToPay, f.flow.State())
}

func TestCloseStopsContinuations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.secrets.started = make(chan struct{}, 1)
	f.secrets.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.flow.RequestSecret(ctx) }()
	<-f.secrets.started

	f.flow.Close()
	close(f.secrets.release)
	require.NoError(t, <-done)

	// result discarded; the torn-down flow never reached ReadyToPay
	assert.Equal(t, "", f.flow.Secret())
	assert.ErrorIs(t, f.flow.Submit(ctx, testCard), ErrClosed)
	assert.ErrorIs(t, f.flow.RequestSecret(ctx), ErrClosed)
}

func TestNavigationAfterDelayAndNotAfterClose(t *testing.T) {
	ctx := context.Background()

	t.Run("navigates after the delay", func(t *testing.T) {
		f := newFixture(t)
		navigated := make(chan struct{})
		f.flow.Navigate = func() { close(navigated) }
		f.flow.NavigateDelay = 10 * time.Millisecond

		require.NoError(t, f.flow.RequestSecret(ctx))
		require.NoError(t, f.flow.Submit(ctx, testCard))

		select {
		case <-navigated:
		case <-time.After(time.Second):
			t.Fatal("navigation never happened")
		}
	})

	t.Run("close cancels pending navigation", func(t *testing.T) {
		f := newFixture(t)
		called := make(chan struct{}, 1)
		f.flow.Navigate = func() { called <- struct{}{} }
		f.flow.NavigateDelay = 50 * time.Millisecond

		require.NoError(t, f.flow.RequestSecret(ctx))
		require.NoError(t, f.flow.Submit(ctx, testCard))
		f.flow.Close()

		select {
		case <-called:
			t.Fatal("navigated after teardown")
		case <-time.After(150 * time.Millisecond):
		}
	})
}

func TestCompletedAttemptRequiresReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.flow.RequestSecret(ctx))
	require.NoError(t, f.flow.Submit(ctx, testCard))
	require.Equal(t, StateSucceeded, f.flow.State())

	// a finished attempt stays finished until Reset
	f.store.Add(ctx, basket.Item{ID: "c", Price: 5.00})
	assert.ErrorIs(t, f.flow.RequestSecret(ctx), ErrCompleted)

	f.flow.Reset()
	assert.Equal(t, StateIdle, f.flow.State())
	require.NoError(t, f.flow.RequestSecret(ctx))
	assert.Equal(t, StateReadyToPay, f.flow.State())
}

func TestResetIgnoredWhileProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	block := make(chan struct{})
	f.confirmer.block = block

	require.NoError(t, f.flow.RequestSecret(ctx))
	secret := f.flow.Secret()

	done := make(chan error, 1)
	go func() { done <- f.flow.Submit(ctx, testCard) }()
	require.Eventually(t, func() bool {
		return f.flow.State() == StateProcessing
	}, time.Second, time.Millisecond)

	// the confirmation in flight owns the state
	f.flow.Reset()
	assert.Equal(t, StateProcessing, f.flow.State())
	assert.Equal(t, secret, f.flow.Secret())

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, StateSucceeded, f.flow.State())
}

func TestNoUserSkipsOrderWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetUser(ctx, nil)

	require.NoError(t, f.flow.RequestSecret(ctx))
	require.NoError(t, f.flow.Submit(ctx, testCard))

	assert.Equal(t, StateSucceeded, f.flow.State())
	assert.Equal(t, 0, f.store.Len())

	local, err := f.ledger.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, local)

	f.remote.mu.Lock()
	assert.Empty(t, f.remote.saved)
	f.remote.mu.Unlock()
}
