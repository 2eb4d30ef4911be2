package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fikriandhika/go-storefront/internal/basket"
	"github.com/fikriandhika/go-storefront/internal/orders"
	"github.com/fikriandhika/go-storefront/internal/payments"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateAwaitingSecret State = "AWAITING_SECRET"
	StateReadyToPay     State = "READY_TO_PAY"
	StateProcessing     State = "PROCESSING"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
)

// Every state change goes through setState, so this table is the single
// definition of the machine. Processing has no Idle edge: a confirmation in
// flight cannot be reset, only finished. Succeeded only resets.
var validNext = map[State]map[State]bool{
	StateIdle:           {StateAwaitingSecret: true},
	StateAwaitingSecret: {StateAwaitingSecret: true, StateReadyToPay: true, StateFailed: true, StateIdle: true},
	StateReadyToPay:     {StateAwaitingSecret: true, StateProcessing: true, StateIdle: true},
	StateProcessing:     {StateSucceeded: true, StateFailed: true},
	StateSucceeded:      {StateIdle: true},
	StateFailed:         {StateAwaitingSecret: true, StateProcessing: true, StateIdle: true},
}

func canTransition(from, to State) bool {
	return validNext[from][to]
}

// setState applies a transition; callers hold c.mu and have already validated
// the edge, the log line is for the case where they haven't.
func (c *Controller) setState(to State) {
	if !canTransition(c.state, to) {
		log.Printf("checkout: illegal transition %s -> %s dropped", c.state, to)
		return
	}
	c.state = to
}

// SecretSource mints a payment secret for an amount in minor units.
type SecretSource interface {
	CreateIntent(ctx context.Context, amountCents int) (string, error)
}

// CardConfirmer submits card details against a secret. A decline comes back
// as *payments.CardError, anything else is unexpected.
type CardConfirmer interface {
	ConfirmCard(ctx context.Context, secret string, card payments.Card) (*payments.Confirmation, error)
}

// RemoteWriter is the best-effort half of the order dual write.
type RemoteWriter interface {
	SaveOrder(ctx context.Context, o orders.Order) error
}

// Controller drives one session's checkout attempts:
//
//	Idle -> AwaitingSecret -> ReadyToPay -> Processing -> Succeeded | Failed
//
// The controller owns a lifecycle context; after Close every pending
// continuation (secret result, confirm result, deferred navigation) no-ops
// instead of mutating torn-down state.
type Controller struct {
	Basket    *basket.Store
	Secrets   SecretSource
	Confirmer CardConfirmer
	Ledger    *orders.Ledger
	Remote    RemoteWriter

	// Navigate runs NavigateDelay after a successful payment, once the
	// success message had its moment.
	Navigate      func()
	NavigateDelay time.Duration

	mu      sync.Mutex
	state   State
	secret  string
	seq     int // supersedes in-flight secret requests
	failure Failure
	userMsg string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(ctx context.Context, b *basket.Store, secrets SecretSource, confirmer CardConfirmer, ledger *orders.Ledger, remote RemoteWriter) *Controller {
	cctx, cancel := context.WithCancel(ctx)
	return &Controller{
		Basket:        b,
		Secrets:       secrets,
		Confirmer:     confirmer,
		Ledger:        ledger,
		Remote:        remote,
		NavigateDelay: 3 * time.Second,
		state:         StateIdle,
		ctx:           cctx,
		cancel:        cancel,
	}
}

// Close tears the flow down. Idempotent.
func (c *Controller) Close() { c.cancel() }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Secret returns the active payment secret, empty until ReadyToPay.
func (c *Controller) Secret() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secret
}

// LastFailure returns the failure kind and its user-facing message.
func (c *Controller) LastFailure() (Failure, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure, c.userMsg
}

// Reset returns a dead attempt to Idle so the user can retry from scratch.
// The basket is untouched. A confirmation in flight cannot be reset; the
// call is ignored until Processing resolves.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || !canTransition(c.state, StateIdle) {
		return
	}
	c.setState(StateIdle)
	c.secret = ""
	c.seq++
	c.failure = FailureNone
	c.userMsg = ""
}

// RequestSecret asks the payment service for a secret covering the current
// basket total. Call it again whenever the basket changes: the newer request
// supersedes the older one and the stale result is discarded.
func (c *Controller) RequestSecret(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateProcessing {
		c.mu.Unlock()
		return ErrProcessing
	}
	if !canTransition(c.state, StateAwaitingSecret) {
		c.mu.Unlock()
		return ErrCompleted
	}
	if c.Basket.Len() == 0 {
		c.mu.Unlock()
		return ErrEmptyBasket
	}
	c.seq++
	my := c.seq
	c.setState(StateAwaitingSecret)
	c.secret = ""
	amount := c.Basket.TotalCents()
	c.mu.Unlock()

	secret, err := c.Secrets.CreateIntent(ctx, amount)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil || my != c.seq {
		// Torn down or superseded by a newer request; drop the result.
		return nil
	}
	if err != nil {
		c.setState(StateFailed)
		c.failure = FailureSecretRequest
		c.userMsg = "Unable to process payment. Please try again."
		return fmt.Errorf("create payment intent: %w", err)
	}
	c.setState(StateReadyToPay)
	c.secret = secret
	return nil
}

// Submit confirms the payment with the card details. Guarded against missing
// secret, incomplete card and double submission. On success the order is
// written locally (required), then remotely (best effort), the basket is
// emptied and navigation is scheduled.
func (c *Controller) Submit(ctx context.Context, card payments.Card) error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateProcessing {
		c.mu.Unlock()
		return ErrProcessing
	}
	if c.secret == "" {
		c.mu.Unlock()
		return ErrNoSecret
	}
	if !card.Complete() {
		c.mu.Unlock()
		return ErrIncompleteCard
	}
	if !canTransition(c.state, StateProcessing) {
		c.mu.Unlock()
		return ErrNoSecret
	}
	c.setState(StateProcessing)
	secret := c.secret
	items := c.Basket.Items()
	user := c.Basket.User()
	c.mu.Unlock()

	conf, err := c.Confirmer.ConfirmCard(ctx, secret, card)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	var cardErr *payments.CardError
	switch {
	case errors.As(err, &cardErr):
		// Decline: basket and secret survive, resubmission allowed.
		c.setState(StateFailed)
		c.failure = FailureCardDeclined
		c.userMsg = "Payment failed: " + cardErr.Message
		return err
	case err != nil:
		c.setState(StateFailed)
		c.failure = FailureUnexpected
		c.userMsg = "An unexpected error occurred. Please try again."
		c.secret = ""
		return err
	}

	if user != nil {
		o := orders.Order{
			ID:          conf.TransactionID,
			UserID:      user.ID,
			Basket:      items,
			AmountCents: conf.AmountCents,
			CreatedAt:   conf.CreatedAt,
		}
		// Local write is the durability backstop; if it fails the whole
		// confirmation is inconsistent.
		if err := c.Ledger.Append(ctx, o); err != nil {
			c.setState(StateFailed)
			c.failure = FailureUnexpected
			c.userMsg = "An unexpected error occurred. Please try again."
			c.secret = ""
			return fmt.Errorf("record order locally: %w", err)
		}
		// Remote write is fired, never awaited; the ledger already holds
		// the order.
		go func() {
			if err := c.Remote.SaveOrder(c.ctx, o); err != nil {
				log.Printf("checkout: remote order write failed, order %s kept locally: %v", o.ID, err)
			}
		}()
	}

	c.Basket.Empty(ctx)
	c.setState(StateSucceeded)
	c.failure = FailureNone
	c.userMsg = ""

	if c.Navigate != nil {
		time.AfterFunc(c.NavigateDelay, func() {
			if c.ctx.Err() == nil {
				c.Navigate()
			}
		})
	}
	return nil
}
