package checkout

import "errors"

var (
	ErrEmptyBasket    = errors.New("checkout: basket is empty")
	ErrNoSecret       = errors.New("checkout: payment secret not ready")
	ErrIncompleteCard = errors.New("checkout: card details incomplete")
	ErrProcessing     = errors.New("checkout: payment already processing")
	ErrCompleted      = errors.New("checkout: attempt already completed")
	ErrClosed         = errors.New("checkout: flow closed")
)

// Failure classifies why an attempt failed and whether the same secret is
// still usable.
type Failure string

const (
	FailureNone Failure = ""

	// Secret creation failed; the attempt is dead, retry restarts from Idle.
	FailureSecretRequest Failure = "SECRET_REQUEST_FAILED"

	// Processor decline; recoverable, resubmit with the same secret.
	FailureCardDeclined Failure = "CARD_DECLINED"

	// Anything else during confirmation; retry restarts from Idle.
	FailureUnexpected Failure = "UNEXPECTED_ERROR"
)

func (f Failure) Recoverable() bool { return f == FailureCardDeclined }
