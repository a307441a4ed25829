package payment

import (
	"context"
	"errors"
)

// Gateway-level sentinel errors. Callers distinguish a declined charge
// (permanent, never retried) from a gateway timeout (ambiguous, retried
// with the same idempotency key).
var (
	// ErrDeclined means the gateway processed the request and refused it
	ErrDeclined = errors.New("payment declined")

	// ErrTimeout means the outcome is unknown; safe to retry with the
	// same idempotency key
	ErrTimeout = errors.New("payment gateway timeout")

	// ErrNotFound means the referenced authorization does not exist
	ErrNotFound = errors.New("payment authorization not found")
)

// Charge is the gateway's view of one payment flow, keyed by the caller's
// idempotency key. Repeating a call with the same key returns the original
// outcome instead of moving money twice.
type Charge struct {
	AuthorizationRef string
	CaptureRef       string
	Amount           float64
	Currency         string
	Captured         bool
	Voided           bool
}

// Gateway abstracts the payment processor. All operations are idempotent
// per key: the gateway deduplicates on its side, and implementations here
// must surface that behavior faithfully.
type Gateway interface {
	// Authorize places a hold on the payer's funds
	Authorize(ctx context.Context, idempotencyKey string, amount float64, currency string) (*Charge, error)

	// Capture settles a previous authorization
	Capture(ctx context.Context, idempotencyKey string) (*Charge, error)

	// Void cancels an authorization, or refunds it if already captured
	Void(ctx context.Context, idempotencyKey string) error
}
