package payment

import (
	"context"
	"sync"

	"github.com/lithammer/shortuuid/v3"
)

// DevGateway is an in-memory gateway for development and tests. It honors
// idempotency keys exactly like the hosted processor and supports failure
// injection so callers can exercise declined and timed-out paths.
type DevGateway struct {
	mu      sync.Mutex
	charges map[string]*Charge

	// Failure injection, keyed by idempotency key
	declineKeys map[string]bool
	timeoutKeys map[string]int // remaining timeouts before success
}

// NewDevGateway creates an empty dev gateway
func NewDevGateway() *DevGateway {
	return &DevGateway{
		charges:     make(map[string]*Charge),
		declineKeys: make(map[string]bool),
		timeoutKeys: make(map[string]int),
	}
}

// DeclineNext makes any authorization with this key be declined
func (g *DevGateway) DeclineNext(idempotencyKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declineKeys[idempotencyKey] = true
}

// TimeoutNext makes the next n calls with this key time out
func (g *DevGateway) TimeoutNext(idempotencyKey string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeoutKeys[idempotencyKey] = n
}

// ChargeFor returns the stored charge for a key, for test assertions
func (g *DevGateway) ChargeFor(idempotencyKey string) (*Charge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.charges[idempotencyKey]
	return c, ok
}

func (g *DevGateway) consumeTimeout(idempotencyKey string) bool {
	if remaining, ok := g.timeoutKeys[idempotencyKey]; ok && remaining > 0 {
		g.timeoutKeys[idempotencyKey] = remaining - 1
		return true
	}
	return false
}

// Authorize implements Gateway
func (g *DevGateway) Authorize(_ context.Context, idempotencyKey string, amount float64, currency string) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.consumeTimeout(idempotencyKey) {
		return nil, ErrTimeout
	}
	if g.declineKeys[idempotencyKey] {
		return nil, ErrDeclined
	}

	if existing, ok := g.charges[idempotencyKey]; ok {
		snapshot := *existing
		return &snapshot, nil
	}

	charge := &Charge{
		AuthorizationRef: "AUTH-" + shortuuid.New(),
		Amount:           amount,
		Currency:         currency,
	}
	g.charges[idempotencyKey] = charge

	snapshot := *charge
	return &snapshot, nil
}

// Capture implements Gateway
func (g *DevGateway) Capture(_ context.Context, idempotencyKey string) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.consumeTimeout(idempotencyKey) {
		return nil, ErrTimeout
	}

	charge, ok := g.charges[idempotencyKey]
	if !ok {
		return nil, ErrNotFound
	}
	if !charge.Captured {
		charge.Captured = true
		charge.CaptureRef = "CAP-" + shortuuid.New()
	}

	snapshot := *charge
	return &snapshot, nil
}

// Void implements Gateway
func (g *DevGateway) Void(_ context.Context, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.consumeTimeout(idempotencyKey) {
		return ErrTimeout
	}

	charge, ok := g.charges[idempotencyKey]
	if !ok {
		return ErrNotFound
	}
	charge.Voided = true
	return nil
}
