package provider

import (
	"context"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/models"
)

// Upstream is the vendor-facing side of a provider adapter. Each domain has
// its own implementation with its own wire protocol; the rest of the system
// only ever sees the adapter's uniform capability surface.
//
// Implementations translate vendor failures into the shared taxonomy:
// models.ErrOfferStale when a referenced offer no longer exists, and plain
// transport/context errors for infrastructure failures (the adapter maps
// those to ProviderUnavailable/ProviderTimeout and feeds its breaker).
type Upstream interface {
	// Name identifies the vendor for logs
	Name() string

	// SupportsHold reports whether the vendor has a hold concept. When it
	// does not, holds exist only in the local hold ledger.
	SupportsHold() bool

	// Search returns bookable offers for a normalized query
	Search(ctx context.Context, query cache.Query) ([]models.Offer, error)

	// Hold reserves the offer's capacity unit upstream and returns the
	// vendor hold reference. Only called when SupportsHold is true.
	Hold(ctx context.Context, offer models.Offer) (string, error)

	// Confirm finalizes the reservation behind a hold and returns the
	// vendor confirmation code. Idempotent upstream-side: confirming the
	// same hold twice yields the same code.
	Confirm(ctx context.Context, hold *models.Hold) (string, error)

	// Release cancels an upstream hold. Best-effort; failures are the
	// adapter's to log, never to propagate.
	Release(ctx context.Context, hold *models.Hold) error
}
