package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/ledger"
	"github.com/voicetransit/booking-backend/internal/models"
)

// AdapterConfig holds per-adapter tuning
type AdapterConfig struct {
	CacheTTL         time.Duration // search result TTL for this domain
	HoldTTL          time.Duration
	UpstreamTimeout  time.Duration
	RatePerSecond    float64
	RateBurst        int
	BreakerThreshold int
	BreakerCoolDown  time.Duration
}

// Adapter exposes the uniform {Search, Hold, Confirm, Release} capability
// surface over one non-uniform vendor API. It owns the vendor-local rate
// limiter and circuit breaker, consults the availability cache on search,
// and goes through the hold ledger for capacity-unit exclusivity.
type Adapter struct {
	domain   models.Domain
	upstream Upstream
	breaker  *CircuitBreaker
	limiter  *rate.Limiter
	cache    *cache.AvailabilityCache
	ledger   *ledger.HoldLedger
	config   AdapterConfig
	logger   *logrus.Logger

	mu        sync.Mutex
	confirmed map[uuid.UUID]string // hold id → confirmation code
}

// NewAdapter creates an adapter for one provider domain
func NewAdapter(
	domain models.Domain,
	upstream Upstream,
	availCache *cache.AvailabilityCache,
	holdLedger *ledger.HoldLedger,
	cfg AdapterConfig,
	logger *logrus.Logger,
) *Adapter {
	return &Adapter{
		domain:    domain,
		upstream:  upstream,
		breaker:   NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCoolDown),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cache:     availCache,
		ledger:    holdLedger,
		config:    cfg,
		logger:    logger,
		confirmed: make(map[uuid.UUID]string),
	}
}

// Domain returns the provider domain this adapter serves
func (a *Adapter) Domain() models.Domain {
	return a.domain
}

// BreakerState exposes the circuit position for logs and stats
func (a *Adapter) BreakerState() string {
	return a.breaker.State()
}

// ============================================================================
// SEARCH
// ============================================================================

// Search returns an ordered sequence of offers for the query, consulting
// the availability cache first. On a miss it calls the upstream behind the
// adapter-local rate limiter and circuit breaker and caches the result.
func (a *Adapter) Search(ctx context.Context, query cache.Query) ([]models.Offer, error) {
	if offers, ok := a.cache.Get(query); ok {
		if len(offers) == 0 {
			return nil, models.ErrNoAvailability
		}
		return offers, nil
	}

	offers, err := a.callSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	a.cache.Put(query, offers, a.config.CacheTTL)

	if len(offers) == 0 {
		return nil, models.ErrNoAvailability
	}
	return offers, nil
}

func (a *Adapter) callSearch(ctx context.Context, query cache.Query) ([]models.Offer, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
	defer cancel()

	offers, err := a.upstream.Search(callCtx, query)
	if err != nil {
		a.breaker.RecordFailure()
		return nil, a.translate("search", err)
	}

	a.breaker.RecordSuccess()
	return offers, nil
}

// ============================================================================
// HOLD
// ============================================================================

// Hold reserves the offer's capacity unit for the attempt. Exclusivity is
// enforced in the hold ledger first (exactly one winner per unit); if the
// vendor has a hold concept the upstream hold follows, and a stale offer
// frees the ledger entry and surfaces ErrOfferStale so the caller can
// re-search.
func (a *Adapter) Hold(ctx context.Context, offer models.Offer, attemptID uuid.UUID) (*models.Hold, error) {
	hold, err := a.ledger.Acquire(offer, attemptID, a.config.HoldTTL)
	if err != nil {
		return nil, err
	}

	if !a.upstream.SupportsHold() {
		return hold, nil
	}

	if err := a.admit(ctx); err != nil {
		a.ledger.Release(hold.HoldID)
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
	defer cancel()

	providerRef, err := a.upstream.Hold(callCtx, offer)
	if err != nil {
		a.ledger.Release(hold.HoldID)
		if errors.Is(err, models.ErrOfferStale) {
			// Upstream answered; not an infrastructure failure
			a.breaker.RecordSuccess()
			a.cache.Invalidate(cacheQueryForOffer(offer))
			return nil, models.ErrOfferStale
		}
		a.breaker.RecordFailure()
		return nil, a.translate("hold", err)
	}

	a.breaker.RecordSuccess()
	hold.ProviderRef = providerRef
	a.ledger.SetProviderRef(hold.HoldID, providerRef)
	return hold, nil
}

// cacheQueryForOffer builds a best-effort invalidation key from an offer.
// Offers do not carry the full original query, so only domain-wide entries
// matching the capacity unit's route can be evicted; the short TTL covers
// the rest.
func cacheQueryForOffer(offer models.Offer) cache.Query {
	return cache.Query{Domain: offer.Domain}
}

// ============================================================================
// CONFIRM
// ============================================================================

// Confirm finalizes the upstream reservation for a hold and returns the
// provider confirmation code. Idempotent: confirming the same hold twice
// returns the same code rather than erroring.
func (a *Adapter) Confirm(ctx context.Context, hold *models.Hold) (string, error) {
	a.mu.Lock()
	if code, ok := a.confirmed[hold.HoldID]; ok {
		a.mu.Unlock()
		return code, nil
	}
	a.mu.Unlock()

	if err := a.admit(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
	defer cancel()

	code, err := a.upstream.Confirm(callCtx, hold)
	if err != nil {
		if errors.Is(err, models.ErrOfferStale) {
			// Holdless vendors discover a lost seat only here; the vendor
			// answered, so the breaker stays healthy
			a.breaker.RecordSuccess()
			return "", models.ErrSeatTaken
		}
		a.breaker.RecordFailure()
		return "", a.translate("confirm", err)
	}

	a.breaker.RecordSuccess()

	// The unit is sold upstream; the ledger entry has done its job
	a.ledger.Release(hold.HoldID)

	a.mu.Lock()
	a.confirmed[hold.HoldID] = code
	a.mu.Unlock()

	return code, nil
}

// ============================================================================
// RELEASE
// ============================================================================

// Release frees the hold. The ledger entry is always released; the
// upstream cancellation is best-effort and a failure is logged, never
// propagated. Releasing a hold must never block attempt abandonment.
func (a *Adapter) Release(ctx context.Context, hold *models.Hold) {
	a.ledger.Release(hold.HoldID)

	if !a.upstream.SupportsHold() || hold.ProviderRef == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
	defer cancel()

	if err := a.upstream.Release(callCtx, hold); err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"domain":       a.domain,
			"hold_id":      hold.HoldID,
			"provider_ref": hold.ProviderRef,
		}).Warn("Upstream hold release failed; hold released locally")
	}
}

// ============================================================================
// HELPERS
// ============================================================================

// admit applies the circuit breaker gate and the rate limiter. An open
// circuit rejects before any limiter wait so callers fail fast instead of
// queueing against a vendor that is down; the Half-Open trial slot is only
// consumed once the limiter has admitted the call.
func (a *Adapter) admit(ctx context.Context) error {
	if a.breaker.Rejecting() {
		return models.ErrProviderUnavailable
	}

	if !a.limiter.Allow() {
		// Bounded wait rather than unbounded queueing against a
		// rate-limited vendor
		waitCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
		err := a.limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return &models.RateLimitedError{
				Domain:     a.domain,
				RetryAfter: time.Now().Add(time.Second),
			}
		}
	}

	if !a.breaker.Allow() {
		return models.ErrProviderUnavailable
	}
	return nil
}

// translate maps transport errors into the shared provider taxonomy
func (a *Adapter) translate(op string, err error) error {
	a.logger.WithError(err).WithFields(logrus.Fields{
		"domain":  a.domain,
		"op":      op,
		"breaker": a.breaker.State(),
	}).Warn("Provider call failed")

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", a.domain, op, models.ErrProviderTimeout)
	}
	return fmt.Errorf("%s %s: %w", a.domain, op, models.ErrProviderUnavailable)
}
