package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/models"
)

// StaticUpstream is an in-process vendor used in development mode and in
// tests: it serves a seeded inventory, honors holds, and invalidates held
// or sold capacity units so stale offers behave like the real thing.
type StaticUpstream struct {
	mu         sync.Mutex
	name       string
	domain     models.Domain
	holds      bool
	offers     map[string]models.Offer // capacity unit → offer
	sold       map[string]bool         // capacity unit → gone upstream
	heldRefs   map[string]string       // provider ref → capacity unit
	confirmed  map[string]string       // provider ref or hold id → code
	codePrefix string
}

// NewStaticUpstream creates an empty static vendor for a domain.
// supportsHold mirrors whether the simulated vendor has a hold concept.
func NewStaticUpstream(domain models.Domain, supportsHold bool, codePrefix string) *StaticUpstream {
	return &StaticUpstream{
		name:       fmt.Sprintf("static-%s", domain),
		domain:     domain,
		holds:      supportsHold,
		offers:     make(map[string]models.Offer),
		sold:       make(map[string]bool),
		heldRefs:   make(map[string]string),
		confirmed:  make(map[string]string),
		codePrefix: codePrefix,
	}
}

// Seed adds an offer to the vendor's inventory
func (u *StaticUpstream) Seed(offer models.Offer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	offer.Domain = u.domain
	u.offers[offer.CapacityUnit] = offer
}

// MarkSold removes a capacity unit from the inventory, turning any offer
// that references it stale.
func (u *StaticUpstream) MarkSold(capacityUnit string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sold[capacityUnit] = true
}

// Name implements Upstream
func (u *StaticUpstream) Name() string { return u.name }

// SupportsHold implements Upstream
func (u *StaticUpstream) SupportsHold() bool { return u.holds }

// Search implements Upstream: filters seeded inventory by the query's
// origin/destination or venue/title.
func (u *StaticUpstream) Search(_ context.Context, query cache.Query) ([]models.Offer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var results []models.Offer
	for unit, offer := range u.offers {
		if u.sold[unit] {
			continue
		}
		if !u.matches(offer, query) {
			continue
		}
		snapshot := offer
		snapshot.FetchedAt = time.Now()
		results = append(results, snapshot)
	}
	return results, nil
}

func (u *StaticUpstream) matches(offer models.Offer, query cache.Query) bool {
	desc := strings.ToLower(offer.Description)
	switch u.domain {
	case models.DomainRail, models.DomainRoad:
		return (query.Origin == "" || strings.Contains(desc, query.Origin)) &&
			(query.Destination == "" || strings.Contains(desc, query.Destination))
	case models.DomainCinema:
		return (query.Venue == "" || strings.Contains(desc, query.Venue)) &&
			(query.Title == "" || strings.Contains(desc, query.Title))
	}
	return true
}

// Hold implements Upstream
func (u *StaticUpstream) Hold(_ context.Context, offer models.Offer) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.offers[offer.CapacityUnit]; !ok || u.sold[offer.CapacityUnit] {
		return "", models.ErrOfferStale
	}

	ref := "H-" + shortuuid.New()
	u.heldRefs[ref] = offer.CapacityUnit
	return ref, nil
}

// Confirm implements Upstream; idempotent per hold
func (u *StaticUpstream) Confirm(_ context.Context, hold *models.Hold) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := hold.ProviderRef
	if key == "" {
		key = hold.HoldID.String()
	}
	if code, ok := u.confirmed[key]; ok {
		return code, nil
	}
	if u.sold[hold.CapacityUnit] {
		return "", models.ErrOfferStale
	}

	code := u.codePrefix + shortuuid.New()[:6]
	u.confirmed[key] = code
	u.sold[hold.CapacityUnit] = true
	return code, nil
}

// Release implements Upstream
func (u *StaticUpstream) Release(_ context.Context, hold *models.Hold) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.heldRefs, hold.ProviderRef)
	return nil
}
