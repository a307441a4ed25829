package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voicetransit/booking-backend/internal/models"
)

// Query is the normalized search key. Two intents asking the same question
// hit the same cache entry regardless of slot spelling.
type Query struct {
	Domain      models.Domain
	Origin      string
	Destination string
	Venue       string
	Title       string
	Date        string // YYYY-MM-DD of the window start
	PartySize   int
}

// QueryFromIntent normalizes an intent into a cache/search query
func QueryFromIntent(intent models.Intent) Query {
	return Query{
		Domain:      intent.Domain,
		Origin:      normalize(intent.Origin),
		Destination: normalize(intent.Destination),
		Venue:       normalize(intent.Venue),
		Title:       normalize(intent.Title),
		Date:        intent.WindowStart.UTC().Format("2006-01-02"),
		PartySize:   intent.PartySize,
	}
}

// Key returns the string form used as the cache key
func (q Query) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d",
		q.Domain, q.Origin, q.Destination, q.Venue, q.Title, q.Date, q.PartySize)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type entry struct {
	offers    []models.Offer
	expiresAt time.Time
}

// AvailabilityCache is a short-TTL read-through cache of provider search
// results. Advisory only: hold acquisition always re-validates against the
// provider adapter, so a stale entry can at worst cause one extra
// stale-offer round trip, never an inconsistent booking.
type AvailabilityCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewAvailabilityCache creates an empty cache
func NewAvailabilityCache() *AvailabilityCache {
	return &AvailabilityCache{
		entries: make(map[string]entry),
	}
}

// Get returns cached offers for the query, or false when absent or expired
func (c *AvailabilityCache) Get(q Query) ([]models.Offer, bool) {
	c.mu.RLock()
	e, ok := c.entries[q.Key()]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.offers, true
}

// Put stores offers for the query with the given TTL
func (c *AvailabilityCache) Put(q Query, offers []models.Offer, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q.Key()] = entry{
		offers:    offers,
		expiresAt: time.Now().Add(ttl),
	}
}

// Invalidate evicts the entry for a query. Used by upstream change-feed
// signals so the next search goes to the provider.
func (c *AvailabilityCache) Invalidate(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, q.Key())
}

// Purge removes all expired entries and returns how many were dropped
func (c *AvailabilityCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	purged := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			purged++
		}
	}
	return purged
}

// Len returns the number of entries currently stored, expired or not
func (c *AvailabilityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
