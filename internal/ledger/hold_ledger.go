package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/models"
)

// HoldLedger tracks tentative allocations per booking attempt and enforces
// single-writer-per-capacity-unit semantics. Acquire is linearizable: for
// concurrent calls on the same capacity unit exactly one caller wins, the
// rest get ErrSeatTaken immediately (no queueing).
type HoldLedger struct {
	mu     sync.Mutex
	byUnit map[string]*models.Hold    // capacity unit → active hold
	byID   map[uuid.UUID]*models.Hold // hold id → active hold
	logger *logrus.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	interval time.Duration
}

// NewHoldLedger creates an empty ledger. Call StartReaper to enable
// background expiry.
func NewHoldLedger(reapInterval time.Duration, logger *logrus.Logger) *HoldLedger {
	return &HoldLedger{
		byUnit:   make(map[string]*models.Hold),
		byID:     make(map[uuid.UUID]*models.Hold),
		logger:   logger,
		stopCh:   make(chan struct{}),
		interval: reapInterval,
	}
}

// Acquire reserves a capacity unit for an attempt. Fails with ErrSeatTaken
// when a non-expired hold by another attempt already covers the unit. An
// expired hold is reclaimed inline so callers never wait on the reaper.
func (l *HoldLedger) Acquire(offer models.Offer, attemptID uuid.UUID, ttl time.Duration) (*models.Hold, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byUnit[offer.CapacityUnit]; ok {
		if !existing.IsExpired() {
			return nil, models.ErrSeatTaken
		}
		// Expired but not yet reaped: reclaim now
		delete(l.byID, existing.HoldID)
		delete(l.byUnit, offer.CapacityUnit)
	}

	hold := &models.Hold{
		HoldID:       uuid.New(),
		OfferID:      offer.OfferID,
		CapacityUnit: offer.CapacityUnit,
		AttemptID:    attemptID,
		AcquiredAt:   time.Now(),
		TTL:          ttl,
	}
	l.byUnit[offer.CapacityUnit] = hold
	l.byID[hold.HoldID] = hold

	return hold, nil
}

// Get returns the active hold for an id, or ErrHoldNotFound. Expired holds
// are reported as ErrHoldExpired and reclaimed.
func (l *HoldLedger) Get(holdID uuid.UUID) (*models.Hold, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hold, ok := l.byID[holdID]
	if !ok {
		return nil, models.ErrHoldNotFound
	}
	if hold.IsExpired() {
		delete(l.byID, hold.HoldID)
		delete(l.byUnit, hold.CapacityUnit)
		return nil, models.ErrHoldExpired
	}
	return hold, nil
}

// SetProviderRef records the upstream hold reference on an active hold
func (l *HoldLedger) SetProviderRef(holdID uuid.UUID, providerRef string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hold, ok := l.byID[holdID]; ok {
		hold.ProviderRef = providerRef
	}
}

// Release frees the capacity unit held by holdID. Idempotent: releasing an
// unknown or already-released hold is a no-op.
func (l *HoldLedger) Release(holdID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hold, ok := l.byID[holdID]
	if !ok {
		return
	}
	delete(l.byID, holdID)
	delete(l.byUnit, hold.CapacityUnit)
}

// ActiveCount returns the number of live holds (expired ones excluded)
func (l *HoldLedger) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, hold := range l.byID {
		if !hold.IsExpired() {
			count++
		}
	}
	return count
}

// ============================================================================
// REAPER
// ============================================================================

// StartReaper begins the background job that releases holds past their TTL,
// making capacity visible again to subsequent searches.
func (l *HoldLedger) StartReaper() {
	l.logger.Info("Starting hold ledger reaper")
	go l.run()
}

// StopReaper stops the background reaper
func (l *HoldLedger) StopReaper() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *HoldLedger) run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.ReapExpired()
		case <-l.stopCh:
			l.logger.Info("Hold ledger reaper stopped")
			return
		}
	}
}

// ReapExpired releases all expired holds and returns how many were reaped.
// Exposed for tests and the maintenance job.
func (l *HoldLedger) ReapExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	reaped := 0
	for id, hold := range l.byID {
		if hold.IsExpired() {
			delete(l.byID, id)
			delete(l.byUnit, hold.CapacityUnit)
			reaped++
		}
	}

	if reaped > 0 {
		l.logger.WithField("count", reaped).Info("Released expired holds")
	}
	return reaped
}
