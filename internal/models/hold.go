package models

import (
	"time"

	"github.com/google/uuid"
)

// Hold is a time-boxed exclusive provisional claim on a capacity unit,
// owned by exactly one booking attempt. At most one non-expired hold may
// exist per capacity unit.
type Hold struct {
	HoldID       uuid.UUID     `json:"hold_id"`
	OfferID      string        `json:"offer_id"`
	CapacityUnit string        `json:"capacity_unit"`
	AttemptID    uuid.UUID     `json:"attempt_id"`
	ProviderRef  string        `json:"provider_ref,omitempty"` // upstream hold reference, empty if ledger-only
	AcquiredAt   time.Time     `json:"acquired_at"`
	TTL          time.Duration `json:"ttl"`
}

// ExpiresAt returns the instant the hold stops being valid
func (h *Hold) ExpiresAt() time.Time {
	return h.AcquiredAt.Add(h.TTL)
}

// IsExpired reports whether the hold has passed its TTL
func (h *Hold) IsExpired() bool {
	return time.Now().After(h.ExpiresAt())
}
