package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// PAYMENT TRANSACTION
// ============================================================================

// PaymentStatus tracks a transaction through authorize → capture
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusVoided     PaymentStatus = "voided"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentTransaction records one payment flow for an attempt. Keyed by the
// deterministic idempotency key so a retried submission replays the prior
// result instead of charging twice.
type PaymentTransaction struct {
	PaymentRef     string        `json:"payment_ref"`
	AttemptID      uuid.UUID     `json:"attempt_id"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	IdempotencyKey string        `json:"idempotency_key"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// PaymentIdempotencyKey derives the deterministic key for an
// attempt/hold pair. Same inputs always produce the same key, so a retry
// after a network partition can never double-charge.
func PaymentIdempotencyKey(attemptID, holdID uuid.UUID) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", attemptID, holdID)))
	return hex.EncodeToString(sum[:])
}
