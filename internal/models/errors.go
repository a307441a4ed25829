package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// ERROR TAXONOMY
// ============================================================================

// Upstream / provider errors
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrNoAvailability      = errors.New("no availability")
	ErrOfferStale          = errors.New("offer is stale")
)

// Hold ledger errors
var (
	ErrSeatTaken    = errors.New("capacity unit already held")
	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")
)

// Payment errors
var (
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrGatewayTimeout     = errors.New("payment gateway timeout")
	ErrPaymentNotFound    = errors.New("payment transaction not found")
	ErrPaymentNotCaptured = errors.New("payment not captured")
)

// Orchestration errors
var (
	ErrAttemptNotFound   = errors.New("booking attempt not found")
	ErrAttemptFinished   = errors.New("booking attempt already in a terminal state")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrBookingNotFound   = errors.New("booking not found")
)

// ValidationError is returned when an intent is missing required slots.
// It is recoverable: the NLU collaborator should re-prompt the user for
// the listed slots and resubmit via the slots endpoint.
type ValidationError struct {
	Message      string   `json:"message"`
	MissingSlots []string `json:"missing_slots,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.MissingSlots) > 0 {
		return fmt.Sprintf("%s (missing: %s)", e.Message, strings.Join(e.MissingSlots, ", "))
	}
	return e.Message
}

// RateLimitedError is returned by a provider adapter when the local rate
// limiter cannot admit the call before its deadline.
type RateLimitedError struct {
	Domain     Domain
	RetryAfter time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for provider %s, retry after %s", e.Domain, e.RetryAfter.Format("15:04:05"))
}

// ============================================================================
// REASON CODES
// ============================================================================

// ReasonCode is a machine-readable terminal reason consumed by the
// response-generation collaborator. Never free text.
type ReasonCode string

const (
	ReasonNone                ReasonCode = ""
	ReasonProviderUnavailable ReasonCode = "provider_unavailable"
	ReasonProviderTimeout     ReasonCode = "provider_timeout"
	ReasonNoAvailability      ReasonCode = "no_availability"
	ReasonPaymentDeclined     ReasonCode = "payment_declined"
	ReasonGatewayTimeout      ReasonCode = "gateway_timeout"
	ReasonHoldExpired         ReasonCode = "hold_expired"
	ReasonConfirmFailed       ReasonCode = "confirm_failed"
	ReasonUserCancelled       ReasonCode = "user_cancelled"
	ReasonAttemptTimeout      ReasonCode = "attempt_timeout"
)

// ReasonForError maps a failure to the reason code surfaced on the attempt.
func ReasonForError(err error) ReasonCode {
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		return ReasonProviderUnavailable
	case errors.Is(err, ErrProviderTimeout):
		return ReasonProviderTimeout
	case errors.Is(err, ErrNoAvailability):
		return ReasonNoAvailability
	case errors.Is(err, ErrPaymentDeclined):
		return ReasonPaymentDeclined
	case errors.Is(err, ErrGatewayTimeout):
		return ReasonGatewayTimeout
	case errors.Is(err, ErrHoldExpired):
		return ReasonHoldExpired
	default:
		return ReasonProviderUnavailable
	}
}
