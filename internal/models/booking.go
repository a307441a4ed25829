package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING (terminal, durable)
// ============================================================================

// Booking is the durable record of a committed reservation. The only entity
// with an indefinite lifetime; immutable once written to the booking store.
type Booking struct {
	BookingID        uuid.UUID `json:"booking_id" db:"id"`
	AttemptID        uuid.UUID `json:"attempt_id" db:"attempt_id"`
	Reference        string    `json:"reference" db:"reference"`
	Domain           Domain    `json:"domain" db:"domain"`
	OfferID          string    `json:"offer_id" db:"offer_id"`
	Description      string    `json:"description" db:"description"`
	CapacityUnit     string    `json:"capacity_unit" db:"capacity_unit"`
	Amount           float64   `json:"amount" db:"amount"`
	Currency         string    `json:"currency" db:"currency"`
	PaymentRef       string    `json:"payment_ref" db:"payment_ref"`
	ConfirmationCode string    `json:"confirmation_code" db:"confirmation_code"`
	CommittedAt      time.Time `json:"committed_at" db:"committed_at"`
}

// ============================================================================
// REQUEST/RESPONSE STRUCTS
// ============================================================================

// SubmitIntentRequest starts a booking attempt from a structured intent
type SubmitIntentRequest struct {
	Intent         Intent  `json:"intent" binding:"required"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

// ProvideSlotsRequest supplies slot values collected by a clarification turn
type ProvideSlotsRequest struct {
	Slots map[string]string `json:"slots" binding:"required"`
}

// SelectOfferRequest picks one of the presented offers
type SelectOfferRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

// SubmitPaymentRequest drives the payment phase of an attempt
type SubmitPaymentRequest struct {
	Method string `json:"method" binding:"required"` // e.g. "card", "wallet"
}

// OfferView is the offer shape presented to the response collaborator
type OfferView struct {
	OfferID     string    `json:"offer_id"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	DepartsAt   time.Time `json:"departs_at"`
}

// AttemptResponse is the structured outbound description of an attempt's
// current state, rendered to voice/visual output by an external collaborator.
type AttemptResponse struct {
	AttemptID        uuid.UUID    `json:"attempt_id"`
	State            AttemptState `json:"state"`
	Reason           ReasonCode   `json:"reason,omitempty"`
	MissingSlots     []string     `json:"missing_slots,omitempty"`
	Offers           []OfferView  `json:"offers,omitempty"`
	SelectedOfferID  string       `json:"selected_offer_id,omitempty"`
	HoldExpiresAt    *time.Time   `json:"hold_expires_at,omitempty"`
	BookingID        *uuid.UUID   `json:"booking_id,omitempty"`
	CommitPending    bool         `json:"commit_pending,omitempty"`
	ConfirmationCode string       `json:"confirmation_code,omitempty"`
	ExpiresAt        time.Time    `json:"expires_at"`
}

// BookingResponse is the durable booking record returned after completion
type BookingResponse struct {
	BookingID        uuid.UUID `json:"booking_id"`
	Reference        string    `json:"reference"`
	Domain           Domain    `json:"domain"`
	Description      string    `json:"description"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	ConfirmationCode string    `json:"confirmation_code"`
	CommittedAt      time.Time `json:"committed_at"`
}
