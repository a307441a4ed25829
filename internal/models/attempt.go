package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ATTEMPT STATES (state machine per booking attempt)
// ============================================================================

// AttemptState is the current position of a booking attempt in its lifecycle
type AttemptState string

const (
	StateInitiated         AttemptState = "initiated"
	StateEntityCollection  AttemptState = "entity_collection"
	StateAvailabilityCheck AttemptState = "availability_check"
	StateSelection         AttemptState = "selection"
	StateHold              AttemptState = "hold"
	StatePayment           AttemptState = "payment"
	StateConfirmation      AttemptState = "confirmation"
	StateCompleted         AttemptState = "completed"
	StateAbandoned         AttemptState = "abandoned"
	StateFailed            AttemptState = "failed"
)

// IsTerminal reports whether the state ends the attempt
func (s AttemptState) IsTerminal() bool {
	return s == StateCompleted || s == StateAbandoned || s == StateFailed
}

// allowedTransitions lists the legal forward edges of the state machine.
// The single backward edge (hold → availability_check) covers the
// stale-offer / seat-taken re-search path. Terminal states are reached via
// Terminate, not via this table.
var allowedTransitions = map[AttemptState][]AttemptState{
	StateInitiated:         {StateEntityCollection},
	StateEntityCollection:  {StateAvailabilityCheck},
	StateAvailabilityCheck: {StateSelection},
	StateSelection:         {StateHold},
	StateHold:              {StatePayment, StateAvailabilityCheck},
	StatePayment:           {StateConfirmation},
	StateConfirmation:      {StateCompleted},
}

func transitionAllowed(from, to AttemptState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ============================================================================
// BOOKING ATTEMPT
// ============================================================================

// BookingAttempt is the mutable per-flow record owned by the orchestrator.
// All mutation goes through Transition and Terminate, which take the
// attempt's lock; callers never hold the lock across I/O.
type BookingAttempt struct {
	mu sync.Mutex

	AttemptID uuid.UUID
	Intent    Intent
	State     AttemptState
	Version   uint64

	Offers           []Offer
	SelectedOffer    *Offer
	Hold             *Hold
	PaymentRef       string
	ConfirmationCode string
	BookingID        *uuid.UUID
	CommitPending    bool
	Reason           ReasonCode
	ReSearches       int

	IdempotencyKey   string
	CreatedAt        time.Time
	LastTransitionAt time.Time
	ExpiresAt        time.Time
}

// NewBookingAttempt creates an attempt in the initiated state
func NewBookingAttempt(intent Intent, overallTimeout time.Duration, idempotencyKey string) *BookingAttempt {
	now := time.Now()
	return &BookingAttempt{
		AttemptID:        uuid.New(),
		Intent:           intent,
		State:            StateInitiated,
		IdempotencyKey:   idempotencyKey,
		CreatedAt:        now,
		LastTransitionAt: now,
		ExpiresAt:        now.Add(overallTimeout),
	}
}

// Transition moves the attempt from exactly `from` to `to`, atomically.
// Returns ErrAttemptFinished if the attempt reached a terminal state in the
// meantime (e.g. a concurrent cancel won the race) and ErrInvalidTransition
// if the machine is not in `from` or the edge does not exist. The optional
// mutate func runs under the attempt lock after the state change commits.
func (a *BookingAttempt) Transition(from, to AttemptState, mutate func(*BookingAttempt)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State.IsTerminal() {
		return ErrAttemptFinished
	}
	if a.State != from || !transitionAllowed(from, to) {
		return ErrInvalidTransition
	}

	a.State = to
	a.Version++
	a.LastTransitionAt = time.Now()
	if mutate != nil {
		mutate(a)
	}
	return nil
}

// TerminationSnapshot carries the resources a terminated attempt still
// owned, so the caller can release them exactly once.
type TerminationSnapshot struct {
	Hold *Hold
}

// Terminate moves the attempt into the given terminal state with a reason.
// Idempotent under races: exactly one caller gets ok=true together with the
// snapshot of resources to release; later callers get ok=false. An attempt
// in confirmation cannot be terminated from outside: the confirm/store step
// is irreversible, so the thread driving it owns the outcome and a racing
// cancel or sweep is rejected until the attempt leaves that state (see
// FailConfirmation).
func (a *BookingAttempt) Terminate(state AttemptState, reason ReasonCode) (TerminationSnapshot, bool) {
	if !state.IsTerminal() {
		return TerminationSnapshot{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State.IsTerminal() || a.State == StateConfirmation {
		return TerminationSnapshot{}, false
	}
	return a.terminateLocked(state, reason), true
}

// FailConfirmation is the confirmation driver's own terminal edge, taken
// when the upstream confirm fails after capture. Only legal from the
// confirmation state.
func (a *BookingAttempt) FailConfirmation(reason ReasonCode) (TerminationSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State != StateConfirmation {
		return TerminationSnapshot{}, false
	}
	return a.terminateLocked(StateFailed, reason), true
}

func (a *BookingAttempt) terminateLocked(state AttemptState, reason ReasonCode) TerminationSnapshot {
	a.State = state
	a.Reason = reason
	a.Version++
	a.LastTransitionAt = time.Now()

	snap := TerminationSnapshot{Hold: a.Hold}
	a.Hold = nil
	return snap
}

// CurrentState returns the state under the attempt lock
func (a *BookingAttempt) CurrentState() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.State
}

// IsExpired reports whether the attempt has outlived its overall timeout
func (a *BookingAttempt) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

// Update runs a mutation under the attempt lock without changing state.
// Used for recording offers, holds and payment refs between transitions.
func (a *BookingAttempt) Update(mutate func(*BookingAttempt)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	mutate(a)
}

// View runs a read callback under the attempt lock and is used to build
// consistent responses.
func (a *BookingAttempt) View(read func(*BookingAttempt)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	read(a)
}
