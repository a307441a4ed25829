package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/database"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/internal/provider"
)

// terminalRetention is how long finished attempts stay queryable before the
// sweeper drops them from the registry.
const terminalRetention = 30 * time.Minute

// storeRetryCap bounds the backoff between booking store write retries
const storeRetryCap = 30 * time.Second

// OrchestratorService owns the booking attempt state machine. It is the
// transaction script for the whole flow: every inbound event maps to a
// validated state transition, and every terminal transition releases the
// attempt's resources exactly once.
//
// Attempts are ephemeral and in-memory; only a committed booking is durable.
type OrchestratorService struct {
	registry    *provider.Registry
	coordinator *PaymentCoordinator
	bookings    *database.BookingRepository
	config      config.OrchestratorConfig
	logger      *logrus.Logger

	mu        sync.Mutex
	attempts  map[uuid.UUID]*models.BookingAttempt
	byIdemKey map[string]uuid.UUID // client idempotency key → attempt

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewOrchestratorService creates the orchestrator
func NewOrchestratorService(
	registry *provider.Registry,
	coordinator *PaymentCoordinator,
	bookings *database.BookingRepository,
	cfg config.OrchestratorConfig,
	logger *logrus.Logger,
) *OrchestratorService {
	return &OrchestratorService{
		registry:    registry,
		coordinator: coordinator,
		bookings:    bookings,
		config:      cfg,
		logger:      logger,
		attempts:    make(map[uuid.UUID]*models.BookingAttempt),
		byIdemKey:   make(map[string]uuid.UUID),
		stopCh:      make(chan struct{}),
	}
}

// Stop ends the orchestrator's background work, notably pending booking
// store retry writers.
func (s *OrchestratorService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// ============================================================================
// SUBMIT INTENT
// ============================================================================

// SubmitIntent starts a booking attempt from a structured intent. When the
// request carries a client idempotency key and an attempt for that key
// already exists, the existing attempt is returned instead of creating a
// duplicate. An intent with missing slots parks the attempt in entity
// collection and reports which slots to collect; a complete intent proceeds
// straight to the availability check.
func (s *OrchestratorService) SubmitIntent(ctx context.Context, req *models.SubmitIntentRequest) (*models.AttemptResponse, error) {
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		s.mu.Lock()
		if attemptID, ok := s.byIdemKey[*req.IdempotencyKey]; ok {
			attempt := s.attempts[attemptID]
			s.mu.Unlock()
			if attempt != nil {
				return s.buildResponse(attempt), nil
			}
		} else {
			s.mu.Unlock()
		}
	}

	if !req.Intent.Domain.IsValid() {
		return nil, &models.ValidationError{
			Message:      "unknown booking domain",
			MissingSlots: []string{"domain"},
		}
	}

	key := ""
	if req.IdempotencyKey != nil {
		key = *req.IdempotencyKey
	}
	attempt := models.NewBookingAttempt(req.Intent, s.config.OverallTimeout, key)

	s.mu.Lock()
	s.attempts[attempt.AttemptID] = attempt
	if key != "" {
		s.byIdemKey[key] = attempt.AttemptID
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.AttemptID,
		"domain":     req.Intent.Domain,
	}).Info("Booking attempt started")

	if err := attempt.Transition(models.StateInitiated, models.StateEntityCollection, nil); err != nil {
		return nil, err
	}

	if len(req.Intent.MissingSlots()) > 0 {
		return s.buildResponse(attempt), nil
	}

	if err := s.runAvailabilityCheck(ctx, attempt, models.StateEntityCollection); err != nil {
		return s.buildResponse(attempt), nil
	}
	return s.buildResponse(attempt), nil
}

// ============================================================================
// PROVIDE SLOTS
// ============================================================================

// ProvideSlots merges slot values from a clarification turn into the
// attempt's intent. When the intent becomes complete the attempt advances
// to the availability check; otherwise it stays in entity collection and
// reports what is still missing.
func (s *OrchestratorService) ProvideSlots(ctx context.Context, attemptID uuid.UUID, slots map[string]string) (*models.AttemptResponse, error) {
	attempt, err := s.getAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	if state := attempt.CurrentState(); state != models.StateEntityCollection {
		if state.IsTerminal() {
			return nil, models.ErrAttemptFinished
		}
		return nil, models.ErrInvalidTransition
	}

	attempt.Update(func(a *models.BookingAttempt) {
		a.Intent = a.Intent.WithSlots(slots)
	})

	var missing []string
	attempt.View(func(a *models.BookingAttempt) {
		missing = a.Intent.MissingSlots()
	})
	if len(missing) > 0 {
		return s.buildResponse(attempt), nil
	}

	if err := s.runAvailabilityCheck(ctx, attempt, models.StateEntityCollection); err != nil {
		return s.buildResponse(attempt), nil
	}
	return s.buildResponse(attempt), nil
}

// ============================================================================
// SELECT OFFER
// ============================================================================

// SelectOffer locks in one of the presented offers and acquires a hold on
// its capacity unit. A stale offer or lost seat race does not fail the
// attempt: the orchestrator takes the single backward edge into a fresh
// availability check, bounded by the re-search limit.
func (s *OrchestratorService) SelectOffer(ctx context.Context, attemptID uuid.UUID, offerID string) (*models.AttemptResponse, error) {
	attempt, err := s.getAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	var offer *models.Offer
	attempt.View(func(a *models.BookingAttempt) {
		for i := range a.Offers {
			if a.Offers[i].OfferID == offerID {
				offer = &a.Offers[i]
				return
			}
		}
	})
	if offer == nil {
		return nil, &models.ValidationError{Message: "offer is not part of the presented results"}
	}

	adapter, err := s.registry.ForDomain(offer.Domain)
	if err != nil {
		return nil, err
	}

	if err := attempt.Transition(models.StateSelection, models.StateHold, func(a *models.BookingAttempt) {
		a.SelectedOffer = offer
	}); err != nil {
		return nil, err
	}

	hold, err := adapter.Hold(ctx, *offer, attemptID)
	if err != nil {
		if errors.Is(err, models.ErrSeatTaken) || errors.Is(err, models.ErrOfferStale) {
			return s.reSearch(ctx, attempt)
		}
		s.failAttempt(ctx, attempt, err)
		return s.buildResponse(attempt), nil
	}

	// The hold is ours. If a concurrent cancel already terminated the
	// attempt, the forward flow lost the race and must release what it
	// acquired itself.
	if err := attempt.Transition(models.StateHold, models.StatePayment, func(a *models.BookingAttempt) {
		a.Hold = hold
	}); err != nil {
		adapter.Release(ctx, hold)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"hold_id":    hold.HoldID,
		"offer_id":   offer.OfferID,
	}).Info("Hold acquired, awaiting payment")

	return s.buildResponse(attempt), nil
}

// reSearch takes the hold → availability_check backward edge after a stale
// offer or lost seat race. Bounded: past the limit the attempt fails with
// no_availability rather than looping.
func (s *OrchestratorService) reSearch(ctx context.Context, attempt *models.BookingAttempt) (*models.AttemptResponse, error) {
	var reSearches int
	attempt.View(func(a *models.BookingAttempt) {
		reSearches = a.ReSearches
	})

	if reSearches >= s.config.MaxReSearches {
		s.terminate(ctx, attempt, models.StateFailed, models.ReasonNoAvailability)
		return s.buildResponse(attempt), nil
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.AttemptID,
		"re_search":  reSearches + 1,
	}).Info("Selected offer no longer available, re-searching")

	if err := s.runAvailabilityCheck(ctx, attempt, models.StateHold); err != nil {
		return s.buildResponse(attempt), nil
	}
	return s.buildResponse(attempt), nil
}

// ============================================================================
// SUBMIT PAYMENT
// ============================================================================

// SubmitPayment drives the payment phase: authorize, capture, confirm
// upstream, store the booking. The idempotency key is derived from the
// attempt and hold, so resubmissions after an ambiguous failure replay
// rather than double-charge. A confirmation failure after capture refunds
// the payment; a booking store failure after capture is retried until it
// sticks because a captured payment must never be lost.
func (s *OrchestratorService) SubmitPayment(ctx context.Context, attemptID uuid.UUID) (*models.AttemptResponse, error) {
	attempt, err := s.getAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	var hold *models.Hold
	var offer *models.Offer
	attempt.View(func(a *models.BookingAttempt) {
		hold = a.Hold
		offer = a.SelectedOffer
	})

	if state := attempt.CurrentState(); state != models.StatePayment || hold == nil || offer == nil {
		if state.IsTerminal() {
			return nil, models.ErrAttemptFinished
		}
		return nil, models.ErrInvalidTransition
	}

	adapter, err := s.registry.ForDomain(offer.Domain)
	if err != nil {
		return nil, err
	}

	// A hold that expired while the user hesitated cannot be paid for
	if hold.IsExpired() {
		s.terminate(ctx, attempt, models.StateFailed, models.ReasonHoldExpired)
		return s.buildResponse(attempt), nil
	}

	if _, err := s.coordinator.Authorize(ctx, attemptID, hold.HoldID, offer.Price); err != nil {
		s.failAttempt(ctx, attempt, err)
		return s.buildResponse(attempt), nil
	}

	txn, err := s.coordinator.Capture(ctx, attemptID, hold.HoldID)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return s.buildResponse(attempt), nil
	}

	// Once this transition commits, the attempt is in confirmation and
	// cannot be terminated from outside until it resolves: the confirm and
	// store steps below are irreversible, so this thread owns the outcome.
	if err := attempt.Transition(models.StatePayment, models.StateConfirmation, func(a *models.BookingAttempt) {
		a.PaymentRef = txn.PaymentRef
	}); err != nil {
		if errors.Is(err, models.ErrAttemptFinished) && attempt.CurrentState() != models.StateCompleted {
			// A cancel or sweep won the race after capturing: refund
			s.compensateCapture(ctx, attemptID, hold.HoldID)
			return nil, err
		}
		// A duplicate pay request for the same attempt won the transition
		// (it is mid-confirmation or already completed). The idempotency
		// key already made the gateway calls replays, so report the
		// winner's state and leave the captured payment alone.
		return s.buildResponse(attempt), nil
	}

	confirmationCode, err := adapter.Confirm(ctx, hold)
	if err != nil {
		// Money moved but the seat did not: refund and fail
		s.logger.WithError(err).WithField("attempt_id", attemptID).
			Error("Confirmation failed after capture, refunding payment")
		s.failConfirmation(ctx, attempt)
		return s.buildResponse(attempt), nil
	}

	booking := &models.Booking{
		BookingID:        uuid.New(),
		AttemptID:        attemptID,
		Reference:        bookingReference(offer.Domain),
		Domain:           offer.Domain,
		OfferID:          offer.OfferID,
		Description:      offer.Description,
		CapacityUnit:     offer.CapacityUnit,
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		PaymentRef:       txn.PaymentRef,
		ConfirmationCode: confirmationCode,
	}
	stored := s.storeBooking(attempt, booking)

	if err := attempt.Transition(models.StateConfirmation, models.StateCompleted, func(a *models.BookingAttempt) {
		a.ConfirmationCode = confirmationCode
		if stored {
			a.BookingID = &booking.BookingID
		} else {
			// The background writer fills BookingID once the insert lands
			a.CommitPending = true
		}
	}); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id":        attemptID,
		"booking_id":        booking.BookingID,
		"confirmation_code": confirmationCode,
	}).Info("Booking completed")

	return s.buildResponse(attempt), nil
}

// storeBooking writes the durable record, retrying until it succeeds, and
// reports whether the write committed synchronously. The capture already
// happened; giving up would orphan real money, so a persistent store failure
// pages the operator and keeps retrying in the background with capped
// backoff until it lands or the orchestrator stops.
func (s *OrchestratorService) storeBooking(attempt *models.BookingAttempt, booking *models.Booking) bool {
	var lastErr error
	backoff := s.config.RetryBase
	for i := 0; i <= s.config.MaxRetries; i++ {
		if i > 0 {
			time.Sleep(backoff)
			backoff *= time.Duration(s.config.RetryFactor)
		}
		if lastErr = s.bookings.Create(booking); lastErr == nil {
			return true
		}
	}

	s.logger.WithError(lastErr).WithFields(logrus.Fields{
		"attempt_id":  booking.AttemptID,
		"payment_ref": booking.PaymentRef,
	}).Error("Booking store write failing after capture, retrying in background")

	go func() {
		for {
			select {
			case <-time.After(storeRetryCap):
			case <-s.stopCh:
				return
			}
			if err := s.bookings.Create(booking); err == nil {
				attempt.Update(func(a *models.BookingAttempt) {
					a.BookingID = &booking.BookingID
					a.CommitPending = false
				})
				s.logger.WithField("booking_id", booking.BookingID).
					Info("Booking store write recovered")
				return
			}
			s.logger.WithFields(logrus.Fields{
				"attempt_id":  booking.AttemptID,
				"payment_ref": booking.PaymentRef,
			}).Error("Booking store write still failing after capture")
		}
	}()
	return false
}

func (s *OrchestratorService) compensateCapture(ctx context.Context, attemptID, holdID uuid.UUID) {
	if err := s.coordinator.Void(ctx, attemptID, holdID); err != nil {
		s.logger.WithError(err).WithField("attempt_id", attemptID).
			Error("Compensating refund failed, manual reconciliation required")
	}
}

// ============================================================================
// CANCEL
// ============================================================================

// Cancel abandons the attempt at the user's request. Effective from any
// non-terminal state; a cancel racing a forward transition resolves through
// the attempt lock and whoever terminates first owns the resource release.
func (s *OrchestratorService) Cancel(ctx context.Context, attemptID uuid.UUID) (*models.AttemptResponse, error) {
	attempt, err := s.getAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	s.terminate(ctx, attempt, models.StateAbandoned, models.ReasonUserCancelled)
	return s.buildResponse(attempt), nil
}

// ============================================================================
// QUERIES
// ============================================================================

// GetAttempt returns the current structured view of an attempt
func (s *OrchestratorService) GetAttempt(attemptID uuid.UUID) (*models.AttemptResponse, error) {
	attempt, err := s.getAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(attempt), nil
}

// GetBooking returns a committed booking from the durable store
func (s *OrchestratorService) GetBooking(bookingID uuid.UUID) (*models.BookingResponse, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	return &models.BookingResponse{
		BookingID:        booking.BookingID,
		Reference:        booking.Reference,
		Domain:           booking.Domain,
		Description:      booking.Description,
		Amount:           booking.Amount,
		Currency:         booking.Currency,
		ConfirmationCode: booking.ConfirmationCode,
		CommittedAt:      booking.CommittedAt,
	}, nil
}

// ============================================================================
// SWEEPER SUPPORT
// ============================================================================

// AbandonExpired terminates attempts past their overall deadline and prunes
// finished attempts past retention. Called by the sweeper; returns how many
// attempts were abandoned.
func (s *OrchestratorService) AbandonExpired(ctx context.Context) int {
	s.mu.Lock()
	candidates := make([]*models.BookingAttempt, 0, len(s.attempts))
	for _, attempt := range s.attempts {
		candidates = append(candidates, attempt)
	}
	s.mu.Unlock()

	abandoned := 0
	for _, attempt := range candidates {
		state := attempt.CurrentState()

		if state.IsTerminal() {
			var finishedAt time.Time
			attempt.View(func(a *models.BookingAttempt) {
				finishedAt = a.LastTransitionAt
			})
			if time.Since(finishedAt) > terminalRetention {
				s.prune(attempt)
			}
			continue
		}

		if attempt.IsExpired() {
			if s.terminate(ctx, attempt, models.StateAbandoned, models.ReasonAttemptTimeout) {
				abandoned++
				s.logger.WithFields(logrus.Fields{
					"attempt_id": attempt.AttemptID,
					"state":      state,
				}).Info("Attempt abandoned by sweeper after overall timeout")
			}
		}
	}
	return abandoned
}

// ActiveCount returns how many attempts are live, for the maintenance job
func (s *OrchestratorService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, attempt := range s.attempts {
		if !attempt.CurrentState().IsTerminal() {
			count++
		}
	}
	return count
}

func (s *OrchestratorService) prune(attempt *models.BookingAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attempt.AttemptID)
	if attempt.IdempotencyKey != "" {
		delete(s.byIdemKey, attempt.IdempotencyKey)
	}
}

// ============================================================================
// INTERNAL FLOW
// ============================================================================

// runAvailabilityCheck moves the attempt into availability_check from the
// given state, runs the provider search with transient retries, and
// advances to selection with the fresh offers. Entering from hold counts
// one re-search. A failed search terminates the attempt.
func (s *OrchestratorService) runAvailabilityCheck(ctx context.Context, attempt *models.BookingAttempt, from models.AttemptState) error {
	if err := attempt.Transition(from, models.StateAvailabilityCheck, func(a *models.BookingAttempt) {
		if from == models.StateHold {
			a.ReSearches++
		}
		a.Offers = nil
		a.SelectedOffer = nil
		a.Hold = nil
	}); err != nil {
		return err
	}

	var intent models.Intent
	attempt.View(func(a *models.BookingAttempt) {
		intent = a.Intent
	})

	adapter, err := s.registry.ForDomain(intent.Domain)
	if err != nil {
		s.failAttempt(ctx, attempt, models.ErrProviderUnavailable)
		return err
	}

	query := cache.QueryFromIntent(intent)
	offers, err := s.searchWithRetry(ctx, adapter, query)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return err
	}

	if err := attempt.Transition(models.StateAvailabilityCheck, models.StateSelection, func(a *models.BookingAttempt) {
		a.Offers = offers
	}); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.AttemptID,
		"offers":     len(offers),
	}).Info("Availability check completed")
	return nil
}

// searchWithRetry retries transient provider failures with exponential
// backoff. No availability is a definitive answer, never retried.
func (s *OrchestratorService) searchWithRetry(ctx context.Context, adapter *provider.Adapter, query cache.Query) ([]models.Offer, error) {
	backoff := s.config.RetryBase

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, lastErr
			}
			backoff *= time.Duration(s.config.RetryFactor)
		}

		offers, err := adapter.Search(ctx, query)
		if err == nil {
			return offers, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	var rateLimited *models.RateLimitedError
	return errors.Is(err, models.ErrProviderTimeout) ||
		errors.Is(err, models.ErrProviderUnavailable) ||
		errors.As(err, &rateLimited)
}

// failAttempt terminates the attempt with the reason derived from err
func (s *OrchestratorService) failAttempt(ctx context.Context, attempt *models.BookingAttempt, err error) {
	s.terminate(ctx, attempt, models.StateFailed, models.ReasonForError(err))
}

// terminate moves the attempt to a terminal state and releases its
// resources exactly once: the termination snapshot carries whatever the
// attempt still owned, and only the caller that won the terminal transition
// sees it. Refused while the attempt is mid-confirmation; the sweeper picks
// such an attempt up on a later pass if it somehow stalls there.
func (s *OrchestratorService) terminate(ctx context.Context, attempt *models.BookingAttempt, state models.AttemptState, reason models.ReasonCode) bool {
	snap, ok := attempt.Terminate(state, reason)
	if !ok {
		return false
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.AttemptID,
		"state":      state,
		"reason":     reason,
	}).Info("Attempt terminated")

	s.releaseSnapshot(ctx, attempt, snap)
	return true
}

// failConfirmation is the confirmation driver's terminal edge after the
// upstream confirm fails post-capture.
func (s *OrchestratorService) failConfirmation(ctx context.Context, attempt *models.BookingAttempt) {
	snap, ok := attempt.FailConfirmation(models.ReasonConfirmFailed)
	if !ok {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.AttemptID,
		"reason":     models.ReasonConfirmFailed,
	}).Info("Attempt terminated")

	s.releaseSnapshot(ctx, attempt, snap)
}

// releaseSnapshot frees whatever a terminated attempt still owned: its hold
// upstream and in the ledger, and any payment tied to that hold (voided if
// authorized, refunded if captured).
func (s *OrchestratorService) releaseSnapshot(ctx context.Context, attempt *models.BookingAttempt, snap models.TerminationSnapshot) {
	if snap.Hold == nil {
		return
	}

	var domain models.Domain
	attempt.View(func(a *models.BookingAttempt) {
		domain = a.Intent.Domain
	})
	if adapter, err := s.registry.ForDomain(domain); err == nil {
		adapter.Release(ctx, snap.Hold)
	}
	s.compensateCapture(ctx, attempt.AttemptID, snap.Hold.HoldID)
}

func (s *OrchestratorService) getAttempt(attemptID uuid.UUID) (*models.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, models.ErrAttemptNotFound
	}
	return attempt, nil
}

// bookingReference builds the short human-readable reference spoken back
// to the user, e.g. "RL-4F7K2Q".
func bookingReference(domain models.Domain) string {
	prefix := "BK"
	switch domain {
	case models.DomainRail:
		prefix = "RL"
	case models.DomainRoad:
		prefix = "RD"
	case models.DomainCinema:
		prefix = "CN"
	}
	return prefix + "-" + strings.ToUpper(shortuuid.New()[:6])
}

// buildResponse renders a consistent snapshot of the attempt for the
// response-generation collaborator.
func (s *OrchestratorService) buildResponse(attempt *models.BookingAttempt) *models.AttemptResponse {
	resp := &models.AttemptResponse{}

	attempt.View(func(a *models.BookingAttempt) {
		resp.AttemptID = a.AttemptID
		resp.State = a.State
		resp.Reason = a.Reason
		resp.ExpiresAt = a.ExpiresAt
		resp.BookingID = a.BookingID
		resp.CommitPending = a.CommitPending
		resp.ConfirmationCode = a.ConfirmationCode

		if a.State == models.StateEntityCollection {
			resp.MissingSlots = a.Intent.MissingSlots()
		}
		if a.State == models.StateSelection {
			resp.Offers = lo.Map(a.Offers, func(offer models.Offer, _ int) models.OfferView {
				return models.OfferView{
					OfferID:     offer.OfferID,
					Description: offer.Description,
					Price:       offer.Price,
					Currency:    offer.Currency,
					DepartsAt:   offer.DepartsAt,
				}
			})
		}
		if a.SelectedOffer != nil {
			resp.SelectedOfferID = a.SelectedOffer.OfferID
		}
		if a.Hold != nil {
			expiresAt := a.Hold.ExpiresAt()
			resp.HoldExpiresAt = &expiresAt
		}
	})

	return resp
}
