package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/database"
	"github.com/voicetransit/booking-backend/internal/ledger"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/internal/provider"
	"github.com/voicetransit/booking-backend/pkg/payment"
)

type orchestratorFixture struct {
	orchestrator *OrchestratorService
	coordinator  *PaymentCoordinator
	upstream     *provider.StaticUpstream
	gateway      *payment.DevGateway
	holdLedger   *ledger.HoldLedger
	mock         sqlmock.Sqlmock
}

// fixtureHooks lets a test interpose on the gateway or the upstream, for
// exercising races between the payment flow and concurrent events.
type fixtureHooks struct {
	wrapGateway  func(payment.Gateway) payment.Gateway
	wrapUpstream func(provider.Upstream) provider.Upstream
}

func newOrchestratorFixture(t *testing.T, cfg config.OrchestratorConfig, holdTTL time.Duration) *orchestratorFixture {
	t.Helper()
	return newHookedOrchestratorFixture(t, cfg, holdTTL, fixtureHooks{})
}

func newHookedOrchestratorFixture(t *testing.T, cfg config.OrchestratorConfig, holdTTL time.Duration, hooks fixtureHooks) *orchestratorFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := database.NewBookingRepository(&database.PostgresDB{DB: sqlxDB})

	holdLedger := ledger.NewHoldLedger(time.Second, logger)
	availCache := cache.NewAvailabilityCache()

	upstream := provider.NewStaticUpstream(models.DomainRail, true, "RLY")
	now := time.Now()
	upstream.Seed(models.Offer{
		OfferID:      "IC402-1A",
		Description:  "IC-402 colombo → kandy intercity",
		Price:        1200,
		Currency:     "LKR",
		CapacityUnit: "IC402-COACH1-A",
		ProviderRef:  "IC402",
		DepartsAt:    now.Add(6 * time.Hour),
	})
	upstream.Seed(models.Offer{
		OfferID:      "IC402-2B",
		Description:  "IC-402 colombo → kandy intercity",
		Price:        950,
		Currency:     "LKR",
		CapacityUnit: "IC402-COACH2-B",
		ProviderRef:  "IC402",
		DepartsAt:    now.Add(6 * time.Hour),
	})

	var adapterUpstream provider.Upstream = upstream
	if hooks.wrapUpstream != nil {
		adapterUpstream = hooks.wrapUpstream(upstream)
	}

	adapter := provider.NewAdapter(models.DomainRail, adapterUpstream, availCache, holdLedger, provider.AdapterConfig{
		CacheTTL:         time.Minute,
		HoldTTL:          holdTTL,
		UpstreamTimeout:  time.Second,
		RatePerSecond:    1000,
		RateBurst:        1000,
		BreakerThreshold: 5,
		BreakerCoolDown:  time.Minute,
	}, logger)

	gateway := payment.NewDevGateway()
	var coordinatorGateway payment.Gateway = gateway
	if hooks.wrapGateway != nil {
		coordinatorGateway = hooks.wrapGateway(gateway)
	}

	coordinator := NewPaymentCoordinator(coordinatorGateway, cfg, "LKR", logger)
	orchestrator := NewOrchestratorService(provider.NewRegistry(adapter), coordinator, repo, cfg, logger)
	t.Cleanup(orchestrator.Stop)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		coordinator:  coordinator,
		upstream:     upstream,
		gateway:      gateway,
		holdLedger:   holdLedger,
		mock:         mock,
	}
}

// captureHookGateway runs a callback after every successful capture, so a
// test can inject a concurrent event into the post-capture window.
type captureHookGateway struct {
	payment.Gateway
	afterCapture func()
}

func (g *captureHookGateway) Capture(ctx context.Context, idempotencyKey string) (*payment.Charge, error) {
	charge, err := g.Gateway.Capture(ctx, idempotencyKey)
	if err == nil && g.afterCapture != nil {
		g.afterCapture()
	}
	return charge, err
}

// confirmHookUpstream interposes on Confirm: it can run a callback first
// and force a failure instead of delegating.
type confirmHookUpstream struct {
	provider.Upstream
	beforeConfirm func()
	confirmErr    error
}

func (u *confirmHookUpstream) Confirm(ctx context.Context, hold *models.Hold) (string, error) {
	if u.beforeConfirm != nil {
		u.beforeConfirm()
	}
	if u.confirmErr != nil {
		return "", u.confirmErr
	}
	return u.Upstream.Confirm(ctx, hold)
}

// advanceToPayment walks a fresh attempt to the payment state and returns
// its id and hold id.
func (f *orchestratorFixture) advanceToPayment(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
	require.NoError(t, err)
	require.Equal(t, models.StatePayment, resp.State)

	return resp.AttemptID, f.holdID(t, resp.AttemptID)
}

func railIntent() models.Intent {
	return models.Intent{
		Domain:      models.DomainRail,
		Origin:      "Colombo",
		Destination: "Kandy",
		WindowStart: time.Now().Add(time.Hour),
		PartySize:   1,
	}
}

func (f *orchestratorFixture) expectBookingInsert() {
	f.mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"committed_at"}).AddRow(time.Now()))
}

func (f *orchestratorFixture) holdID(t *testing.T, attemptID uuid.UUID) uuid.UUID {
	t.Helper()
	attempt, err := f.orchestrator.getAttempt(attemptID)
	require.NoError(t, err)

	var holdID uuid.UUID
	attempt.View(func(a *models.BookingAttempt) {
		require.NotNil(t, a.Hold)
		holdID = a.Hold.HoldID
	})
	return holdID
}

func TestFullBookingFlow(t *testing.T) {
	f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
	ctx := context.Background()

	// Intent in, offers out
	resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	assert.Equal(t, models.StateSelection, resp.State)
	require.Len(t, resp.Offers, 2)

	// Selection acquires a hold and moves to payment
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePayment, resp.State)
	assert.NotNil(t, resp.HoldExpiresAt)
	assert.Equal(t, 1, f.holdLedger.ActiveCount())

	// Payment captures, confirms upstream, stores the booking
	f.expectBookingInsert()
	resp, err = f.orchestrator.SubmitPayment(ctx, resp.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, resp.State)
	assert.NotNil(t, resp.BookingID)
	require.NotEmpty(t, resp.ConfirmationCode)
	assert.Equal(t, "RLY", resp.ConfirmationCode[:3])

	// The sold unit's ledger entry is released at confirmation
	assert.Equal(t, 0, f.holdLedger.ActiveCount())

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSubmitIntent(t *testing.T) {
	t.Run("Missing Slots Parks In Entity Collection", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		intent := railIntent()
		intent.Destination = ""

		resp, err := f.orchestrator.SubmitIntent(context.Background(), &models.SubmitIntentRequest{Intent: intent})
		require.NoError(t, err)
		assert.Equal(t, models.StateEntityCollection, resp.State)
		assert.Contains(t, resp.MissingSlots, "destination")

		// The clarification turn completes the intent
		resp, err = f.orchestrator.ProvideSlots(context.Background(), resp.AttemptID, map[string]string{"destination": "Kandy"})
		require.NoError(t, err)
		assert.Equal(t, models.StateSelection, resp.State)
		assert.NotEmpty(t, resp.Offers)
	})

	t.Run("Unknown Domain Rejected", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		intent := railIntent()
		intent.Domain = "airline"

		_, err := f.orchestrator.SubmitIntent(context.Background(), &models.SubmitIntentRequest{Intent: intent})
		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("Idempotency Key Replays", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		key := "turn-42"
		req := &models.SubmitIntentRequest{Intent: railIntent(), IdempotencyKey: &key}

		first, err := f.orchestrator.SubmitIntent(context.Background(), req)
		require.NoError(t, err)

		second, err := f.orchestrator.SubmitIntent(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.AttemptID, second.AttemptID)
	})

	t.Run("No Availability Fails Attempt", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		intent := railIntent()
		intent.Destination = "Matara"

		resp, err := f.orchestrator.SubmitIntent(context.Background(), &models.SubmitIntentRequest{Intent: intent})
		require.NoError(t, err)
		assert.Equal(t, models.StateFailed, resp.State)
		assert.Equal(t, models.ReasonNoAvailability, resp.Reason)
	})
}

func TestSelectOffer_SeatTakenReSearch(t *testing.T) {
	f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
	ctx := context.Background()

	// Another attempt already holds the first unit
	rival, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	rival, err = f.orchestrator.SelectOffer(ctx, rival.AttemptID, "IC402-1A")
	require.NoError(t, err)
	require.Equal(t, models.StatePayment, rival.State)

	resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	require.Equal(t, models.StateSelection, resp.State)

	// First loss triggers a bounded re-search, not a failure
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, "IC402-1A")
	require.NoError(t, err)
	assert.Equal(t, models.StateSelection, resp.State)
	assert.NotEmpty(t, resp.Offers)

	// Second loss still re-searches
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, "IC402-1A")
	require.NoError(t, err)
	assert.Equal(t, models.StateSelection, resp.State)

	// Past the bound the attempt fails rather than looping
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, "IC402-1A")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, resp.State)
	assert.Equal(t, models.ReasonNoAvailability, resp.Reason)

	// The rival's hold is untouched
	assert.Equal(t, 1, f.holdLedger.ActiveCount())
}

func TestSubmitPayment(t *testing.T) {
	t.Run("Declined Fails Without Retry", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		ctx := context.Background()

		resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
		require.NoError(t, err)
		resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
		require.NoError(t, err)

		key := models.PaymentIdempotencyKey(resp.AttemptID, f.holdID(t, resp.AttemptID))
		f.gateway.DeclineNext(key)

		resp, err = f.orchestrator.SubmitPayment(ctx, resp.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateFailed, resp.State)
		assert.Equal(t, models.ReasonPaymentDeclined, resp.Reason)

		// The failed attempt released its hold
		assert.Equal(t, 0, f.holdLedger.ActiveCount())
	})

	t.Run("Expired Hold Cannot Be Paid", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 5*time.Millisecond)
		ctx := context.Background()

		resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
		require.NoError(t, err)
		resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		resp, err = f.orchestrator.SubmitPayment(ctx, resp.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateFailed, resp.State)
		assert.Equal(t, models.ReasonHoldExpired, resp.Reason)
	})

	t.Run("Wrong State Rejected", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)

		resp, err := f.orchestrator.SubmitIntent(context.Background(), &models.SubmitIntentRequest{Intent: railIntent()})
		require.NoError(t, err)

		_, err = f.orchestrator.SubmitPayment(context.Background(), resp.AttemptID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("Store Failure Retried", func(t *testing.T) {
		f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
		ctx := context.Background()

		resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
		require.NoError(t, err)
		resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
		require.NoError(t, err)

		// First write fails, the retry lands
		f.mock.ExpectQuery(`INSERT INTO bookings`).WillReturnError(errors.New("connection reset"))
		f.expectBookingInsert()

		resp, err = f.orchestrator.SubmitPayment(ctx, resp.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateCompleted, resp.State)
		assert.NotNil(t, resp.BookingID)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Store Exhaustion Completes With Commit Pending", func(t *testing.T) {
		cfg := testOrchestratorConfig()
		cfg.MaxRetries = 0
		f := newOrchestratorFixture(t, cfg, 2*time.Minute)
		ctx := context.Background()
		attemptID, _ := f.advanceToPayment(t)

		// The only synchronous write fails; the insert is left to the
		// background writer
		f.mock.ExpectQuery(`INSERT INTO bookings`).WillReturnError(errors.New("connection reset"))

		resp, err := f.orchestrator.SubmitPayment(ctx, attemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateCompleted, resp.State)
		assert.Nil(t, resp.BookingID)
		assert.True(t, resp.CommitPending)
		assert.NotEmpty(t, resp.ConfirmationCode)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Request Replays Winner", func(t *testing.T) {
		hook := &captureHookGateway{}
		f := newHookedOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute, fixtureHooks{
			wrapGateway: func(g payment.Gateway) payment.Gateway {
				hook.Gateway = g
				return hook
			},
		})
		ctx := context.Background()
		attemptID, holdID := f.advanceToPayment(t)

		// A duplicate request for the same attempt finishes the booking
		// while this one sits between capture and its state transition
		hook.afterCapture = func() {
			attempt, err := f.orchestrator.getAttempt(attemptID)
			require.NoError(t, err)
			require.NoError(t, attempt.Transition(models.StatePayment, models.StateConfirmation, nil))
			require.NoError(t, attempt.Transition(models.StateConfirmation, models.StateCompleted, func(a *models.BookingAttempt) {
				a.ConfirmationCode = "RLY-WINNER"
			}))
		}

		resp, err := f.orchestrator.SubmitPayment(ctx, attemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateCompleted, resp.State)
		assert.Equal(t, "RLY-WINNER", resp.ConfirmationCode)

		// The winner's captured payment is untouched
		charge, ok := f.gateway.ChargeFor(models.PaymentIdempotencyKey(attemptID, holdID))
		require.True(t, ok)
		assert.True(t, charge.Captured)
		assert.False(t, charge.Voided)

		txn, ok := f.coordinator.TransactionFor(attemptID, holdID)
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusCaptured, txn.Status)
	})

	t.Run("Cancelled After Capture Refunds", func(t *testing.T) {
		hook := &captureHookGateway{}
		f := newHookedOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute, fixtureHooks{
			wrapGateway: func(g payment.Gateway) payment.Gateway {
				hook.Gateway = g
				return hook
			},
		})
		ctx := context.Background()
		attemptID, holdID := f.advanceToPayment(t)

		// The user cancels in the window between capture and confirmation
		hook.afterCapture = func() {
			_, err := f.orchestrator.Cancel(ctx, attemptID)
			require.NoError(t, err)
		}

		_, err := f.orchestrator.SubmitPayment(ctx, attemptID)
		assert.ErrorIs(t, err, models.ErrAttemptFinished)

		resp, err := f.orchestrator.GetAttempt(attemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAbandoned, resp.State)
		assert.Equal(t, 0, f.holdLedger.ActiveCount())

		// The captured funds went back
		charge, ok := f.gateway.ChargeFor(models.PaymentIdempotencyKey(attemptID, holdID))
		require.True(t, ok)
		assert.True(t, charge.Voided)

		txn, ok := f.coordinator.TransactionFor(attemptID, holdID)
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusRefunded, txn.Status)
	})

	t.Run("Confirm Failure Refunds Capture", func(t *testing.T) {
		hook := &confirmHookUpstream{confirmErr: errors.New("reservation api down")}
		f := newHookedOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute, fixtureHooks{
			wrapUpstream: func(u provider.Upstream) provider.Upstream {
				hook.Upstream = u
				return hook
			},
		})
		ctx := context.Background()
		attemptID, holdID := f.advanceToPayment(t)

		resp, err := f.orchestrator.SubmitPayment(ctx, attemptID)
		require.NoError(t, err)
		assert.Equal(t, models.StateFailed, resp.State)
		assert.Equal(t, models.ReasonConfirmFailed, resp.Reason)
		assert.Equal(t, 0, f.holdLedger.ActiveCount())

		// Money moved and came back
		charge, ok := f.gateway.ChargeFor(models.PaymentIdempotencyKey(attemptID, holdID))
		require.True(t, ok)
		assert.True(t, charge.Captured)
		assert.True(t, charge.Voided)

		txn, ok := f.coordinator.TransactionFor(attemptID, holdID)
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusRefunded, txn.Status)

		// Nothing was written to the booking store
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestCancel(t *testing.T) {
	f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)
	ctx := context.Background()

	resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
	require.NoError(t, err)
	require.Equal(t, 1, f.holdLedger.ActiveCount())

	resp, err = f.orchestrator.Cancel(ctx, resp.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAbandoned, resp.State)
	assert.Equal(t, models.ReasonUserCancelled, resp.Reason)
	assert.Equal(t, 0, f.holdLedger.ActiveCount())

	// Terminal attempts reject further events
	_, err = f.orchestrator.SubmitPayment(ctx, resp.AttemptID)
	assert.ErrorIs(t, err, models.ErrAttemptFinished)

	// Cancelling twice stays abandoned
	resp, err = f.orchestrator.Cancel(ctx, resp.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAbandoned, resp.State)
}

func TestCancel_RefusedDuringConfirmation(t *testing.T) {
	hook := &confirmHookUpstream{}
	f := newHookedOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute, fixtureHooks{
		wrapUpstream: func(u provider.Upstream) provider.Upstream {
			hook.Upstream = u
			return hook
		},
	})
	ctx := context.Background()
	attemptID, holdID := f.advanceToPayment(t)

	// A cancel landing mid-confirmation must not claw back a seat the
	// provider is about to finalize
	var cancelState models.AttemptState
	hook.beforeConfirm = func() {
		resp, err := f.orchestrator.Cancel(ctx, attemptID)
		require.NoError(t, err)
		cancelState = resp.State
	}

	f.expectBookingInsert()
	resp, err := f.orchestrator.SubmitPayment(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmation, cancelState)
	assert.Equal(t, models.StateCompleted, resp.State)
	assert.NotNil(t, resp.BookingID)

	// The completed booking keeps its payment
	charge, ok := f.gateway.ChargeFor(models.PaymentIdempotencyKey(attemptID, holdID))
	require.True(t, ok)
	assert.True(t, charge.Captured)
	assert.False(t, charge.Voided)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAbandonExpired(t *testing.T) {
	cfg := testOrchestratorConfig()
	cfg.OverallTimeout = 10 * time.Millisecond
	f := newOrchestratorFixture(t, cfg, 2*time.Minute)
	ctx := context.Background()

	resp, err := f.orchestrator.SubmitIntent(ctx, &models.SubmitIntentRequest{Intent: railIntent()})
	require.NoError(t, err)
	resp, err = f.orchestrator.SelectOffer(ctx, resp.AttemptID, resp.Offers[0].OfferID)
	require.NoError(t, err)
	require.Equal(t, 1, f.holdLedger.ActiveCount())

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, f.orchestrator.AbandonExpired(ctx))

	resp, err = f.orchestrator.GetAttempt(resp.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAbandoned, resp.State)
	assert.Equal(t, models.ReasonAttemptTimeout, resp.Reason)
	assert.Equal(t, 0, f.holdLedger.ActiveCount())

	// A second sweep finds nothing
	assert.Equal(t, 0, f.orchestrator.AbandonExpired(ctx))
}

func TestAbandonExpired_VoidsAuthorization(t *testing.T) {
	cfg := testOrchestratorConfig()
	cfg.OverallTimeout = 10 * time.Millisecond
	f := newOrchestratorFixture(t, cfg, 2*time.Minute)
	ctx := context.Background()

	attemptID, holdID := f.advanceToPayment(t)

	// Funds are authorized but the user walks away before capture
	_, err := f.coordinator.Authorize(ctx, attemptID, holdID, 1200)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, f.orchestrator.AbandonExpired(ctx))

	resp, err := f.orchestrator.GetAttempt(attemptID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAbandoned, resp.State)
	assert.Equal(t, 0, f.holdLedger.ActiveCount())

	txn, ok := f.coordinator.TransactionFor(attemptID, holdID)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusVoided, txn.Status)

	charge, ok := f.gateway.ChargeFor(models.PaymentIdempotencyKey(attemptID, holdID))
	require.True(t, ok)
	assert.True(t, charge.Voided)
}

func TestGetAttempt_NotFound(t *testing.T) {
	f := newOrchestratorFixture(t, testOrchestratorConfig(), 2*time.Minute)

	_, err := f.orchestrator.GetAttempt(uuid.New())
	assert.ErrorIs(t, err, models.ErrAttemptNotFound)
}
