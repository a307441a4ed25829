package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/pkg/payment"
)

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		OverallTimeout: 5 * time.Minute,
		SweepInterval:  30 * time.Second,
		RetryBase:      time.Millisecond,
		RetryFactor:    2,
		MaxRetries:     3,
		MaxReSearches:  2,
	}
}

func newTestCoordinator(gateway payment.Gateway) *PaymentCoordinator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewPaymentCoordinator(gateway, testOrchestratorConfig(), "LKR", logger)
}

func TestAuthorizeAndCapture(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	txn, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAuthorized, txn.Status)
	assert.Equal(t, 1200.0, txn.Amount)
	assert.Equal(t, "LKR", txn.Currency)

	txn, err = coordinator.Capture(context.Background(), attemptID, holdID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, txn.Status)
	assert.NotEmpty(t, txn.PaymentRef)
}

func TestAuthorize_Replay(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	first, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	require.NoError(t, err)

	// Same attempt/hold pair replays; no second charge
	second, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentRef, second.PaymentRef)

	key := models.PaymentIdempotencyKey(attemptID, holdID)
	charge, ok := gateway.ChargeFor(key)
	require.True(t, ok)
	assert.Equal(t, 1200.0, charge.Amount)
}

func TestCapture_DoubleCaptureChargesOnce(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	_, err := coordinator.Authorize(context.Background(), attemptID, holdID, 800)
	require.NoError(t, err)

	first, err := coordinator.Capture(context.Background(), attemptID, holdID)
	require.NoError(t, err)

	second, err := coordinator.Capture(context.Background(), attemptID, holdID)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentRef, second.PaymentRef)

	key := models.PaymentIdempotencyKey(attemptID, holdID)
	charge, ok := gateway.ChargeFor(key)
	require.True(t, ok)
	assert.True(t, charge.Captured)
}

func TestAuthorize_DeclinedNotRetried(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	key := models.PaymentIdempotencyKey(attemptID, holdID)
	gateway.DeclineNext(key)

	_, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)

	_, ok := gateway.ChargeFor(key)
	assert.False(t, ok)
}

func TestAuthorize_TimeoutRetriedWithSameKey(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	key := models.PaymentIdempotencyKey(attemptID, holdID)
	gateway.TimeoutNext(key, 2)

	txn, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAuthorized, txn.Status)
}

func TestAuthorize_TimeoutExhausted(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	key := models.PaymentIdempotencyKey(attemptID, holdID)
	gateway.TimeoutNext(key, 10)

	_, err := coordinator.Authorize(context.Background(), attemptID, holdID, 1200)
	assert.ErrorIs(t, err, models.ErrGatewayTimeout)
}

func TestCapture_WithoutAuthorize(t *testing.T) {
	coordinator := newTestCoordinator(payment.NewDevGateway())

	_, err := coordinator.Capture(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
}

func TestVoid(t *testing.T) {
	gateway := payment.NewDevGateway()
	coordinator := newTestCoordinator(gateway)
	attemptID, holdID := uuid.New(), uuid.New()

	t.Run("No Transaction Is Noop", func(t *testing.T) {
		assert.NoError(t, coordinator.Void(context.Background(), uuid.New(), uuid.New()))
	})

	t.Run("Voids Authorization", func(t *testing.T) {
		_, err := coordinator.Authorize(context.Background(), attemptID, holdID, 500)
		require.NoError(t, err)

		require.NoError(t, coordinator.Void(context.Background(), attemptID, holdID))

		txn, ok := coordinator.TransactionFor(attemptID, holdID)
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusVoided, txn.Status)
	})

	t.Run("Refunds Capture", func(t *testing.T) {
		attemptID, holdID := uuid.New(), uuid.New()
		_, err := coordinator.Authorize(context.Background(), attemptID, holdID, 500)
		require.NoError(t, err)
		_, err = coordinator.Capture(context.Background(), attemptID, holdID)
		require.NoError(t, err)

		require.NoError(t, coordinator.Void(context.Background(), attemptID, holdID))

		txn, ok := coordinator.TransactionFor(attemptID, holdID)
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusRefunded, txn.Status)

		key := models.PaymentIdempotencyKey(attemptID, holdID)
		charge, ok := gateway.ChargeFor(key)
		require.True(t, ok)
		assert.True(t, charge.Voided)
	})
}
