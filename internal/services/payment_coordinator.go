package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/pkg/payment"
)

// PaymentCoordinator drives authorize → capture → void against the gateway
// and keeps a transaction record per idempotency key. Keys are derived
// deterministically from the attempt and hold, so a retried submission
// replays the prior outcome instead of charging twice.
//
// A declined charge is permanent and never retried. A gateway timeout is
// ambiguous; the coordinator retries with exponential backoff under the
// same key, relying on gateway-side deduplication.
type PaymentCoordinator struct {
	gateway  payment.Gateway
	config   config.OrchestratorConfig
	currency string
	logger   *logrus.Logger

	mu           sync.Mutex
	transactions map[string]*models.PaymentTransaction // idempotency key → txn
}

// NewPaymentCoordinator creates a coordinator over the given gateway
func NewPaymentCoordinator(gateway payment.Gateway, cfg config.OrchestratorConfig, currency string, logger *logrus.Logger) *PaymentCoordinator {
	return &PaymentCoordinator{
		gateway:      gateway,
		config:       cfg,
		currency:     currency,
		logger:       logger,
		transactions: make(map[string]*models.PaymentTransaction),
	}
}

// ============================================================================
// AUTHORIZE / CAPTURE
// ============================================================================

// Authorize places a hold on the payer's funds for the attempt. Replay-safe:
// a second call with the same attempt/hold pair returns the recorded
// transaction without touching the gateway again once it has succeeded.
func (c *PaymentCoordinator) Authorize(ctx context.Context, attemptID, holdID uuid.UUID, amount float64) (*models.PaymentTransaction, error) {
	key := models.PaymentIdempotencyKey(attemptID, holdID)

	c.mu.Lock()
	if txn, ok := c.transactions[key]; ok && txn.Status != models.PaymentStatusPending && txn.Status != models.PaymentStatusFailed {
		snapshot := *txn
		c.mu.Unlock()
		return &snapshot, nil
	}
	txn := &models.PaymentTransaction{
		AttemptID:      attemptID,
		Amount:         amount,
		Currency:       c.currency,
		IdempotencyKey: key,
		Status:         models.PaymentStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	c.transactions[key] = txn
	c.mu.Unlock()

	charge, err := c.callWithRetry(ctx, key, "authorize", func() (*payment.Charge, error) {
		return c.gateway.Authorize(ctx, key, amount, c.currency)
	})
	if err != nil {
		c.setStatus(key, models.PaymentStatusFailed, "")
		return nil, err
	}

	return c.setStatus(key, models.PaymentStatusAuthorized, charge.AuthorizationRef), nil
}

// Capture settles the authorized funds for the attempt/hold pair
func (c *PaymentCoordinator) Capture(ctx context.Context, attemptID, holdID uuid.UUID) (*models.PaymentTransaction, error) {
	key := models.PaymentIdempotencyKey(attemptID, holdID)

	c.mu.Lock()
	txn, ok := c.transactions[key]
	if !ok {
		c.mu.Unlock()
		return nil, models.ErrPaymentNotFound
	}
	if txn.Status == models.PaymentStatusCaptured {
		snapshot := *txn
		c.mu.Unlock()
		return &snapshot, nil
	}
	c.mu.Unlock()

	charge, err := c.callWithRetry(ctx, key, "capture", func() (*payment.Charge, error) {
		return c.gateway.Capture(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	ref := charge.CaptureRef
	if ref == "" {
		ref = charge.AuthorizationRef
	}
	return c.setStatus(key, models.PaymentStatusCaptured, ref), nil
}

// ============================================================================
// VOID (compensation)
// ============================================================================

// Void cancels the authorization for the attempt/hold pair, or refunds it if
// already captured. Called on the compensation path when confirmation fails
// after capture, and on abandonment when an authorization is outstanding.
// Idempotent; voiding an absent or already-voided transaction is a no-op.
func (c *PaymentCoordinator) Void(ctx context.Context, attemptID, holdID uuid.UUID) error {
	key := models.PaymentIdempotencyKey(attemptID, holdID)

	c.mu.Lock()
	txn, ok := c.transactions[key]
	if !ok || txn.Status == models.PaymentStatusVoided || txn.Status == models.PaymentStatusRefunded ||
		txn.Status == models.PaymentStatusPending || txn.Status == models.PaymentStatusFailed {
		c.mu.Unlock()
		return nil
	}
	wasCaptured := txn.Status == models.PaymentStatusCaptured
	c.mu.Unlock()

	_, err := c.callWithRetry(ctx, key, "void", func() (*payment.Charge, error) {
		return nil, c.gateway.Void(ctx, key)
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"attempt_id": attemptID,
			"captured":   wasCaptured,
		}).Error("Payment void failed; funds may need manual reconciliation")
		return err
	}

	status := models.PaymentStatusVoided
	if wasCaptured {
		status = models.PaymentStatusRefunded
	}
	c.setStatus(key, status, "")

	c.logger.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"status":     status,
	}).Info("Payment voided")
	return nil
}

// TransactionFor returns the recorded transaction for an attempt/hold pair
func (c *PaymentCoordinator) TransactionFor(attemptID, holdID uuid.UUID) (*models.PaymentTransaction, bool) {
	key := models.PaymentIdempotencyKey(attemptID, holdID)

	c.mu.Lock()
	defer c.mu.Unlock()
	txn, ok := c.transactions[key]
	if !ok {
		return nil, false
	}
	snapshot := *txn
	return &snapshot, true
}

// ============================================================================
// HELPERS
// ============================================================================

// callWithRetry runs a gateway call, retrying timeouts with exponential
// backoff under the same idempotency key. Declines are never retried.
func (c *PaymentCoordinator) callWithRetry(ctx context.Context, key, op string, call func() (*payment.Charge, error)) (*payment.Charge, error) {
	backoff := c.config.RetryBase

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, models.ErrGatewayTimeout
			}
			backoff *= time.Duration(c.config.RetryFactor)
		}

		charge, err := call()
		if err == nil {
			return charge, nil
		}

		if errors.Is(err, payment.ErrDeclined) {
			return nil, models.ErrPaymentDeclined
		}
		if !errors.Is(err, payment.ErrTimeout) {
			return nil, err
		}

		lastErr = err
		c.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"backoff": backoff,
		}).Warn("Payment gateway timeout, will retry with same idempotency key")
	}

	c.logger.WithError(lastErr).WithField("op", op).Error("Payment gateway retries exhausted")
	return nil, models.ErrGatewayTimeout
}

func (c *PaymentCoordinator) setStatus(key string, status models.PaymentStatus, ref string) *models.PaymentTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	txn, ok := c.transactions[key]
	if !ok {
		return nil
	}
	txn.Status = status
	txn.UpdatedAt = time.Now()
	if ref != "" {
		txn.PaymentRef = ref
	}
	snapshot := *txn
	return &snapshot
}
