package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voicetransit/booking-backend/internal/models"
	"github.com/voicetransit/booking-backend/internal/services"
)

// AttemptHandler handles booking attempt endpoints. The callers are the
// dialogue collaborators, not end users: requests carry structured intents
// and slot maps, responses carry structured state for response generation.
type AttemptHandler struct {
	orchestrator *services.OrchestratorService
	logger       *logrus.Logger
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(orchestrator *services.OrchestratorService, logger *logrus.Logger) *AttemptHandler {
	return &AttemptHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ============================================================================
// SUBMIT INTENT - POST /api/v1/attempts
// ============================================================================

// SubmitIntent starts a booking attempt from a structured intent
// @Summary Start a booking attempt
// @Description Starts an attempt from an NLU intent; idempotent per client idempotency key
// @Tags Booking Attempts
// @Accept json
// @Produce json
// @Param request body models.SubmitIntentRequest true "Booking intent"
// @Success 201 {object} models.AttemptResponse
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Router /attempts [post]
func (h *AttemptHandler) SubmitIntent(c *gin.Context) {
	var req models.SubmitIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.orchestrator.SubmitIntent(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ============================================================================
// PROVIDE SLOTS - POST /api/v1/attempts/:attempt_id/slots
// ============================================================================

// ProvideSlots supplies slot values collected by a clarification turn
// @Summary Provide missing intent slots
// @Tags Booking Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body models.ProvideSlotsRequest true "Slot values"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} map[string]interface{} "Attempt not found"
// @Failure 409 {object} map[string]interface{} "Attempt not collecting slots"
// @Router /attempts/{attempt_id}/slots [post]
func (h *AttemptHandler) ProvideSlots(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	var req models.ProvideSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.orchestrator.ProvideSlots(c.Request.Context(), attemptID, req.Slots)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// SELECT OFFER - POST /api/v1/attempts/:attempt_id/select
// ============================================================================

// SelectOffer picks one of the presented offers and acquires a hold
// @Summary Select an offer
// @Tags Booking Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body models.SelectOfferRequest true "Offer selection"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} map[string]interface{} "Attempt not found"
// @Failure 409 {object} map[string]interface{} "Attempt not in selection"
// @Router /attempts/{attempt_id}/select [post]
func (h *AttemptHandler) SelectOffer(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	var req models.SelectOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.orchestrator.SelectOffer(c.Request.Context(), attemptID, req.OfferID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// SUBMIT PAYMENT - POST /api/v1/attempts/:attempt_id/pay
// ============================================================================

// SubmitPayment drives the payment phase of an attempt
// @Summary Pay for the held offer
// @Tags Booking Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body models.SubmitPaymentRequest true "Payment method"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} map[string]interface{} "Attempt not found"
// @Failure 409 {object} map[string]interface{} "Attempt not awaiting payment"
// @Router /attempts/{attempt_id}/pay [post]
func (h *AttemptHandler) SubmitPayment(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	var req models.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.orchestrator.SubmitPayment(c.Request.Context(), attemptID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// CANCEL - POST /api/v1/attempts/:attempt_id/cancel
// ============================================================================

// Cancel abandons the attempt at the user's request
// @Summary Cancel a booking attempt
// @Tags Booking Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} map[string]interface{} "Attempt not found"
// @Router /attempts/{attempt_id}/cancel [post]
func (h *AttemptHandler) Cancel(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	response, err := h.orchestrator.Cancel(c.Request.Context(), attemptID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// GET ATTEMPT - GET /api/v1/attempts/:attempt_id
// ============================================================================

// GetAttempt returns the current state of an attempt
// @Summary Get attempt state
// @Tags Booking Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} map[string]interface{} "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	response, err := h.orchestrator.GetAttempt(attemptID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// GET BOOKING - GET /api/v1/bookings/:booking_id
// ============================================================================

// GetBooking returns a committed booking
// @Summary Get a committed booking
// @Tags Bookings
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.BookingResponse
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{booking_id} [get]
func (h *AttemptHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	response, err := h.orchestrator.GetBooking(bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *AttemptHandler) attemptID(c *gin.Context) (uuid.UUID, bool) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt id"})
		return uuid.Nil, false
	}
	return attemptID, true
}

// respondError maps the error taxonomy onto HTTP statuses
func (h *AttemptHandler) respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         validationErr.Message,
			"missing_slots": validationErr.MissingSlots,
		})
		return
	}

	var rateLimited *models.RateLimitedError
	if errors.As(err, &rateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "provider rate limited",
			"retry_after": rateLimited.RetryAfter,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrAttemptNotFound), errors.Is(err, models.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAttemptFinished), errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProviderUnavailable), errors.Is(err, models.ErrProviderTimeout):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Unhandled error in attempt handler")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
