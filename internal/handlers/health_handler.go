package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voicetransit/booking-backend/internal/database"
	"github.com/voicetransit/booking-backend/internal/provider"
)

// HealthHandler reports service liveness plus the position of each
// provider circuit breaker, which is what operators actually look at when
// bookings start failing.
type HealthHandler struct {
	db       database.DB
	registry *provider.Registry
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db database.DB, registry *provider.Registry) *HealthHandler {
	return &HealthHandler{
		db:       db,
		registry: registry,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	if err := h.db.Ping(); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "down"
	}

	breakers := gin.H{}
	for _, adapter := range h.registry.All() {
		breakers[string(adapter.Domain())] = adapter.BreakerState()
	}

	c.JSON(status, gin.H{
		"status":   dbStatus,
		"breakers": breakers,
	})
}
