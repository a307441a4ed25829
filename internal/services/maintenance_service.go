package services

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/ledger"
	"github.com/voicetransit/booking-backend/internal/provider"
)

// MaintenanceService manages scheduled background jobs
type MaintenanceService struct {
	cron         *cron.Cron
	orchestrator *OrchestratorService
	availCache   *cache.AvailabilityCache
	holdLedger   *ledger.HoldLedger
	registry     *provider.Registry
	logger       *logrus.Logger
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(
	orchestrator *OrchestratorService,
	availCache *cache.AvailabilityCache,
	holdLedger *ledger.HoldLedger,
	registry *provider.Registry,
	logger *logrus.Logger,
) *MaintenanceService {
	// Cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &MaintenanceService{
		cron:         c,
		orchestrator: orchestrator,
		availCache:   availCache,
		holdLedger:   holdLedger,
		registry:     registry,
		logger:       logger,
	}
}

// Start starts all maintenance jobs
func (s *MaintenanceService) Start() error {
	log.Println("Starting maintenance service...")

	// Job 1: Purge expired availability cache entries every minute
	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc("0 * * * * *", s.purgeCacheJob)
	if err != nil {
		return fmt.Errorf("failed to schedule cache purge job: %w", err)
	}
	log.Println("✓ Scheduled: Purge availability cache (every minute)")

	// Job 2: Log orchestration stats every 5 minutes
	_, err = s.cron.AddFunc("0 */5 * * * *", s.statsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule stats job: %w", err)
	}
	log.Println("✓ Scheduled: Orchestration stats (every 5 minutes)")

	s.cron.Start()
	log.Println("✓ Maintenance service started successfully")

	return nil
}

// Stop stops all maintenance jobs
func (s *MaintenanceService) Stop() {
	log.Println("Stopping maintenance service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✓ Maintenance service stopped")
}

// purgeCacheJob drops expired availability entries so memory does not grow
// with one entry per unique query forever.
func (s *MaintenanceService) purgeCacheJob() {
	purged := s.availCache.Purge()
	if purged > 0 {
		s.logger.WithField("count", purged).Debug("Purged expired availability cache entries")
	}
}

// statsJob logs a periodic snapshot of orchestration health
func (s *MaintenanceService) statsJob() {
	fields := logrus.Fields{
		"active_attempts": s.orchestrator.ActiveCount(),
		"active_holds":    s.holdLedger.ActiveCount(),
		"cache_entries":   s.availCache.Len(),
	}
	for _, adapter := range s.registry.All() {
		fields[fmt.Sprintf("breaker_%s", adapter.Domain())] = adapter.BreakerState()
	}
	s.logger.WithFields(fields).Info("Orchestration stats")
}
