package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SweeperService enforces the overall attempt deadline in the background.
// An attempt the user walked away from mid-flow is abandoned here, which
// releases its hold and voids any outstanding authorization through the
// orchestrator's normal termination path.
type SweeperService struct {
	orchestrator *OrchestratorService
	interval     time.Duration
	logger       *logrus.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeperService creates the sweeper
func NewSweeperService(orchestrator *OrchestratorService, interval time.Duration, logger *logrus.Logger) *SweeperService {
	return &SweeperService{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *SweeperService) Start() {
	s.logger.WithField("interval", s.interval).Info("Starting attempt sweeper")
	go s.run()
}

// Stop stops the background sweep loop
func (s *SweeperService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *SweeperService) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			s.logger.Info("Attempt sweeper stopped")
			return
		}
	}
}

// Sweep runs one pass. Exposed for tests and the maintenance job.
func (s *SweeperService) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if abandoned := s.orchestrator.AbandonExpired(ctx); abandoned > 0 {
		s.logger.WithField("count", abandoned).Info("Swept expired booking attempts")
	}
}
