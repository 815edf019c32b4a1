package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the pipeline on a cron schedule. Only one run is in
// flight at a time; a tick that fires mid-run is skipped.
type Scheduler struct {
	cron    *cron.Cron
	orch    *Orchestrator
	logger  *zap.Logger
	running atomic.Bool
}

// NewScheduler wraps an orchestrator with cron-driven execution.
func NewScheduler(orch *Orchestrator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		orch:   orch,
		logger: logger,
	}
}

// Start registers the schedule and starts the cron loop. An invalid
// cron expression fails fast so a misconfigured deployment never sits
// idle.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Warn("Previous pipeline run still in progress; skipping tick")
			return
		}
		defer s.running.Store(false)

		report := s.orch.Run(context.Background())
		if report.Status == StatusFailed {
			s.logger.Error("Scheduled pipeline run failed",
				zap.String("run_id", report.ID.String()),
				zap.String("error", report.Error),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Pipeline scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the cron loop and waits for an in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Pipeline scheduler stopped")
}
