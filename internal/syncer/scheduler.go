package syncer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/commitlens/commitlens/pkg/logger"
)

// Scheduler fires full sync passes on a fixed interval. Overlapping runs
// are suppressed: a tick that lands while a pass is still going is dropped.
type Scheduler struct {
	orchestrator *Orchestrator
	cron         *cron.Cron
	running      atomic.Bool
}

func NewScheduler(o *Orchestrator) *Scheduler {
	return &Scheduler{orchestrator: o, cron: cron.New()}
}

// Start schedules a pass every intervalMinutes. A non-positive interval
// disables scheduling entirely.
func (s *Scheduler) Start(intervalMinutes int) error {
	if intervalMinutes <= 0 {
		logger.Info().Msg("Sync scheduler disabled")
		return nil
	}
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	s.cron.Start()
	logger.Infof("Sync scheduler started: every %d minutes", intervalMinutes)
	return nil
}

func (s *Scheduler) run() {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn().Msg("Sync pass still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if _, err := s.orchestrator.SyncAll(context.Background()); err != nil {
		logger.Errorf("Scheduled sync pass failed: %v", err)
	}
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
