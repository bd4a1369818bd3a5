package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/model"
)

// Refresher re-fetches a scenario and saves it.
type Refresher interface {
	Refresh(ctx context.Context, scenario string) (*model.Dataset, error)
}

// Notifier receives refresh failure reports. Optional.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Notifier  Notifier
	Scenarios []string
	Ctx       context.Context

	running sync.Mutex
}

// NewScheduler creates a new Scheduler. nt may be nil.
func NewScheduler(ctx context.Context, r Refresher, nt Notifier, scenarios []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Refresher: r,
		Notifier:  nt,
		Scenarios: scenarios,
		Ctx:       ctx,
	}
}

// RegisterAll registers the dataset refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("scenarios", len(s.Scenarios)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunRefreshNow refreshes every scenario immediately and returns the number
// that failed.
func (s *Scheduler) RunRefreshNow() int {
	return s.refresh()
}

func (s *Scheduler) refreshTask() {
	s.refresh()
}

func (s *Scheduler) refresh() int {
	// Overlapping cron firings collapse into the one already running.
	if !s.running.TryLock() {
		log.Warn().Msg("refresh already running, skipped")
		return 0
	}
	defer s.running.Unlock()

	log.Info().Msg("running dataset refresh")
	failed := 0
	for _, scenario := range s.Scenarios {
		if s.Ctx.Err() != nil {
			break
		}
		ds, err := s.Refresher.Refresh(s.Ctx, scenario)
		if err != nil {
			failed++
			log.Error().Err(err).Str("scenario", scenario).Msg("refresh scenario")
			s.trySend(fmt.Sprintf("❌ Dataset refresh failed for %s: %v", scenario, err))
			continue
		}
		log.Info().Str("scenario", scenario).Int("ticks", ds.Len()).Int("events", len(ds.Events)).Msg("scenario refreshed")
	}
	return failed
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
