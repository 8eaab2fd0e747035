package records

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"logbook-hq/relay/pkg/config"
)

// Pruner enforces a retention policy on a Store.
type Pruner struct {
	store  Store
	config config.RetentionConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewPruner creates a pruner for store.
func NewPruner(store Store, cfg config.RetentionConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "records.retention"),
	}
}

// Enabled reports whether the policy deletes anything at all.
func (p *Pruner) Enabled() bool {
	return p.config.MaxAge > 0 || p.config.MaxRecords > 0
}

// Prune deletes records older than MaxAge, then the oldest records beyond
// MaxRecords, and returns how many were deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if !p.Enabled() {
		return 0, nil
	}

	var cutoff time.Time
	if p.config.MaxAge > 0 {
		cutoff = p.now().Add(-p.config.MaxAge)
	}

	deleted, err := p.store.Prune(ctx, cutoff, p.config.MaxRecords)
	if err != nil {
		return deleted, fmt.Errorf("prune failed: %w", err)
	}

	if deleted == 0 {
		p.logger.Debug("no records pruned",
			"max_age", p.config.MaxAge,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("record pruning completed",
			"deleted_count", deleted,
			"max_age", p.config.MaxAge,
			"max_records", p.config.MaxRecords,
		)
	}
	return deleted, nil
}

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler running pruner on the standard cron
// expression schedule, e.g. "0 * * * *" for hourly.
func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "records.scheduler"),
	}
}

// Start schedules pruning until ctx is cancelled or Stop is called. It does
// nothing when the schedule is empty or the policy is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	if s.schedule == "" || !s.pruner.Enabled() {
		s.logger.Info("retention not configured, skipping scheduler")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runPruning(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.schedule,
		"max_age", s.pruner.config.MaxAge,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	s.logger.Debug("starting scheduled record pruning")
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil if none is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
