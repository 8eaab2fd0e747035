package records

import (
	"context"
	"fmt"
	"testing"
	"time"

	"logbook-hq/relay/pkg/config"
)

func TestPruner_Prune(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = q.Enqueue(ctx, newRecord(fmt.Sprint(i), "PORT", now.Add(-time.Duration(5-i)*time.Hour)))
	}

	p := NewPruner(q, config.RetentionConfig{MaxAge: 150 * time.Minute, MaxRecords: 1})
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 4 {
		t.Errorf("Prune() deleted %d, want 4", deleted)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestPruner_Disabled(t *testing.T) {
	q := NewMemoryQueue()
	_ = q.Enqueue(context.Background(), newRecord("a", "PORT", time.Unix(0, 0)))

	p := NewPruner(q, config.RetentionConfig{})
	if p.Enabled() {
		t.Fatal("empty policy must be disabled")
	}
	if deleted, _ := p.Prune(context.Background()); deleted != 0 || q.Len() != 1 {
		t.Errorf("disabled pruner deleted %d records", deleted)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	p := NewPruner(NewMemoryQueue(), config.RetentionConfig{MaxRecords: 10})
	s := NewScheduler(p, "0 * * * *")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}
	if next := s.NextRun(); next == nil || next.Minute() != 0 {
		t.Errorf("NextRun() = %v, want top of the hour", next)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
}

func TestScheduler_Skipped(t *testing.T) {
	s := NewScheduler(NewPruner(NewMemoryQueue(), config.RetentionConfig{}), "0 * * * *")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("disabled policy must not start the scheduler")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(NewPruner(NewMemoryQueue(), config.RetentionConfig{MaxRecords: 1}), "not a cron")
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
