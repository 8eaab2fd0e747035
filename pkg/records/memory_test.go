package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/config"
)

func newRecord(id string, kind classify.Kind, capturedAt time.Time) *classify.Record {
	return &classify.Record{
		ID:         id,
		ExchangeID: "ex-" + id,
		Kind:       kind,
		Host:       "api.example",
		URI:        "/kcsapi/" + string(kind),
		CapturedAt: capturedAt,
		Payload:    []byte(`{"id":"` + id + `"}`),
	}
}

func TestMemoryQueue_FIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, newRecord(fmt.Sprint(i), "PORT", time.Now())); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if q.Len() != 5 || q.Total() != 5 {
		t.Fatalf("Len, Total = %d, %d; want 5, 5", q.Len(), q.Total())
	}

	for i := 0; i < 5; i++ {
		rec, err := q.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if rec.ID != fmt.Sprint(i) {
			t.Errorf("Next() = %s, want %d", rec.ID, i)
		}
	}
	if _, ok := q.TryNext(); ok {
		t.Error("TryNext on an empty queue must report false")
	}
}

func TestMemoryQueue_PerPublisherOrder(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	const publishers, perPublisher = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				_ = q.Enqueue(ctx, &classify.Record{ID: fmt.Sprintf("%d/%d", p, i), Host: fmt.Sprint(p)})
			}
		}(p)
	}
	wg.Wait()

	last := make(map[string]int)
	for q.Len() > 0 {
		rec, _ := q.TryNext()
		var p, i int
		fmt.Sscanf(rec.ID, "%d/%d", &p, &i)
		if prev, ok := last[rec.Host]; ok && i <= prev {
			t.Fatalf("publisher %s out of order: %d after %d", rec.Host, i, prev)
		}
		last[rec.Host] = i
	}
	if len(last) != publishers {
		t.Errorf("saw %d publishers, want %d", len(last), publishers)
	}
}

func TestMemoryQueue_NextBlocks(t *testing.T) {
	q := NewMemoryQueue()

	got := make(chan *classify.Record, 1)
	go func() {
		rec, err := q.Next(context.Background())
		if err == nil {
			got <- rec
		}
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Enqueue(context.Background(), newRecord("late", "PORT", time.Now()))

	select {
	case rec := <-got:
		if rec.ID != "late" {
			t.Errorf("Next() = %s, want late", rec.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not wake up on Enqueue")
	}
}

func TestMemoryQueue_NextContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want DeadlineExceeded", err)
	}
}

func TestMemoryQueue_Close(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	_ = q.Enqueue(ctx, newRecord("a", "PORT", time.Now()))

	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.Enqueue(ctx, newRecord("b", "PORT", time.Now())); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after Close error = %v, want ErrQueueClosed", err)
	}

	if rec, err := q.Next(ctx); err != nil || rec.ID != "a" {
		t.Errorf("Next() = %v, %v; want a", rec, err)
	}
	if _, err := q.Next(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Next on drained closed queue error = %v, want ErrQueueClosed", err)
	}
}

func TestMemoryQueue_ListAndPrune(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 6; i++ {
		kind := classify.Kind("PORT")
		if i%2 == 1 {
			kind = "SHIP"
		}
		_ = q.Enqueue(ctx, newRecord(fmt.Sprint(i), kind, base.Add(time.Duration(i)*time.Minute)))
	}

	ships, _ := q.List(ctx, Filter{Kind: "SHIP"})
	if len(ships) != 3 {
		t.Errorf("List(SHIP) = %d records, want 3", len(ships))
	}
	limited, _ := q.List(ctx, Filter{Limit: 2})
	if len(limited) != 2 || limited[0].ID != "0" {
		t.Errorf("List(Limit 2) = %v", limited)
	}

	deleted, err := q.Prune(ctx, base.Add(2*time.Minute), 0)
	if err != nil || deleted != 2 {
		t.Fatalf("Prune(age) = %d, %v; want 2", deleted, err)
	}
	deleted, _ = q.Prune(ctx, time.Time{}, 3)
	if deleted != 1 {
		t.Errorf("Prune(count) = %d, want 1", deleted)
	}

	remaining, _ := q.List(ctx, Filter{})
	if len(remaining) != 3 || remaining[0].ID != "3" {
		t.Errorf("remaining = %v, want records 3..5", remaining)
	}
}

func TestBoundedMemoryQueue_DropsOldest(t *testing.T) {
	q := NewBoundedMemoryQueue(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(ctx, newRecord(fmt.Sprint(i), "PORT", time.Now())); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	if q.Len() != 3 || q.Total() != 5 || q.Dropped() != 2 {
		t.Errorf("len = %d, total = %d, dropped = %d; want 3, 5, 2", q.Len(), q.Total(), q.Dropped())
	}
	for _, want := range []string{"3", "4", "5"} {
		rec, ok := q.TryNext()
		if !ok || rec.ID != want {
			t.Fatalf("TryNext() = %v, %v; want record %s", rec, ok, want)
		}
	}
}

func TestOpen_MemoryBackendIsBounded(t *testing.T) {
	cfg := config.Default().Records
	cfg.Memory.MaxRecords = 2

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = store.Enqueue(ctx, newRecord(fmt.Sprint(i), "PORT", time.Now()))
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
