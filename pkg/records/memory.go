package records

import (
	"context"
	"sync"
	"time"

	"logbook-hq/relay/pkg/classify"
)

// MemoryQueue is an in-memory FIFO of records. Next removes records in
// enqueue order; it is the hand-off point to in-process consumers.
type MemoryQueue struct {
	mu       sync.Mutex
	records  []*classify.Record
	notify   chan struct{}
	closed   bool
	capacity int64
	total    int64
	dropped  int64
}

// NewMemoryQueue creates an empty, unbounded queue.
func NewMemoryQueue() *MemoryQueue {
	return NewBoundedMemoryQueue(0)
}

// NewBoundedMemoryQueue creates an empty queue holding at most capacity
// waiting records. Enqueue on a full queue drops the oldest waiting record.
// Zero or less means unbounded.
func NewBoundedMemoryQueue(capacity int64) *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}), capacity: capacity}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, rec *classify.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.capacity > 0 && int64(len(q.records)) >= q.capacity {
		q.records[0] = nil
		q.records = q.records[1:]
		q.dropped++
	}
	q.records = append(q.records, rec)
	q.total++

	// Wake every waiting consumer.
	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

// Next removes and returns the oldest record, blocking until one is
// available, the queue is closed and empty, or ctx is done.
func (q *MemoryQueue) Next(ctx context.Context) (*classify.Record, error) {
	for {
		q.mu.Lock()
		if len(q.records) > 0 {
			rec := q.records[0]
			q.records[0] = nil
			q.records = q.records[1:]
			q.mu.Unlock()
			return rec, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryNext removes and returns the oldest record without blocking.
func (q *MemoryQueue) TryNext() (*classify.Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return nil, false
	}
	rec := q.records[0]
	q.records[0] = nil
	q.records = q.records[1:]
	return rec, true
}

// Len returns the number of records waiting in the queue.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Total returns the number of records ever enqueued.
func (q *MemoryQueue) Total() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// Dropped returns the number of records evicted because the queue was
// full.
func (q *MemoryQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// List returns the waiting records that match f, oldest first, without
// removing them.
func (q *MemoryQueue) List(ctx context.Context, f Filter) ([]*classify.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*classify.Record
	for _, rec := range q.records {
		if !f.Matches(rec) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of waiting records.
func (q *MemoryQueue) Count(ctx context.Context) (int64, error) {
	return int64(q.Len()), nil
}

// Prune drops waiting records captured before olderThan, then the oldest
// records beyond maxRecords. Zero values disable either rule.
func (q *MemoryQueue) Prune(ctx context.Context, olderThan time.Time, maxRecords int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.records)
	kept := make([]*classify.Record, 0, before)
	for _, rec := range q.records {
		if !olderThan.IsZero() && rec.CapturedAt.Before(olderThan) {
			continue
		}
		kept = append(kept, rec)
	}
	if maxRecords > 0 && int64(len(kept)) > maxRecords {
		kept = append([]*classify.Record(nil), kept[int64(len(kept))-maxRecords:]...)
	}
	q.records = kept
	return int64(before - len(kept)), nil
}

// Close stops the queue accepting records. Waiting records can still be
// read; Next returns ErrQueueClosed once they are gone.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.notify)
		q.notify = make(chan struct{})
	}
	return nil
}
