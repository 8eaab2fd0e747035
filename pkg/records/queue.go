package records

import (
	"context"
	"time"

	"logbook-hq/relay/pkg/classify"
)

// Queue accepts published records. Implementations must be safe for
// concurrent use by any number of publishers.
type Queue interface {
	Enqueue(ctx context.Context, rec *classify.Record) error
}

// Filter selects stored records.
type Filter struct {
	Kind  classify.Kind // Empty matches every kind
	Host  string        // Empty matches every host
	Since time.Time     // Zero matches every capture time
	Limit int           // Zero or less returns every match
}

// Matches reports whether rec satisfies every set field of f except Limit.
func (f Filter) Matches(rec *classify.Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Host != "" && rec.Host != f.Host {
		return false
	}
	if !f.Since.IsZero() && rec.CapturedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store is a queue whose records can be listed and pruned.
type Store interface {
	Queue
	List(ctx context.Context, f Filter) ([]*classify.Record, error)
	Count(ctx context.Context) (int64, error)
	Prune(ctx context.Context, olderThan time.Time, maxRecords int64) (int64, error)
	Close() error
}
