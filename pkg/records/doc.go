// Package records holds the record queue that recognized classification
// records are published to, and the sinks behind it.
//
// MemoryQueue is the in-process FIFO consumed by downstream readers. When
// it holds its capacity, the oldest waiting record is dropped.
// SQLiteStore persists records to a SQLite database through either the
// mattn/go-sqlite3 ("sqlite3", cgo) or modernc.org/sqlite ("sqlite", pure Go)
// driver.
//
// Order is preserved per publisher: records enqueued by one goroutine are
// observed by consumers in that goroutine's order. Records from different
// publishers may interleave arbitrarily.
//
// Retention of persisted records is enforced by a Pruner, optionally run on
// a cron schedule by a Scheduler.
package records
