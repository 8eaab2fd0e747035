package records

import (
	"fmt"

	"logbook-hq/relay/pkg/config"
)

// Open creates the store selected by cfg.Backend.
func Open(cfg config.RecordsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewBoundedMemoryQueue(cfg.Memory.MaxRecords), nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, NewStorageError(cfg.Backend, "open", fmt.Errorf("unsupported backend %q", cfg.Backend))
	}
}
