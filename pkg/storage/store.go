// Package storage persists encoded network snapshots.
// It keeps one record per tick with support for latest-first lookup and pruning.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/polisai/conduit/pkg/domain"
)

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Record is one persisted snapshot.
type Record struct {
	Network   string
	Tick      uint64
	Data      []byte
	CreatedAt time.Time
}

// SnapshotStore exposes persistence operations for snapshots. Saving a record for
// a tick that already exists replaces it.
type SnapshotStore interface {
	Save(ctx context.Context, rec Record) error
	Latest(ctx context.Context, network string) (Record, error)
	Get(ctx context.Context, network string, tick uint64) (Record, error)
	List(ctx context.Context, network string) ([]uint64, error)
	Prune(ctx context.Context, network string, keep int) error
	Close() error
}

// Open returns the store for driver. The path is ignored by the memory driver.
func Open(driver, path string) (SnapshotStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		store, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrConfigInvalid, driver)
	}
}

func validate(rec Record) error {
	if strings.TrimSpace(rec.Network) == "" {
		return fmt.Errorf("network name is required")
	}
	if len(rec.Data) == 0 {
		return fmt.Errorf("snapshot data is required")
	}
	return nil
}

func notFound(network string, tick uint64) error {
	return fmt.Errorf("%w: %s@%d", domain.ErrSnapshotNotFound, network, tick)
}
