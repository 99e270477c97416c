package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/polisai/conduit/pkg/domain"
)

// MemoryStore is an in-memory implementation of SnapshotStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[uint64]Record
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[uint64]Record),
	}
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(rec); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Data = slices.Clone(rec.Data)

	s.mu.Lock()
	defer s.mu.Unlock()

	byTick, ok := s.records[rec.Network]
	if !ok {
		byTick = make(map[uint64]Record)
		s.records[rec.Network] = byTick
	}
	byTick[rec.Tick] = rec
	return nil
}

// Latest returns the record with the highest tick.
func (s *MemoryStore) Latest(ctx context.Context, network string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks := s.ticksLocked(network)
	if len(ticks) == 0 {
		return Record{}, fmt.Errorf("%w: no snapshot for %s", domain.ErrSnapshotNotFound, network)
	}
	return s.copyOf(network, ticks[len(ticks)-1]), nil
}

// Get retrieves the record of one tick.
func (s *MemoryStore) Get(ctx context.Context, network string, tick uint64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[network][tick]; !ok {
		return Record{}, notFound(network, tick)
	}
	return s.copyOf(network, tick), nil
}

// List returns the stored ticks in ascending order.
func (s *MemoryStore) List(ctx context.Context, network string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticksLocked(network), nil
}

// Prune keeps only the keep most recent records.
func (s *MemoryStore) Prune(ctx context.Context, network string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ticks := s.ticksLocked(network)
	for len(ticks) > max(keep, 0) {
		delete(s.records[network], ticks[0])
		ticks = ticks[1:]
	}
	return nil
}

// Close is a no-op for memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) ticksLocked(network string) []uint64 {
	ticks := make([]uint64, 0, len(s.records[network]))
	for tick := range s.records[network] {
		ticks = append(ticks, tick)
	}
	slices.Sort(ticks)
	return ticks
}

func (s *MemoryStore) copyOf(network string, tick uint64) Record {
	rec := s.records[network][tick]
	rec.Data = slices.Clone(rec.Data)
	return rec
}
