package pipe

import (
	"fmt"
	"sync"

	"github.com/polisai/conduit/pkg/domain"
)

// EnergyBuffer is the local energy store of one segment. It is the one piece of
// segment state that may be touched from outside the simulation goroutine.
type EnergyBuffer struct {
	mu       sync.Mutex
	amount   int64
	capacity int64
}

// NewEnergyBuffer creates an empty buffer.
func NewEnergyBuffer(capacity int64) *EnergyBuffer {
	return &EnergyBuffer{capacity: max(capacity, 0)}
}

// Amount returns the stored energy.
func (b *EnergyBuffer) Amount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.amount
}

// Capacity returns the maximum storable energy.
func (b *EnergyBuffer) Capacity() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// CanInsert reports whether the buffer has room.
func (b *EnergyBuffer) CanInsert() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.amount < b.capacity
}

// CanExtract reports whether the buffer holds anything.
func (b *EnergyBuffer) CanExtract() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.amount > 0
}

// Insert adds up to maxAmount and returns what was (or would be) accepted.
func (b *EnergyBuffer) Insert(maxAmount int64, simulate bool) int64 {
	if maxAmount <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	accepted := min(maxAmount, b.capacity-b.amount)
	if !simulate {
		b.amount += accepted
	}
	return accepted
}

// Extract removes up to maxAmount and returns what was (or would be) removed.
func (b *EnergyBuffer) Extract(maxAmount int64, simulate bool) int64 {
	if maxAmount <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	taken := min(maxAmount, b.amount)
	if !simulate {
		b.amount -= taken
	}
	return taken
}

// Set overwrites the stored amount, clamped to capacity. Used when restoring snapshots.
func (b *EnergyBuffer) Set(amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.amount = min(max(amount, 0), b.capacity)
}

// Begin opens a transaction against a snapshot of the current amount.
func (b *EnergyBuffer) Begin() *EnergyTxn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &EnergyTxn{buf: b, base: b.amount, capacity: b.capacity}
}

// EnergyTxn stages energy changes. Nothing reaches the buffer until Commit; Abort
// or RollbackTo restore earlier snapshots of the staged delta.
type EnergyTxn struct {
	buf       *EnergyBuffer
	base      int64
	capacity  int64
	delta     int64
	snapshots []int64
	closed    bool
}

// Insert stages an insertion of up to maxAmount.
func (t *EnergyTxn) Insert(maxAmount int64) (int64, error) {
	if t.closed {
		return 0, domain.ErrTxnClosed
	}
	if maxAmount <= 0 {
		return 0, nil
	}
	accepted := min(maxAmount, t.capacity-(t.base+t.delta))
	t.delta += accepted
	return accepted, nil
}

// Extract stages an extraction of up to maxAmount.
func (t *EnergyTxn) Extract(maxAmount int64) (int64, error) {
	if t.closed {
		return 0, domain.ErrTxnClosed
	}
	if maxAmount <= 0 {
		return 0, nil
	}
	taken := min(maxAmount, t.base+t.delta)
	t.delta -= taken
	return taken, nil
}

// Pending returns the staged change.
func (t *EnergyTxn) Pending() int64 { return t.delta }

// Savepoint snapshots the staged delta and returns its handle.
func (t *EnergyTxn) Savepoint() int {
	t.snapshots = append(t.snapshots, t.delta)
	return len(t.snapshots) - 1
}

// RollbackTo restores the delta captured by Savepoint and discards later savepoints.
func (t *EnergyTxn) RollbackTo(savepoint int) error {
	if t.closed {
		return domain.ErrTxnClosed
	}
	if savepoint < 0 || savepoint >= len(t.snapshots) {
		return fmt.Errorf("unknown savepoint %d", savepoint)
	}
	t.delta = t.snapshots[savepoint]
	t.snapshots = t.snapshots[:savepoint]
	return nil
}

// Commit applies the staged delta. It fails with ErrEnergyConflict when the buffer
// moved since Begin and the delta no longer fits.
func (t *EnergyTxn) Commit() error {
	if t.closed {
		return domain.ErrTxnClosed
	}
	t.closed = true
	if t.delta == 0 {
		return nil
	}

	b := t.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.amount + t.delta
	if next < 0 || next > b.capacity {
		return fmt.Errorf("%w: have %d, delta %d", domain.ErrEnergyConflict, b.amount, t.delta)
	}
	b.amount = next
	return nil
}

// Abort drops the staged delta.
func (t *EnergyTxn) Abort() {
	t.closed = true
	t.delta = 0
	t.snapshots = nil
}
