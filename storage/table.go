// Package storage implements the inner/target table abstraction a window
// view writes to and fires from: an external collaborator in spec.md §1
// ("the storage engine"), here given one concrete in-memory
// implementation so the rest of the engine has something real to run
// against. Grounded on the teacher's dataset package's row-slice-plus-mutex
// shape, simplified since the spec's storage contract only needs
// read/write/alter, not the teacher's full dataset query surface.
package storage

import (
	"sort"
	"sync"

	"github.com/windowview/windowview/types"
)

// Table is the storage engine's seam: read, write, and predicate-based
// delete (used by the cleanup task to drop rows below the watermark's
// cleanup bound).
type Table interface {
	// Write appends rows to the table.
	Write(rows []types.Row) error

	// Read returns every row currently stored, in insertion order.
	Read() ([]types.Row, error)

	// Alter removes every row for which keep returns false.
	Alter(keep func(types.Row) bool) error

	// Len reports how many rows are currently stored.
	Len() int

	// ReadSortedByTimestamp returns every row sorted by Timestamp ascending,
	// so the fire pipeline's output rows come out in a stable, deterministic
	// order regardless of insertion order.
	ReadSortedByTimestamp() ([]types.Row, error)
}

// MemoryTable is a mutex-guarded, append-only (until Alter prunes it) row
// slice: the simplest Table that could work, standing in for the inner
// table and the target table alike.
type MemoryTable struct {
	mu   sync.RWMutex
	rows []types.Row
}

// NewMemoryTable returns an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{}
}

func (t *MemoryTable) Write(rows []types.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
	return nil
}

func (t *MemoryTable) Read() ([]types.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.Row, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func (t *MemoryTable) Alter(keep func(types.Row) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[:0]
	for _, r := range t.rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// ReadSortedByTimestamp implements Table.ReadSortedByTimestamp.
func (t *MemoryTable) ReadSortedByTimestamp() ([]types.Row, error) {
	rows, err := t.Read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
	return rows, nil
}
