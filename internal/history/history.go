// Package history keeps a bounded undo/redo stack of full table snapshots.
package history

import (
	"errors"
	"sync"

	"datamod/internal/config"
	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
)

var (
	ErrUndoUnavailable = errors.New("nothing to undo")
	ErrRedoUnavailable = errors.New("nothing to redo")
)

// Entry pairs a modification record with the table state it restores
type Entry struct {
	Record   dataset.ModificationRecord `json:"record"`
	Snapshot *dataset.Table             `json:"-"`
}

// Status summarizes the stacks for display
type Status struct {
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
	Capacity  int  `json:"capacity"`
}

// Manager holds the undo and redo stacks. Snapshots handed to it must not be
// mutated afterwards; tables it returns are owned by the caller.
type Manager struct {
	mu    sync.Mutex
	depth int
	undo  []Entry
	redo  []Entry
}

// New creates a manager keeping at most depth undo steps. A non-positive
// depth uses the default of 10.
func New(depth int) *Manager {
	if depth <= 0 {
		depth = config.DefaultHistoryDepth
	}
	return &Manager{depth: depth}
}

// RecordBeforeOperation pushes the state preceding record. Any redo steps are
// discarded and the oldest entry is evicted once the stack is over capacity.
func (m *Manager) RecordBeforeOperation(snapshot *dataset.Table, record dataset.ModificationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.undo = m.push(m.undo, Entry{Record: record, Snapshot: snapshot})
	m.redo = nil
}

// Undo returns the state before the latest operation and keeps current so
// the operation can be redone
func (m *Manager) Undo(current *dataset.Table) (*dataset.Table, Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undo) == 0 {
		return nil, Entry{}, apperrors.NewStateError(apperrors.CodeUndoUnavailable,
			"there is no operation to undo", ErrUndoUnavailable)
	}
	e := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = m.push(m.redo, Entry{Record: e.Record, Snapshot: current})
	return e.Snapshot, e, nil
}

// Redo reapplies the most recently undone operation
func (m *Manager) Redo(current *dataset.Table) (*dataset.Table, Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return nil, Entry{}, apperrors.NewStateError(apperrors.CodeRedoUnavailable,
			"there is no operation to redo", ErrRedoUnavailable)
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = m.push(m.undo, Entry{Record: e.Record, Snapshot: current})
	return e.Snapshot, e, nil
}

// CanUndo reports whether Undo would succeed
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether Redo would succeed
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Len is the number of undo steps available
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// Capacity is the maximum number of undo steps kept
func (m *Manager) Capacity() int {
	return m.depth
}

// Entries lists the undoable records, oldest first
func (m *Manager) Entries() []dataset.ModificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return records(m.undo)
}

// RedoEntries lists the redoable records, next redo last
func (m *Manager) RedoEntries() []dataset.ModificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return records(m.redo)
}

// Status returns a summary of both stacks
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		CanUndo:   len(m.undo) > 0,
		CanRedo:   len(m.redo) > 0,
		UndoDepth: len(m.undo),
		RedoDepth: len(m.redo),
		Capacity:  m.depth,
	}
}

// Clear drops both stacks
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
}

// push appends e and evicts from the front while over capacity
func (m *Manager) push(stack []Entry, e Entry) []Entry {
	stack = append(stack, e)
	if over := len(stack) - m.depth; over > 0 {
		for i := 0; i < over; i++ {
			stack[i] = Entry{}
		}
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func records(stack []Entry) []dataset.ModificationRecord {
	out := make([]dataset.ModificationRecord, len(stack))
	for i, e := range stack {
		out[i] = e.Record
	}
	return out
}
