package history

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
)

func table(t *testing.T, v float64) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable([]string{"v"}, [][]dataset.Cell{{dataset.Number(v)}})
	require.NoError(t, err)
	return tbl
}

func record(id int) dataset.ModificationRecord {
	return dataset.ModificationRecord{ID: fmt.Sprintf("op-%d", id), Kind: "add", Parameter: 1}
}

func value(tbl *dataset.Table) float64 {
	return tbl.Rows[0][0].Num
}

func TestNewDefaultsDepth(t *testing.T) {
	assert.Equal(t, 10, New(0).Capacity())
	assert.Equal(t, 10, New(-3).Capacity())
	assert.Equal(t, 4, New(4).Capacity())
}

func TestEmptyManager(t *testing.T) {
	m := New(10)
	current := table(t, 0)

	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())

	_, _, err := m.Undo(current)
	assert.True(t, errors.Is(err, ErrUndoUnavailable))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrTypeState, appErr.Type)
	assert.Equal(t, apperrors.CodeUndoUnavailable, appErr.Code)

	_, _, err = m.Redo(current)
	assert.True(t, errors.Is(err, ErrRedoUnavailable))
}

func TestUndoRedoSingleStep(t *testing.T) {
	m := New(10)
	before, after := table(t, 1), table(t, 2)

	m.RecordBeforeOperation(before, record(1))
	assert.True(t, m.CanUndo())
	assert.Equal(t, 1, m.Len())

	restored, entry, err := m.Undo(after)
	require.NoError(t, err)
	assert.Same(t, before, restored)
	assert.Equal(t, "op-1", entry.Record.ID)
	assert.False(t, m.CanUndo())
	assert.True(t, m.CanRedo())

	redone, entry, err := m.Redo(restored)
	require.NoError(t, err)
	assert.Same(t, after, redone)
	assert.Equal(t, "op-1", entry.Record.ID)
	assert.True(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}

func TestDepthCapEvictsOldest(t *testing.T) {
	m := New(10)
	for i := 1; i <= 11; i++ {
		m.RecordBeforeOperation(table(t, float64(i)), record(i))
		assert.LessOrEqual(t, m.Len(), 10)
	}

	assert.Equal(t, 10, m.Len())
	entries := m.Entries()
	require.Len(t, entries, 10)
	assert.Equal(t, "op-2", entries[0].ID)
	assert.Equal(t, "op-11", entries[9].ID)

	current := table(t, 12)
	for i := 0; i < 10; i++ {
		var err error
		current, _, err = m.Undo(current)
		require.NoError(t, err)
	}
	assert.Equal(t, 2.0, value(current), "state before op-1 was evicted")
	_, _, err := m.Undo(current)
	assert.True(t, errors.Is(err, ErrUndoUnavailable))
}

func TestNewOperationDiscardsRedo(t *testing.T) {
	m := New(10)
	m.RecordBeforeOperation(table(t, 0), record(1))
	m.RecordBeforeOperation(table(t, 1), record(2))

	_, _, err := m.Undo(table(t, 2))
	require.NoError(t, err)
	require.True(t, m.CanRedo())

	m.RecordBeforeOperation(table(t, 1), record(3))
	assert.False(t, m.CanRedo())
	assert.Empty(t, m.RedoEntries())
	assert.Equal(t, []string{"op-1", "op-3"}, []string{m.Entries()[0].ID, m.Entries()[1].ID})
}

// Simulates a session: each operation adds one; states[i] is the value after i operations.
func TestUndoRedoReproducesEveryState(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("%d operations", n), func(t *testing.T) {
			m := New(10)
			current := table(t, 0)
			states := []*dataset.Table{current}

			for i := 1; i <= n; i++ {
				m.RecordBeforeOperation(current, record(i))
				current = table(t, float64(i))
				states = append(states, current)
			}

			for i := n - 1; i >= 0; i-- {
				var err error
				current, _, err = m.Undo(current)
				require.NoError(t, err)
				assert.True(t, states[i].Equal(current), "undo to state %d", i)
			}
			for i := 1; i <= n; i++ {
				var err error
				current, _, err = m.Redo(current)
				require.NoError(t, err)
				assert.True(t, states[i].Equal(current), "redo to state %d", i)
			}
			assert.False(t, m.CanRedo())
			assert.Equal(t, n, m.Len())
		})
	}
}

func TestStatusAndClear(t *testing.T) {
	m := New(3)
	m.RecordBeforeOperation(table(t, 0), record(1))
	m.RecordBeforeOperation(table(t, 1), record(2))
	_, _, err := m.Undo(table(t, 2))
	require.NoError(t, err)

	assert.Equal(t, Status{CanUndo: true, CanRedo: true, UndoDepth: 1, RedoDepth: 1, Capacity: 3}, m.Status())

	m.Clear()
	assert.Equal(t, Status{Capacity: 3}, m.Status())
}

func TestConcurrentAccess(t *testing.T) {
	m := New(5)
	tables := make([]*dataset.Table, 20)
	for i := range tables {
		tables[i] = table(t, float64(i))
	}

	var wg sync.WaitGroup
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordBeforeOperation(tables[i], record(i))
			_ = m.Status()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}
