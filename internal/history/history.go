// Package history keeps bounded undo/redo stacks of whole-collection snapshots.
package history

import "github.com/dori/todosync/internal/model"

// DefaultDepth is how many snapshots each stack keeps
const DefaultDepth = 99

// Manager holds the past and future stacks. Past is ordered oldest first;
// future is ordered most recently undone first. Linear history: recording a
// new snapshot drops the whole future.
//
// Manager is not safe for concurrent use; the owning session serializes access.
type Manager struct {
	depth  int
	past   []model.Collection
	future []model.Collection
}

// New creates a manager bounded to depth entries per stack.
// A non-positive depth uses DefaultDepth.
func New(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{depth: depth}
}

// Record pushes the pre-mutation snapshot and clears the redo chain
func (m *Manager) Record(pre model.Collection) {
	m.past = append(m.past, pre.Clone())
	if len(m.past) > m.depth {
		m.past = m.past[len(m.past)-m.depth:]
	}
	m.future = nil
}

// Undo returns the snapshot to restore, moving current onto the future stack.
// It returns false and leaves both stacks alone when there is nothing to undo.
func (m *Manager) Undo(current model.Collection) (model.Collection, bool) {
	if len(m.past) == 0 {
		return current, false
	}
	prev := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]

	m.future = append([]model.Collection{current.Clone()}, m.future...)
	if len(m.future) > m.depth {
		m.future = m.future[:m.depth]
	}
	return prev.Clone(), true
}

// Redo returns the most recently undone snapshot, moving current onto past.
// It returns false and leaves both stacks alone when there is nothing to redo.
func (m *Manager) Redo(current model.Collection) (model.Collection, bool) {
	if len(m.future) == 0 {
		return current, false
	}
	next := m.future[0]
	m.future = m.future[1:]

	m.past = append(m.past, current.Clone())
	if len(m.past) > m.depth {
		m.past = m.past[len(m.past)-m.depth:]
	}
	return next.Clone(), true
}

// CanUndo reports whether Undo would do anything
func (m *Manager) CanUndo() bool {
	return len(m.past) > 0
}

// CanRedo reports whether Redo would do anything
func (m *Manager) CanRedo() bool {
	return len(m.future) > 0
}

// Len returns the sizes of the past and future stacks
func (m *Manager) Len() (past, future int) {
	return len(m.past), len(m.future)
}

// Snapshot returns copies of both stacks for persistence
func (m *Manager) Snapshot() (past, future []model.Collection) {
	return cloneAll(m.past), cloneAll(m.future)
}

// Restore replaces both stacks, e.g. with state read back from the cache.
// Stacks longer than the depth keep their newest entries.
func (m *Manager) Restore(past, future []model.Collection) {
	if len(past) > m.depth {
		past = past[len(past)-m.depth:]
	}
	if len(future) > m.depth {
		future = future[:m.depth]
	}
	m.past = cloneAll(past)
	m.future = cloneAll(future)
}

func cloneAll(stack []model.Collection) []model.Collection {
	if len(stack) == 0 {
		return nil
	}
	out := make([]model.Collection, len(stack))
	for i, c := range stack {
		out[i] = c.Clone()
	}
	return out
}
