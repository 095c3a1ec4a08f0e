package app

import (
	"sync"
	"time"

	"github.com/dori/todosync/internal/db"
	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/history"
	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/store"
)

// Persister saves session state; the cache DB implements it
type Persister interface {
	SaveState(s db.State) error
	SaveTheme(name string) error
}

// Mirror receives every recorded local change; the sync coordinator implements it
type Mirror interface {
	Mirror(prev, next model.Collection)
}

// Session owns the task collection and everything derived from it. All
// mutations go through its mutex, so user actions and background callbacks
// never interleave.
type Session struct {
	mu      sync.Mutex
	store   *store.Store
	history *history.Manager
	tasks   model.Collection
	editing string
	status  model.SyncStatus
	theme   string

	persist Persister
	mirror  Mirror
	changes chan struct{}
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithPersister saves state after every change
func WithPersister(p Persister) SessionOption {
	return func(s *Session) {
		s.persist = p
	}
}

// WithStore replaces the default task store
func WithStore(st *store.Store) SessionOption {
	return func(s *Session) {
		s.store = st
	}
}

// NewSession creates a session seeded with previously saved state
func NewSession(state db.State, opts ...SessionOption) *Session {
	s := &Session{
		store:   store.New(),
		history: history.New(history.DefaultDepth),
		tasks:   state.Tasks.Normalized(),
		theme:   state.Theme,
		status:  model.SyncLocalOnly,
		changes: make(chan struct{}, 1),
	}
	if s.tasks == nil {
		s.tasks = model.Collection{}
	}
	s.history.Restore(state.Past, state.Future)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMirror connects the session to the remote mirror
func (s *Session) SetMirror(m Mirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// Changes signals after every state change. Signals coalesce.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// apply runs a mutation. Changes are recorded in history, saved and
// mirrored; a mutation that changes nothing is dropped.
func (s *Session) apply(fn func(model.Collection) model.Collection) bool {
	s.mu.Lock()
	prev := s.tasks
	next := fn(prev)
	if next.Equal(prev) {
		s.mu.Unlock()
		return false
	}
	s.history.Record(prev)
	s.tasks = next
	s.saveLocked()
	m := s.mirror
	s.mu.Unlock()

	if m != nil {
		m.Mirror(prev, next)
	}
	s.notify()
	return true
}

// replace swaps in a collection computed from the current one without
// touching history. fn returns nil to leave the collection alone.
func (s *Session) replace(fn func(model.Collection) model.Collection, mirror bool) {
	s.mu.Lock()
	prev := s.tasks
	next := fn(prev)
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.tasks = next
	if s.editing != "" && next.Index(s.editing) < 0 {
		s.editing = ""
	}
	s.saveLocked()
	m := s.mirror
	s.mu.Unlock()

	if mirror && m != nil {
		m.Mirror(prev, next)
	}
	s.notify()
}

func (s *Session) saveLocked() {
	if s.persist == nil {
		return
	}
	past, future := s.history.Snapshot()
	err := s.persist.SaveState(db.State{Tasks: s.tasks, Past: past, Future: future})
	if err != nil {
		debug.Log("session: failed to save state: %v", err)
	}
}

// Add creates a task from d
func (s *Session) Add(d store.Draft) error {
	var err error
	s.apply(func(c model.Collection) model.Collection {
		var out model.Collection
		out, err = s.store.Add(c, d)
		return out
	})
	return err
}

// Delete removes a task
func (s *Session) Delete(id string) {
	s.apply(func(c model.Collection) model.Collection {
		return s.store.Delete(c, id)
	})
}

// ToggleComplete flips completion, spawning the next occurrence of
// repeating tasks
func (s *Session) ToggleComplete(id string) {
	s.apply(func(c model.Collection) model.Collection {
		return s.store.ToggleComplete(c, id)
	})
}

// StartEdit marks a task as being edited and returns its current text
func (s *Session) StartEdit(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.Find(id)
	if !ok {
		return "", false
	}
	s.editing = id
	return t.Text, true
}

// Editing returns the id of the task being edited
func (s *Session) Editing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// CancelEdit leaves edit mode without changing anything
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = ""
}

// SaveEdit stores the new text of the task being edited. Blank text cancels
// the edit. It returns true when the task changed.
func (s *Session) SaveEdit(text string) bool {
	id := s.Editing()
	if id == "" {
		return false
	}
	changed := s.apply(func(c model.Collection) model.Collection {
		out, _ := s.store.SaveEdit(c, id, text)
		return out
	})
	s.CancelEdit()
	return changed
}

// Reorder moves a task between positions of the full collection
func (s *Session) Reorder(from, to int) error {
	var err error
	s.apply(func(c model.Collection) model.Collection {
		var out model.Collection
		out, err = s.store.Reorder(c, from, to)
		return out
	})
	return err
}

// ClearCompleted removes every completed task
func (s *Session) ClearCompleted() {
	s.apply(s.store.ClearCompleted)
}

// Undo restores the previous snapshot. It is not sent to the remote;
// the next snapshot from there wins.
func (s *Session) Undo() bool {
	return s.travel(s.history.Undo)
}

// Redo re-applies the most recently undone snapshot
func (s *Session) Redo() bool {
	return s.travel(s.history.Redo)
}

func (s *Session) travel(step func(model.Collection) (model.Collection, bool)) bool {
	s.mu.Lock()
	next, ok := step(s.tasks)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.tasks = next
	s.editing = ""
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Tasks returns a copy of the full collection
func (s *Session) Tasks() model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Clone()
}

// Visible returns the tasks matching crit
func (s *Session) Visible(crit filter.Criteria) model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Apply(s.tasks, crit)
}

// Tags lists the tags in use
func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Tags(s.tasks)
}

// Remaining counts incomplete tasks
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Remaining(s.tasks)
}

// Status returns the last reported sync status
func (s *Session) Status() model.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Theme returns the saved theme name
func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme saves the theme name
func (s *Session) SetTheme(name string) {
	s.mu.Lock()
	s.theme = name
	if s.persist != nil {
		if err := s.persist.SaveTheme(name); err != nil {
			debug.Log("session: failed to save theme: %v", err)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// ScanDue marks incomplete tasks whose due time has passed as notified and
// returns them. Tasks with an unparseable due are skipped. The change is
// mirrored but not recorded in history.
func (s *Session) ScanDue(now time.Time) model.Collection {
	var due model.Collection
	s.replace(func(c model.Collection) model.Collection {
		var next model.Collection
		for _, t := range c {
			if t.Notified || !t.IsOverdue(now) {
				continue
			}
			if next == nil {
				next = c
			}
			next = s.store.MarkNotified(next, t.ID)
			due = append(due, t.Clone())
		}
		return next
	}, true)
	return due
}

// AttachRemoteID records the remote identity of a created task
func (s *Session) AttachRemoteID(localID, remoteID string, syncedAt time.Time) {
	s.replace(func(c model.Collection) model.Collection {
		return s.store.AttachRemoteID(c, localID, remoteID, syncedAt)
	}, false)
}

// ReplaceAll takes a remote snapshot as the new collection
func (s *Session) ReplaceAll(snap model.Collection) {
	snap = snap.Normalized()
	if snap == nil {
		snap = model.Collection{}
	}
	s.replace(func(model.Collection) model.Collection { return snap }, false)
}

// SyncStatusChanged records the coordinator's status
func (s *Session) SyncStatusChanged(status model.SyncStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.notify()
}
