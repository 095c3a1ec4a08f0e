// Package store implements the task mutation operations. Every operation
// takes a collection and returns a new one; inputs are never modified.
package store

import (
	"strings"
	"time"

	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/recurrence"
	"github.com/google/uuid"
)

// Draft holds the user input for a new task
type Draft struct {
	Text       string
	Due        string
	Recurrence model.Recurrence
	Tags       []string
}

// Store applies mutations to task collections
type Store struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for overdue checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the function used to allocate task ids
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates a store using uuids and the wall clock
func New(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID allocates a task id
func (s *Store) NewID() string {
	return s.newID()
}

// Add appends a new incomplete task built from d
func (s *Store) Add(c model.Collection, d Draft) (model.Collection, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return c, &model.ValidationError{Field: "text", Reason: "task text is empty"}
	}

	task := model.Task{
		ID:         s.newID(),
		Text:       text,
		Completed:  false,
		Due:        strings.TrimSpace(d.Due),
		Recurrence: model.ParseRecurrence(string(d.Recurrence)),
		Tags:       NormalizeTags(d.Tags),
		Notified:   false,
	}

	out := c.Clone()
	return append(out, task), nil
}

// Delete removes the task with the given id. Unknown ids are ignored.
func (s *Store) Delete(c model.Collection, id string) model.Collection {
	out := make(model.Collection, 0, len(c))
	for _, t := range c {
		if t.ID != id {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ToggleComplete flips a task's completion. Completing a repeating task
// with a due date goes through recurrence.Complete instead.
func (s *Store) ToggleComplete(c model.Collection, id string) model.Collection {
	i := c.Index(id)
	if i < 0 {
		return c.Clone()
	}
	t := c[i]
	if !t.Completed && t.Recurrence.IsRecurring() && t.HasDue() {
		return recurrence.Complete(c, id, s.newID)
	}

	out := c.Clone()
	out[i].Completed = !out[i].Completed
	return out
}

// SaveEdit replaces a task's text. It returns false, and the collection
// untouched, when the new text is blank or the id is unknown.
//
// The notified flag resets so the reminder can fire again, except for tasks
// that are already past due: retyping those must not re-trigger a reminder.
func (s *Store) SaveEdit(c model.Collection, id, text string) (model.Collection, bool) {
	text = strings.TrimSpace(text)
	i := c.Index(id)
	if text == "" || i < 0 {
		return c, false
	}

	out := c.Clone()
	t := &out[i]
	t.Text = text
	if !s.dueHasPassed(*t) {
		t.Notified = false
	}
	return out, true
}

func (s *Store) dueHasPassed(t model.Task) bool {
	if !t.HasDue() {
		return false
	}
	due, err := t.DueTime()
	if err != nil {
		return false
	}
	return due.Before(s.now())
}

// Reorder moves the task at from to position to, shifting the rest.
// Equal indices are a no-op.
func (s *Store) Reorder(c model.Collection, from, to int) (model.Collection, error) {
	if from == to {
		return c.Clone(), nil
	}
	if from < 0 || from >= len(c) || to < 0 || to >= len(c) {
		return c, &model.RangeError{From: from, To: to, Len: len(c)}
	}

	out := c.Clone()
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(model.Collection{moved}, out[to:]...)...)
	return out, nil
}

// ClearCompleted removes every completed task
func (s *Store) ClearCompleted(c model.Collection) model.Collection {
	out := make(model.Collection, 0, len(c))
	for _, t := range c {
		if !t.Completed {
			out = append(out, t.Clone())
		}
	}
	return out
}

// AttachRemoteID records the sync identity of a task after a remote create
func (s *Store) AttachRemoteID(c model.Collection, id, remoteID string, syncedAt time.Time) model.Collection {
	i := c.Index(id)
	if i < 0 {
		return c
	}
	out := c.Clone()
	out[i].RemoteID = remoteID
	ts := syncedAt
	out[i].SyncedAt = &ts
	if out[i].CreatedAt == nil {
		created := syncedAt
		out[i].CreatedAt = &created
	}
	return out
}

// MarkNotified flags that a due reminder fired for the task.
// Tasks without a due value are left alone.
func (s *Store) MarkNotified(c model.Collection, id string) model.Collection {
	i := c.Index(id)
	if i < 0 || !c[i].HasDue() {
		return c
	}
	out := c.Clone()
	out[i].Notified = true
	return out
}
