package model

import (
	"slices"
	"time"
)

// Recurrence is how often a task repeats once completed
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence maps user or wire text onto a Recurrence.
// Anything unrecognised becomes RecurrenceNone.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(s) {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return Recurrence(s)
	default:
		return RecurrenceNone
	}
}

// IsRecurring returns true for daily, weekly and monthly
func (r Recurrence) IsRecurring() bool {
	return ParseRecurrence(string(r)) != RecurrenceNone
}

// UnmarshalText keeps decoded recurrences inside the enum
func (r *Recurrence) UnmarshalText(b []byte) error {
	*r = ParseRecurrence(string(b))
	return nil
}

// Task represents a todo item
type Task struct {
	ID         string     `json:"id"`
	RemoteID   string     `json:"remote_id,omitempty"`
	Text       string     `json:"text"`
	Completed  bool       `json:"completed"`
	Due        string     `json:"due,omitempty"`
	Recurrence Recurrence `json:"recurrence"`
	Tags       []string   `json:"tags,omitempty"`
	Notified   bool       `json:"notified"`

	// Remote bookkeeping
	CreatedAt *time.Time `json:"created_at,omitempty"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

// HasDue returns true if the task carries a due value
func (t *Task) HasDue() bool {
	return t.Due != ""
}

// DueTime parses the due value in the local time zone
func (t *Task) DueTime() (time.Time, error) {
	return ParseDue(t.Due)
}

// IsOverdue returns true if the task is incomplete and past its due date.
// An unparseable due date is never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if !t.HasDue() || t.Completed {
		return false
	}
	due, err := t.DueTime()
	if err != nil {
		return false
	}
	return !due.After(now)
}

// HasTag reports whether the task carries the given tag
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// Clone returns a copy that shares no memory with t
func (t Task) Clone() Task {
	out := t
	out.Tags = slices.Clone(t.Tags)
	if t.CreatedAt != nil {
		ts := *t.CreatedAt
		out.CreatedAt = &ts
	}
	if t.SyncedAt != nil {
		ts := *t.SyncedAt
		out.SyncedAt = &ts
	}
	return out
}

// SameContent compares the user-visible fields of two tasks.
// Remote bookkeeping is ignored.
func (t Task) SameContent(o Task) bool {
	return t.ID == o.ID &&
		t.Text == o.Text &&
		t.Completed == o.Completed &&
		t.Due == o.Due &&
		t.Recurrence == o.Recurrence &&
		t.Notified == o.Notified &&
		slices.Equal(t.Tags, o.Tags)
}

// Collection is the ordered list of tasks. Order is significant.
type Collection []Task

// Clone deep-copies the collection
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, t := range c {
		out[i] = t.Clone()
	}
	return out
}

// Index returns the position of the task with the given id, or -1
func (c Collection) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the task with the given id
func (c Collection) Find(id string) (Task, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Task{}, false
}

// Normalized returns a copy with every task's invariants re-established:
// recurrence inside the enum and no notified flag without a due value.
// Used on data read back from the cache or the remote.
func (c Collection) Normalized() Collection {
	out := c.Clone()
	for i := range out {
		out[i].Recurrence = ParseRecurrence(string(out[i].Recurrence))
		if !out[i].HasDue() {
			out[i].Notified = false
		}
	}
	return out
}

// Equal reports whether both collections hold the same tasks in the same order
func (c Collection) Equal(o Collection) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if !c[i].SameContent(o[i]) || c[i].RemoteID != o[i].RemoteID {
			return false
		}
	}
	return true
}
