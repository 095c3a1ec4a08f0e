// Package recurrence computes the next occurrence of a repeating task.
package recurrence

import (
	"errors"
	"time"

	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/model"
)

// ErrNoRecurrence is returned by NextDue for a task that does not repeat
var ErrNoRecurrence = errors.New("task does not recur")

// NextDue adds one recurrence unit to due and formats the result in the
// layout due was written in. Monthly steps clamp to the end of the month,
// so Jan 31 becomes the last day of February.
func NextDue(due string, r model.Recurrence) (string, error) {
	if !r.IsRecurring() {
		return "", ErrNoRecurrence
	}
	t, layout, err := model.ParseDueLayout(due)
	if err != nil {
		return "", err
	}
	return Advance(t, r).Format(layout), nil
}

// Advance moves t forward by one unit of r. Non-recurring values return t.
func Advance(t time.Time, r model.Recurrence) time.Time {
	switch r {
	case model.RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case model.RecurrenceMonthly:
		return addMonth(t)
	default:
		return t
	}
}

func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Complete marks the task with the given id completed. If it repeats and has
// a parseable due date, a fresh incomplete copy due one unit later is
// inserted right after it. Date failures degrade to a plain completion.
// The input collection is not modified.
func Complete(c model.Collection, id string, newID func() string) model.Collection {
	out := make(model.Collection, 0, len(c)+1)
	for _, t := range c {
		if t.ID != id {
			out = append(out, t.Clone())
			continue
		}

		done := t.Clone()
		done.Completed = true
		out = append(out, done)

		if !t.Recurrence.IsRecurring() || !t.HasDue() {
			continue
		}
		next, err := NextDue(t.Due, t.Recurrence)
		if err != nil {
			debug.Log("recurrence: task %s: %v", t.ID, err)
			continue
		}
		out = append(out, model.Task{
			ID:         newID(),
			Text:       t.Text,
			Completed:  false,
			Due:        next,
			Recurrence: t.Recurrence,
			Tags:       append([]string(nil), t.Tags...),
			Notified:   false,
		})
	}
	return out
}
