package googletasks

import (
	"strings"
	"time"

	"github.com/dori/todosync/internal/model"
	"github.com/goccy/go-json"
	tasks "google.golang.org/api/tasks/v1"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	// metaVersion marks notes written by todosync
	metaVersion = 1
)

// meta is the part of a task Google Tasks has no field for. It is stored
// as JSON in the task notes.
type meta struct {
	Version    int              `json:"todosync"`
	ID         string           `json:"id"`
	Due        string           `json:"due,omitempty"`
	Recurrence model.Recurrence `json:"recurrence,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	Notified   bool             `json:"notified,omitempty"`
	CreatedAt  *time.Time       `json:"created_at,omitempty"`
}

// toAPI converts a task into its Google Tasks representation
func toAPI(t model.Task) *tasks.Task {
	out := &tasks.Task{
		Title:  t.Text,
		Status: statusNeedsAction,
	}
	if t.Completed {
		out.Status = statusCompleted
	}
	// The API keeps only the date part of due.
	if due, err := t.DueTime(); err == nil {
		out.Due = due.Format("2006-01-02") + "T00:00:00.000Z"
	}

	m := meta{
		Version:    metaVersion,
		ID:         t.ID,
		Due:        t.Due,
		Recurrence: t.Recurrence,
		Tags:       t.Tags,
		Notified:   t.Notified,
		CreatedAt:  t.CreatedAt,
	}
	if m.Recurrence == model.RecurrenceNone {
		m.Recurrence = ""
	}
	if b, err := json.Marshal(m); err == nil {
		out.Notes = string(b)
	}
	return out
}

// fromAPI converts a Google Tasks item. Items created outside todosync have
// no metadata and get an id derived from their remote id.
func fromAPI(item *tasks.Task) model.Task {
	t := model.Task{
		ID:         "g-" + item.Id,
		RemoteID:   item.Id,
		Text:       item.Title,
		Completed:  item.Status == statusCompleted,
		Recurrence: model.RecurrenceNone,
	}
	if item.Due != "" {
		if d, err := time.Parse(time.RFC3339, item.Due); err == nil {
			t.Due = d.UTC().Format("2006-01-02")
		}
	}
	if item.Updated != "" {
		if u, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			t.SyncedAt = &u
		}
	}

	var m meta
	if strings.HasPrefix(strings.TrimSpace(item.Notes), "{") &&
		json.Unmarshal([]byte(item.Notes), &m) == nil && m.Version == metaVersion {
		if m.ID != "" {
			t.ID = m.ID
		}
		if m.Due != "" || item.Due == "" {
			t.Due = m.Due
		}
		t.Recurrence = model.ParseRecurrence(string(m.Recurrence))
		t.Tags = m.Tags
		t.Notified = m.Notified && t.HasDue()
		t.CreatedAt = m.CreatedAt
	}
	return t
}
