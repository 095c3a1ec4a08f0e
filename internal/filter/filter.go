// Package filter projects a task collection down to what the user asked to see
package filter

import (
	"strings"

	"github.com/dori/todosync/internal/model"
)

// Status selects tasks by completion
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var statusCycle = []Status{StatusAll, StatusActive, StatusCompleted}

// ParseStatus maps text onto a Status, defaulting to StatusAll
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusCompleted, "done":
		return StatusCompleted
	default:
		return StatusAll
	}
}

// Next returns the status after s in the all/active/completed cycle
func (s Status) Next() Status {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return StatusAll
}

func (s Status) match(t model.Task) bool {
	switch s {
	case StatusActive:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// Criteria is the combined filter. Empty Tag and Search match everything.
type Criteria struct {
	Status Status
	Tag    string
	Search string
}

// IsZero reports whether the criteria let every task through
func (c Criteria) IsZero() bool {
	return (c.Status == "" || c.Status == StatusAll) && c.Tag == "" && c.Search == ""
}

// Apply returns the tasks matching all criteria, in collection order
func Apply(c model.Collection, crit Criteria) model.Collection {
	// Spaces are part of the search text: " pay" does not match "repay".
	search := strings.ToLower(crit.Search)

	out := make(model.Collection, 0, len(c))
	for _, t := range c {
		if !crit.Status.match(t) {
			continue
		}
		if crit.Tag != "" && !t.HasTag(crit.Tag) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Text), search) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// Tags lists every tag in use, in first-seen order
func Tags(c model.Collection) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range c {
		for _, tag := range t.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Remaining counts incomplete tasks
func Remaining(c model.Collection) int {
	n := 0
	for _, t := range c {
		if !t.Completed {
			n++
		}
	}
	return n
}
