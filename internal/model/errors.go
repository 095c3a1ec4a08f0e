package model

import "fmt"

// ValidationError is returned when user input is rejected before any state change
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RangeError is returned by reorder when an index falls outside the collection
type RangeError struct {
	From int
	To   int
	Len  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("reorder %d -> %d out of range for %d tasks", e.From, e.To, e.Len)
}

// RemoteSyncError wraps a failed remote create/update/delete/subscribe.
// It is recorded by the sync coordinator and never returned from a local mutation.
type RemoteSyncError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *RemoteSyncError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *RemoteSyncError) Unwrap() error {
	return e.Err
}

// DateParseError is returned when a due value cannot be parsed
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable due date %q", e.Value)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
