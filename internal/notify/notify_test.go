package notify

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dori/todosync/internal/model"
)

type recorder struct {
	calls [][]string
}

func (r *recorder) run(name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func found(string) (string, error)   { return "/usr/bin/notify-send", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func TestRequestPermission(t *testing.T) {
	n := NewNotifier(WithLookPath(missing))
	if err := n.RequestPermission(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	n.SetEnabled(true)
	if n.IsEnabled() {
		t.Fatal("notifier must stay disabled without permission")
	}

	n = NewNotifier(WithLookPath(found))
	if err := n.RequestPermission(); err != nil {
		t.Fatalf("RequestPermission failed: %v", err)
	}
	if !n.IsEnabled() {
		t.Fatal("expected notifier to be enabled")
	}
}

func TestSendDisabledIsNoop(t *testing.T) {
	r := &recorder{}
	n := NewNotifier(WithRunner(r.run), WithLookPath(found))
	if err := n.SendSimple("hi", "there"); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("disabled notifier ran %v", r.calls)
	}
}

func TestSendDueReminderArgs(t *testing.T) {
	r := &recorder{}
	n := NewNotifier(WithRunner(r.run), WithLookPath(found))
	n.RequestPermission()

	task := model.Task{ID: "abc", Text: "Pay rent", Due: "2024-03-01T09:30"}
	if err := n.SendDueReminder(task); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(r.calls))
	}
	args := r.calls[0]
	if args[0] != "notify-send" {
		t.Errorf("unexpected command %q", args[0])
	}
	if !slices.Contains(args, "string:x-dunst-stack-tag:task-abc") {
		t.Errorf("missing tag hint: %v", args)
	}
	if !slices.Contains(args, "Task: Pay rent") {
		t.Errorf("missing title: %v", args)
	}
	if body := args[len(args)-1]; !strings.HasPrefix(body, "Due Mar 1, 2024") {
		t.Errorf("unexpected body %q", body)
	}
}

type fakeSource struct {
	due   model.Collection
	scans int
}

func (f *fakeSource) ScanDue(now time.Time) model.Collection {
	f.scans++
	out := f.due
	f.due = nil
	return out
}

func TestScannerSendsOncePerTask(t *testing.T) {
	r := &recorder{}
	n := NewNotifier(WithRunner(r.run), WithLookPath(found))
	n.RequestPermission()

	src := &fakeSource{due: model.Collection{{ID: "a", Text: "A", Due: "2024-01-01"}}}
	s := NewScanner(src, n, 0)

	if got := s.Scan(); got != 1 {
		t.Fatalf("expected 1 reminder, got %d", got)
	}
	if got := s.Scan(); got != 0 {
		t.Fatalf("expected no reminders on the second scan, got %d", got)
	}
	if len(r.calls) != 1 {
		t.Errorf("expected a single notify-send call, got %d", len(r.calls))
	}
}

func TestScannerSkipsWhenDisabled(t *testing.T) {
	n := NewNotifier(WithLookPath(found))
	src := &fakeSource{due: model.Collection{{ID: "a", Due: "2024-01-01"}}}

	if got := NewScanner(src, n, time.Minute).Scan(); got != 0 || src.scans != 0 {
		t.Fatalf("disabled scanner should not touch the source, got %d reminders, %d scans", got, src.scans)
	}
}
