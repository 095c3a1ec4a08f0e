package notify

import (
	"errors"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/dori/todosync/internal/model"
)

// ErrUnsupported is returned by RequestPermission when no notification tool is available
var ErrUnsupported = errors.New("desktop notifications are not supported: notify-send not found")

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification represents a desktop notification
type Notification struct {
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string // Optional icon name
	Tag     string // Replaces an earlier notification with the same tag
}

// Runner executes the notification command
type Runner func(name string, args ...string) error

func execRunner(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Notifier handles sending desktop notifications
type Notifier struct {
	mu        sync.Mutex
	enabled   bool
	permitted bool
	command   string
	run       Runner
	lookPath  func(string) (string, error)
}

// Option configures a Notifier
type Option func(*Notifier)

// WithRunner replaces the command runner, e.g. in tests
func WithRunner(r Runner) Option {
	return func(n *Notifier) {
		n.run = r
	}
}

// WithLookPath replaces the PATH lookup used by RequestPermission
func WithLookPath(fn func(string) (string, error)) Option {
	return func(n *Notifier) {
		n.lookPath = fn
	}
}

// NewNotifier creates a disabled notifier; RequestPermission turns it on
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{
		command:  "notify-send",
		run:      execRunner,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RequestPermission checks that notifications can be shown and enables them
func (n *Notifier) RequestPermission() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.lookPath(n.command); err != nil {
		n.permitted = false
		n.enabled = false
		return ErrUnsupported
	}
	n.permitted = true
	n.enabled = true
	return nil
}

// SetEnabled enables or disables notifications. Enabling has no effect
// until RequestPermission succeeded.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled && n.permitted
}

// IsEnabled returns whether notifications are enabled
func (n *Notifier) IsEnabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Send sends a desktop notification using notify-send
func (n *Notifier) Send(notification Notification) error {
	if !n.IsEnabled() {
		return nil
	}

	args := []string{}

	switch notification.Urgency {
	case UrgencyLow:
		args = append(args, "-u", "low")
	case UrgencyCritical:
		args = append(args, "-u", "critical")
	default:
		args = append(args, "-u", "normal")
	}

	if notification.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(notification.Timeout.Milliseconds())))
	}

	if notification.Icon != "" {
		args = append(args, "-i", notification.Icon)
	}

	if notification.Tag != "" {
		args = append(args,
			"-h", "string:x-dunst-stack-tag:"+notification.Tag,
			"-h", "string:x-canonical-private-synchronous:"+notification.Tag)
	}

	args = append(args, "-a", "todosync")

	args = append(args, notification.Title)
	if notification.Body != "" {
		args = append(args, notification.Body)
	}

	return n.run(n.command, args...)
}

// SendSimple sends a simple notification with title and body
func (n *Notifier) SendSimple(title, body string) error {
	return n.Send(Notification{
		Title:   title,
		Body:    body,
		Urgency: UrgencyNormal,
		Timeout: 5 * time.Second,
	})
}

// TaskTag is the notification tag for a task
func TaskTag(id string) string {
	return "task-" + id
}

// SendDueReminder sends the reminder for a task that reached its due time
func (n *Notifier) SendDueReminder(t model.Task) error {
	body := "Due " + t.Due
	if due, err := t.DueTime(); err == nil {
		body = "Due " + due.Format("Jan 2, 2006 3:04 PM")
	}

	return n.Send(Notification{
		Title:   "Task: " + t.Text,
		Body:    body,
		Urgency: UrgencyCritical,
		Timeout: 15 * time.Second,
		Icon:    "emblem-important-symbolic",
		Tag:     TaskTag(t.ID),
	})
}
