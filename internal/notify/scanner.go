package notify

import (
	"context"
	"time"

	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/model"
)

// DefaultScanInterval is how often due tasks are checked
const DefaultScanInterval = 30 * time.Second

// DueSource marks tasks that reached their due time as notified and
// returns them. Each task is returned at most once.
type DueSource interface {
	ScanDue(now time.Time) model.Collection
}

// Scanner periodically asks a DueSource for due tasks and notifies them
type Scanner struct {
	source   DueSource
	notifier *Notifier
	interval time.Duration
	now      func() time.Time
}

// NewScanner creates a scanner. A non-positive interval uses DefaultScanInterval.
func NewScanner(source DueSource, notifier *Notifier, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scanner{
		source:   source,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Scan runs a single check and returns how many reminders were sent.
// Nothing is scanned while notifications are disabled.
func (s *Scanner) Scan() int {
	if !s.notifier.IsEnabled() {
		return 0
	}
	due := s.source.ScanDue(s.now())
	for _, t := range due {
		if err := s.notifier.SendDueReminder(t); err != nil {
			debug.Log("notify: reminder for %s failed: %v", t.ID, err)
		}
	}
	return len(due)
}

// Run scans on every tick until ctx is done
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Scan(); n > 0 {
				debug.Log("notify: sent %d reminders", n)
			}
		}
	}
}
