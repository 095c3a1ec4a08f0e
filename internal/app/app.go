package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dori/todosync/internal/config"
	"github.com/dori/todosync/internal/db"
	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/notify"
	"github.com/dori/todosync/internal/remote/googletasks"
	tasksync "github.com/dori/todosync/internal/sync"
	"github.com/gofrs/flock"
)

// App holds the application state and dependencies
type App struct {
	Config   config.Config
	DB       *db.DB
	Session  *Session
	Notifier *notify.Notifier
	Sync     *tasksync.Coordinator
	lockFile *flock.Flock
	cancel   context.CancelFunc
}

// Option configures an App
type Option func(*options)

type options struct {
	remote   tasksync.Remote
	auth     tasksync.Authenticator
	notifier *notify.Notifier
}

// WithRemote uses the given remote instead of the configured backend
func WithRemote(r tasksync.Remote, auth tasksync.Authenticator) Option {
	return func(o *options) {
		o.remote = r
		o.auth = auth
	}
}

// WithNotifier replaces the desktop notifier
func WithNotifier(n *notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// New creates a new application instance
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{
		Config:   cfg,
		Notifier: o.notifier,
	}
	if app.Notifier == nil {
		app.Notifier = notify.NewNotifier()
	}

	// Acquire lock to ensure single instance
	if err := app.acquireLock(); err != nil {
		return nil, err
	}

	database, reset, err := db.OpenOrReset(db.PathIn(cfg.DataDir))
	if err != nil {
		app.releaseLock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if reset {
		debug.Log("app: cache was unreadable, starting with empty state")
	}
	app.DB = database

	state, err := database.LoadState()
	if err != nil {
		debug.Log("app: starting with empty state: %v", err)
		state = db.State{}
	}
	if state.Theme == "" {
		state.Theme = cfg.UI.Theme
	}
	app.Session = NewSession(state, WithPersister(database))

	if o.remote == nil && cfg.SyncEnabled() {
		client, err := googletasks.New(ctx, cfg)
		if err != nil {
			// Sync stays off; the status bar shows local mode.
			debug.Log("app: google tasks unavailable: %v", err)
		} else {
			o.remote, o.auth = client, client
		}
	}
	app.Sync = tasksync.New(o.remote, o.auth, app.Session,
		tasksync.WithConcurrency(cfg.Sync.MaxConcurrent),
		tasksync.WithTimeout(cfg.SyncTimeout()),
	)
	app.Session.SetMirror(app.Sync)

	if cfg.Notifications.Enabled {
		if err := app.Notifier.RequestPermission(); err != nil {
			debug.Log("app: notifications unavailable: %v", err)
		}
	}

	return app, nil
}

// Start runs sync and the reminder scanner in the background until Close
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Sync.Start(ctx)

	scanner := notify.NewScanner(a.Session, a.Notifier, a.Config.ScanInterval())
	go scanner.Run(ctx)
}

// Connect signs in without subscribing, for one-shot commands. Mirrors of
// later mutations are sent once connected; Close waits for them.
func (a *App) Connect(ctx context.Context) error {
	if !a.Sync.Enabled() {
		return nil
	}
	return a.Sync.Connect(ctx)
}

// SetReminders turns due reminders on or off
func (a *App) SetReminders(on bool) error {
	if !on {
		a.Notifier.SetEnabled(false)
		return nil
	}
	return a.Notifier.RequestPermission()
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.Config.DataDir, "todosync.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return errors.New("another instance of todosync is already running")
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close waits for pending remote work and releases all resources
func (a *App) Close() error {
	var errs []error

	if a.cancel != nil {
		a.cancel()
	}
	if a.Sync != nil {
		if err := a.Sync.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sync: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()

	return errors.Join(errs...)
}

// RemindersEnabled reports whether due reminders are being sent
func (a *App) RemindersEnabled() bool {
	return a.Notifier.IsEnabled()
}
