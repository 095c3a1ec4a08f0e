// Package sync mirrors local task mutations to a remote store and feeds remote
// snapshots back. Local state always wins the first write: remote failures put
// the coordinator in offline mode but never roll anything back.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/model"
	"golang.org/x/sync/errgroup"
)

// Remote operation names used in RemoteSyncError.Op
const (
	OpSignIn    = "sign-in"
	OpSubscribe = "subscribe"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpMove      = "move"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 15 * time.Second
)

var (
	// ErrNotConnected is returned by Subscribe before a successful Connect
	ErrNotConnected = errors.New("sync: not connected")
	// ErrClosed is returned by Subscribe once Close has started
	ErrClosed = errors.New("sync: coordinator closed")
)

// Remote is the per-user remote task collection
type Remote interface {
	Create(ctx context.Context, userID string, t model.Task) (string, error)
	Update(ctx context.Context, userID, remoteID string, t model.Task) error
	Delete(ctx context.Context, userID, remoteID string) error
	// Subscribe opens a stream of snapshots. ctx bounds opening the stream;
	// the subscription itself lives until Close.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Mover is implemented by remotes that keep an order. Move places a task
// directly before beforeRemoteID in collection order; an empty
// beforeRemoteID moves it to the end.
type Mover interface {
	Move(ctx context.Context, userID, remoteID, beforeRemoteID string) error
}

// Subscription delivers full snapshots of the remote collection.
// The channel is closed once the subscription ends.
type Subscription interface {
	Snapshots() <-chan model.Collection
	Close() error
}

// Authenticator establishes the remote session and returns its user identity
type Authenticator interface {
	SignIn(ctx context.Context) (string, error)
}

// Local receives the results of remote activity. Calls arrive from
// background goroutines; implementations serialize them themselves.
type Local interface {
	AttachRemoteID(localID, remoteID string, syncedAt time.Time)
	ReplaceAll(c model.Collection)
	SyncStatusChanged(s model.SyncStatus)
}

// Coordinator owns the remote session and all in-flight remote work
type Coordinator struct {
	remote Remote
	auth   Authenticator
	local  Local

	concurrency int
	timeout     time.Duration
	now         func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // subscription and start goroutines
	mirrors sync.WaitGroup

	mu        sync.Mutex
	closing   bool
	userID    string
	status    model.SyncStatus
	lastErr   error
	sub       Subscription
	remoteIDs map[string]string // local id -> remote id, learned from creates and snapshots
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithConcurrency bounds the number of remote calls a single mirror runs at once
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds each remote call
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the time source used for sync timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator. A nil remote gives a coordinator that stays
// LocalOnly and ignores every mirror request.
func New(remote Remote, auth Authenticator, local Local, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		remote:      remote,
		auth:        auth,
		local:       local,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		status:      model.SyncLocalOnly,
		remoteIDs:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a remote store is configured
func (c *Coordinator) Enabled() bool {
	return c.remote != nil && c.auth != nil
}

// Status returns the current sync status
func (c *Coordinator) Status() model.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// UserID returns the remote session identity, empty when not connected
func (c *Coordinator) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// LastError returns the most recent remote failure
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Connect signs in and records the session identity
func (c *Coordinator) Connect(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	c.setStatus(model.SyncSyncing)

	userID, err := c.auth.SignIn(ctx)
	if err != nil {
		return c.fail(model.SyncError, &model.RemoteSyncError{Op: OpSignIn, Err: err})
	}

	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
	debug.Log("sync: signed in as %s", userID)
	return nil
}

// Subscribe opens the remote snapshot stream. Every snapshot replaces the
// whole local collection.
func (c *Coordinator) Subscribe(ctx context.Context) error {
	userID := c.UserID()
	if userID == "" {
		return ErrNotConnected
	}

	sub, err := c.remote.Subscribe(ctx, userID)
	if err != nil {
		return c.fail(model.SyncError, &model.RemoteSyncError{Op: OpSubscribe, Err: err})
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	if c.sub != nil {
		c.sub.Close()
	}
	c.sub = sub
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		for snap := range sub.Snapshots() {
			c.applySnapshot(snap)
		}
		debug.Log("sync: subscription closed")
	}()
	return nil
}

// Start connects and subscribes in the background. Close stops it.
func (c *Coordinator) Start(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer stop()
		defer cancel()

		if err := c.Connect(ctx); err != nil {
			debug.Log("sync: connect failed: %v", err)
			return
		}
		if err := c.Subscribe(ctx); err != nil {
			debug.Log("sync: subscribe failed: %v", err)
		}
	}()
}

func (c *Coordinator) applySnapshot(snap model.Collection) {
	snap = snap.Normalized()

	c.mu.Lock()
	c.remoteIDs = make(map[string]string, len(snap))
	for _, t := range snap {
		if t.RemoteID != "" {
			c.remoteIDs[t.ID] = t.RemoteID
		}
	}
	c.mu.Unlock()

	c.local.ReplaceAll(snap)
	c.setStatus(model.SyncSynced)
}

type op struct {
	kind     string
	task     model.Task
	remoteID string
	before   string // OpMove only
}

// Mirror sends the difference between prev and next to the remote store.
// It returns immediately; the remote calls run in the background.
func (c *Coordinator) Mirror(prev, next model.Collection) {
	userID := c.UserID()
	if userID == "" {
		return
	}

	ops := c.diff(prev, next)
	if len(ops) == 0 {
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		debug.Log("sync: dropping %d ops after close", len(ops))
		return
	}
	c.mirrors.Add(1)
	c.mu.Unlock()
	debug.Log("sync: mirroring %d ops", len(ops))

	go func() {
		defer c.mirrors.Done()

		var ordered []op
		g, ctx := errgroup.WithContext(c.ctx)
		g.SetLimit(c.concurrency)
		for _, o := range ops {
			if o.kind == OpMove {
				ordered = append(ordered, o)
				continue
			}
			g.Go(func() error {
				c.run(ctx, userID, o)
				return nil // failures are recorded, never propagated
			})
		}
		g.Wait()

		// Moves are relative to each other and must run in order.
		for _, o := range ordered {
			c.run(c.ctx, userID, o)
		}
	}()
}

func (c *Coordinator) diff(prev, next model.Collection) []op {
	c.mu.Lock()
	defer c.mu.Unlock()

	remoteID := func(t model.Task) string {
		if t.RemoteID != "" {
			return t.RemoteID
		}
		return c.remoteIDs[t.ID]
	}

	var ops []op
	for _, t := range next {
		old, ok := prev.Find(t.ID)
		switch {
		case !ok:
			ops = append(ops, op{kind: OpCreate, task: t.Clone()})
		case !old.SameContent(t):
			if rid := remoteID(t); rid != "" {
				ops = append(ops, op{kind: OpUpdate, task: t.Clone(), remoteID: rid})
			}
		}
	}
	for _, t := range prev {
		if next.Index(t.ID) >= 0 {
			continue
		}
		if rid := remoteID(t); rid != "" {
			ops = append(ops, op{kind: OpDelete, task: t.Clone(), remoteID: rid})
		}
	}
	if _, ok := c.remote.(Mover); ok {
		ops = append(ops, moves(prev, next, remoteID)...)
	}
	return ops
}

// moves returns the moves that turn the order of the synced tasks in prev
// into their order in next. Tasks on the longest run already in the right
// relative order stay put. The rest are placed, last first, directly before
// their successor in next, so every move targets a task whose place is final.
func moves(prev, next model.Collection, remoteID func(model.Task) string) []op {
	pos := make(map[string]int, len(prev))
	for _, t := range prev {
		if next.Index(t.ID) >= 0 && remoteID(t) != "" {
			pos[t.ID] = len(pos)
		}
	}
	var after []model.Task
	for _, t := range next {
		if _, ok := pos[t.ID]; ok {
			after = append(after, t)
		}
	}

	stay := longestIncreasing(after, pos)

	var ops []op
	for i := len(after) - 1; i >= 0; i-- {
		if stay[i] {
			continue
		}
		before := ""
		if i+1 < len(after) {
			before = remoteID(after[i+1])
		}
		t := after[i]
		ops = append(ops, op{kind: OpMove, task: t.Clone(), remoteID: remoteID(t), before: before})
	}
	return ops
}

// longestIncreasing marks one longest subsequence of tasks whose prev
// positions increase
func longestIncreasing(tasks []model.Task, pos map[string]int) []bool {
	n := len(tasks)
	length := make([]int, n)
	from := make([]int, n)
	best := -1
	for i := range tasks {
		length[i], from[i] = 1, -1
		for j := 0; j < i; j++ {
			if pos[tasks[j].ID] < pos[tasks[i].ID] && length[j]+1 > length[i] {
				length[i], from[i] = length[j]+1, j
			}
		}
		if best < 0 || length[i] > length[best] {
			best = i
		}
	}

	stay := make([]bool, n)
	for i := best; i >= 0; i = from[i] {
		stay[i] = true
	}
	return stay
}

func (c *Coordinator) run(ctx context.Context, userID string, o op) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var err error
	switch o.kind {
	case OpCreate:
		var rid string
		rid, err = c.remote.Create(ctx, userID, o.task)
		if err == nil {
			c.mu.Lock()
			c.remoteIDs[o.task.ID] = rid
			c.mu.Unlock()
			c.local.AttachRemoteID(o.task.ID, rid, c.now())
		}
	case OpUpdate:
		err = c.remote.Update(ctx, userID, o.remoteID, o.task)
	case OpMove:
		err = c.remote.(Mover).Move(ctx, userID, o.remoteID, o.before)
	case OpDelete:
		err = c.remote.Delete(ctx, userID, o.remoteID)
		if err == nil {
			c.mu.Lock()
			delete(c.remoteIDs, o.task.ID)
			c.mu.Unlock()
		}
	}

	if err != nil {
		c.fail(model.SyncOffline, &model.RemoteSyncError{Op: o.kind, TaskID: o.task.ID, Err: err})
		return
	}
	c.setStatus(model.SyncSynced)
}

func (c *Coordinator) fail(status model.SyncStatus, err error) error {
	debug.Log("sync: %v", err)
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.setStatus(status)
	return err
}

func (c *Coordinator) setStatus(s model.SyncStatus) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()

	if changed && c.local != nil {
		c.local.SyncStatusChanged(s)
	}
}

// Wait blocks until every in-flight mirror has finished
func (c *Coordinator) Wait() {
	c.mirrors.Wait()
}

// Close lets in-flight mirrors finish, then releases the subscription and
// waits for background work to stop. Each mirror call is still bounded by
// the per-call timeout. Mirror and Subscribe are no-ops once Close starts.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	c.mirrors.Wait()
	c.cancel()

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	c.wg.Wait()
	return err
}
