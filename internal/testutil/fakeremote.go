// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dori/todosync/internal/model"
	tasksync "github.com/dori/todosync/internal/sync"
)

// DefaultUserID is the identity returned by SignIn
const DefaultUserID = "user-1"

// ErrNotFound is returned when a remote id is unknown.
var ErrNotFound = errors.New("not found")

// FakeRemote is an in-memory implementation of sync.Remote and
// sync.Authenticator for testing.
type FakeRemote struct {
	mu     sync.Mutex
	tasks  map[string][]model.Task // userID -> tasks
	nextID int
	subs   []*FakeSubscription
	calls  []string

	// Error injection for testing
	SignInErr    error
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
	MoveErr      error
	SubscribeErr error

	// Latency delays Create like a network round trip. The call gives up
	// with ctx.Err() when ctx ends first.
	Latency time.Duration
	// SubscribeGate, when set, holds Subscribe until the channel is closed.
	SubscribeGate chan struct{}
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{tasks: make(map[string][]model.Task)}
}

// SetErrors replaces the injected mirror errors while holding the lock.
func (f *FakeRemote) SetErrors(create, update, del error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateErr, f.UpdateErr, f.DeleteErr = create, update, del
}

// SignIn implements sync.Authenticator.
func (f *FakeRemote) SignIn(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "sign-in")
	if f.SignInErr != nil {
		return "", f.SignInErr
	}
	return DefaultUserID, nil
}

// Create implements sync.Remote.
func (f *FakeRemote) Create(ctx context.Context, userID string, t model.Task) (string, error) {
	f.mu.Lock()
	latency := f.Latency
	f.mu.Unlock()
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+t.ID)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	t = t.Clone()
	t.RemoteID = fmt.Sprintf("remote-%d", f.nextID)
	f.tasks[userID] = append(f.tasks[userID], t)
	return t.RemoteID, nil
}

// Update implements sync.Remote.
func (f *FakeRemote) Update(ctx context.Context, userID, remoteID string, t model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+remoteID)
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i, existing := range f.tasks[userID] {
		if existing.RemoteID == remoteID {
			t = t.Clone()
			t.RemoteID = remoteID
			f.tasks[userID][i] = t
			return nil
		}
	}
	return ErrNotFound
}

// Delete implements sync.Remote.
func (f *FakeRemote) Delete(ctx context.Context, userID, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+remoteID)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	tasks := f.tasks[userID]
	for i, existing := range tasks {
		if existing.RemoteID == remoteID {
			f.tasks[userID] = append(tasks[:i], tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Move implements sync.Mover.
func (f *FakeRemote) Move(ctx context.Context, userID, remoteID, beforeRemoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "move:"+remoteID+">"+beforeRemoteID)
	if f.MoveErr != nil {
		return f.MoveErr
	}
	tasks := f.tasks[userID]
	from := -1
	for i, t := range tasks {
		if t.RemoteID == remoteID {
			from = i
			break
		}
	}
	if from < 0 {
		return ErrNotFound
	}
	moved := tasks[from]
	tasks = append(tasks[:from], tasks[from+1:]...)

	to := len(tasks)
	for i, t := range tasks {
		if t.RemoteID == beforeRemoteID {
			to = i
			break
		}
	}
	tasks = append(tasks[:to], append([]model.Task{moved}, tasks[to:]...)...)
	f.tasks[userID] = tasks
	return nil
}

// Subscribe implements sync.Remote. The subscription only delivers what
// Push sends it.
func (f *FakeRemote) Subscribe(ctx context.Context, userID string) (tasksync.Subscription, error) {
	f.mu.Lock()
	gate := f.SubscribeGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "subscribe")
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	sub := &FakeSubscription{ch: make(chan model.Collection, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

// Push delivers a snapshot to every open subscription.
func (f *FakeRemote) Push(c model.Collection) {
	f.mu.Lock()
	subs := append([]*FakeSubscription(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		s.send(c.Clone())
	}
}

// Seed replaces the stored collection for a user.
func (f *FakeRemote) Seed(userID string, c model.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[userID] = c.Clone()
}

// Subscriptions returns every subscription opened so far.
func (f *FakeRemote) Subscriptions() []*FakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSubscription(nil), f.subs...)
}

// Tasks returns a copy of the stored collection for a user.
func (f *FakeRemote) Tasks(userID string) model.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Collection(f.tasks[userID]).Clone()
}

// Calls returns the operations received so far, e.g. "create:<id>".
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeSubscription is the Subscription handed out by FakeRemote.
type FakeSubscription struct {
	mu     sync.Mutex
	ch     chan model.Collection
	closed bool
}

// Snapshots implements sync.Subscription.
func (s *FakeSubscription) Snapshots() <-chan model.Collection {
	return s.ch
}

// Close implements sync.Subscription.
func (s *FakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// Closed reports whether Close was called.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSubscription) send(c model.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- c
	}
}

// RecordingLocal is a sync.Local that keeps what the coordinator reports.
type RecordingLocal struct {
	mu       sync.Mutex
	attached map[string]string
	replaced []model.Collection
	statuses []model.SyncStatus
}

// NewRecordingLocal creates an empty RecordingLocal.
func NewRecordingLocal() *RecordingLocal {
	return &RecordingLocal{attached: make(map[string]string)}
}

// AttachRemoteID implements sync.Local.
func (l *RecordingLocal) AttachRemoteID(localID, remoteID string, _ time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attached[localID] = remoteID
}

// ReplaceAll implements sync.Local.
func (l *RecordingLocal) ReplaceAll(c model.Collection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replaced = append(l.replaced, c.Clone())
}

// SyncStatusChanged implements sync.Local.
func (l *RecordingLocal) SyncStatusChanged(s model.SyncStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

// RemoteID returns the remote id attached to a local task.
func (l *RecordingLocal) RemoteID(localID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attached[localID]
}

// Replaced returns every collection handed to ReplaceAll.
func (l *RecordingLocal) Replaced() []model.Collection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Collection(nil), l.replaced...)
}

// Statuses returns the status changes in the order they arrived.
func (l *RecordingLocal) Statuses() []model.SyncStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.SyncStatus(nil), l.statuses...)
}
