package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dori/todosync/internal/db"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/store"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

type memPersister struct {
	mu     sync.Mutex
	saves  int
	last   db.State
	themes []string
}

func (p *memPersister) SaveState(s db.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.last = s
	return nil
}

func (p *memPersister) SaveTheme(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themes = append(p.themes, name)
	return nil
}

type mirrorCall struct {
	prev, next model.Collection
}

type recordingMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
}

func (m *recordingMirror) Mirror(prev, next model.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{prev, next})
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestSession(t *testing.T, state db.State) (*Session, *memPersister, *recordingMirror) {
	t.Helper()
	n := 0
	st := store.New(
		store.WithClock(func() time.Time { return testNow }),
		store.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("t%d", n)
		}),
	)
	p := &memPersister{}
	m := &recordingMirror{}
	s := NewSession(state, WithPersister(p), WithStore(st))
	s.SetMirror(m)
	return s, p, m
}

func texts(c model.Collection) []string {
	var out []string
	for _, t := range c {
		out = append(out, t.Text)
	}
	return out
}

func TestAddUndoRedo(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})

	if err := s.Add(store.Draft{Text: "one"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(store.Draft{Text: "two"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"one", "two"}) {
		t.Fatalf("unexpected tasks %v", got)
	}

	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"one"}) {
		t.Errorf("after undo got %v", got)
	}
	if !s.CanRedo() {
		t.Error("expected redo to be available")
	}

	if !s.Redo() {
		t.Fatal("expected redo to succeed")
	}
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"one", "two"}) {
		t.Errorf("after redo got %v", got)
	}
	if s.Redo() {
		t.Error("redo with empty future should do nothing")
	}
}

func TestAddBlankIsRejected(t *testing.T) {
	s, p, m := newTestSession(t, db.State{})

	err := s.Add(store.Draft{Text: "   "})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.CanUndo() || p.saves != 0 || m.count() != 0 {
		t.Error("rejected add should not touch history, storage or remote")
	}
}

func TestNoOpIsNotRecorded(t *testing.T) {
	s, _, m := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})

	s.Delete("missing")
	s.ToggleComplete("missing")
	s.ClearCompleted()

	s.Undo()
	if s.CanUndo() {
		t.Error("no-op mutations should not create history entries")
	}
	if m.count() != 1 {
		t.Errorf("expected only the add to be mirrored, got %d calls", m.count())
	}
}

func TestUndoIsNotMirrored(t *testing.T) {
	s, _, m := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	s.Undo()
	s.Redo()

	if m.count() != 1 {
		t.Errorf("expected 1 mirror call, got %d", m.count())
	}
}

func TestMirrorReceivesPrevAndNext(t *testing.T) {
	s, _, m := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	id := s.Tasks()[0].ID
	s.ToggleComplete(id)

	if m.count() != 2 {
		t.Fatalf("expected 2 mirror calls, got %d", m.count())
	}
	call := m.calls[1]
	if call.prev[0].Completed || !call.next[0].Completed {
		t.Errorf("unexpected mirror call %+v", call)
	}
}

func TestEditFlow(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "draft"})
	id := s.Tasks()[0].ID

	text, ok := s.StartEdit(id)
	if !ok || text != "draft" {
		t.Fatalf("StartEdit = %q, %v", text, ok)
	}
	if s.Editing() != id {
		t.Errorf("expected %s to be in edit mode", id)
	}
	if !s.SaveEdit("  final  ") {
		t.Fatal("expected SaveEdit to change the task")
	}
	if s.Editing() != "" {
		t.Error("edit mode should end after saving")
	}
	if got := s.Tasks()[0].Text; got != "final" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}

func TestBlankSaveEditCancels(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "keep"})
	id := s.Tasks()[0].ID
	s.StartEdit(id)

	if s.SaveEdit("   ") {
		t.Error("blank edit should not change anything")
	}
	if s.Editing() != "" {
		t.Error("blank edit should leave edit mode")
	}
	if got := s.Tasks()[0].Text; got != "keep" {
		t.Errorf("text changed to %q", got)
	}
}

func TestStartEditMissing(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	if _, ok := s.StartEdit("missing"); ok {
		t.Error("expected StartEdit on a missing task to fail")
	}
	if s.SaveEdit("x") {
		t.Error("SaveEdit without edit mode should do nothing")
	}
}

func TestReorder(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	for _, text := range []string{"a", "b", "c"} {
		s.Add(store.Draft{Text: text})
	}
	if err := s.Reorder(2, 0); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("unexpected order %v", got)
	}
	if err := s.Reorder(0, 5); err == nil {
		t.Error("expected out of range error")
	}
}

func TestVisibleAndCounts(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "work item", Tags: []string{"work"}})
	s.Add(store.Draft{Text: "home item", Tags: []string{"home"}})
	s.ToggleComplete(s.Tasks()[0].ID)

	if got := s.Remaining(); got != 1 {
		t.Errorf("expected 1 remaining, got %d", got)
	}
	if got := s.Tags(); !slices.Equal(got, []string{"work", "home"}) {
		t.Errorf("unexpected tags %v", got)
	}
	active := s.Visible(filter.Criteria{Status: filter.StatusActive})
	if got := texts(active); !slices.Equal(got, []string{"home item"}) {
		t.Errorf("unexpected active tasks %v", got)
	}
}

func TestScanDueMarksOnce(t *testing.T) {
	state := db.State{Tasks: model.Collection{
		{ID: "past", Text: "late", Due: "2024-03-15T09:00"},
		{ID: "future", Text: "later", Due: "2024-03-16"},
		{ID: "done", Text: "finished", Due: "2024-03-01", Completed: true},
		{ID: "bad", Text: "garbled", Due: "someday"},
	}}
	s, _, m := newTestSession(t, state)

	due := s.ScanDue(testNow)
	if len(due) != 1 || due[0].ID != "past" {
		t.Fatalf("expected only the overdue task, got %+v", due)
	}
	if task, _ := s.Tasks().Find("past"); !task.Notified {
		t.Error("overdue task should be marked notified")
	}
	if s.CanUndo() {
		t.Error("marking notified should not be undoable")
	}
	if m.count() != 1 {
		t.Errorf("expected the notified flag to be mirrored, got %d calls", m.count())
	}

	if again := s.ScanDue(testNow); len(again) != 0 {
		t.Errorf("second scan should find nothing, got %+v", again)
	}
	if m.count() != 1 {
		t.Error("an empty scan should not be mirrored")
	}
}

func TestRemoteUpdatesBypassHistory(t *testing.T) {
	s, p, m := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	s.Undo()
	s.Redo()
	id := s.Tasks()[0].ID
	saves := p.saves

	s.AttachRemoteID(id, "r-1", testNow)
	if got := s.Tasks()[0].RemoteID; got != "r-1" {
		t.Errorf("expected remote id r-1, got %q", got)
	}

	s.ReplaceAll(model.Collection{{ID: "x", Text: "from remote"}})
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"from remote"}) {
		t.Errorf("snapshot not applied: %v", got)
	}

	if p.saves != saves+2 {
		t.Errorf("expected remote updates to be saved, got %d saves", p.saves-saves)
	}
	if m.count() != 1 {
		t.Errorf("remote updates must not be mirrored back, got %d calls", m.count())
	}
	// history is untouched: one undo still returns to the empty collection
	if !s.Undo() || len(s.Tasks()) != 0 {
		t.Errorf("unexpected history after remote updates: %v", texts(s.Tasks()))
	}
}

func TestReplaceAllEndsEditOfRemovedTask(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	s.StartEdit(s.Tasks()[0].ID)

	s.ReplaceAll(nil)
	if s.Editing() != "" {
		t.Error("editing a task that disappeared should end edit mode")
	}
	if s.Tasks() == nil {
		t.Error("collection should never be nil")
	}
}

func TestPersisterReceivesHistory(t *testing.T) {
	s, p, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	s.Add(store.Draft{Text: "two"})
	s.Undo()

	if len(p.last.Tasks) != 1 || len(p.last.Past) != 1 || len(p.last.Future) != 1 {
		t.Errorf("unexpected saved state %+v", p.last)
	}

	s.SetTheme("light")
	if s.Theme() != "light" || !slices.Equal(p.themes, []string{"light"}) {
		t.Errorf("theme not saved: %q %v", s.Theme(), p.themes)
	}
}

func TestRestoredHistory(t *testing.T) {
	state := db.State{
		Tasks: model.Collection{{ID: "b", Text: "b"}},
		Past:  []model.Collection{{}, {{ID: "a", Text: "a"}}},
	}
	s, _, _ := newTestSession(t, state)

	s.Undo()
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"a"}) {
		t.Errorf("expected restored past, got %v", got)
	}
}

func TestChangesSignal(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	s.Add(store.Draft{Text: "one"})
	s.Add(store.Draft{Text: "two"})

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestSyncStatusChanged(t *testing.T) {
	s, _, _ := newTestSession(t, db.State{})
	if s.Status() != model.SyncLocalOnly {
		t.Errorf("expected local status, got %v", s.Status())
	}
	s.SyncStatusChanged(model.SyncOffline)
	if s.Status() != model.SyncOffline {
		t.Errorf("expected offline, got %v", s.Status())
	}
}
