package ui

import (
	"errors"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dori/todosync/internal/app"
	"github.com/dori/todosync/internal/db"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/model"
)

type fakeReminders struct {
	on  bool
	err error
}

func (f *fakeReminders) SetReminders(on bool) error {
	if f.err != nil {
		return f.err
	}
	f.on = on
	return nil
}

func (f *fakeReminders) RemindersEnabled() bool { return f.on }

func newTestModel(t *testing.T, tasks model.Collection) (RootModel, *app.Session, *fakeReminders) {
	t.Helper()
	s := app.NewSession(db.State{Tasks: tasks})
	r := &fakeReminders{}
	m := newRootModel(s, r, filter.StatusAll)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(RootModel), s, r
}

func press(t *testing.T, m RootModel, keys ...tea.KeyMsg) RootModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(RootModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func texts(c model.Collection) []string {
	var out []string
	for _, t := range c {
		out = append(out, t.Text)
	}
	return out
}

func TestAddThroughQuickAdd(t *testing.T) {
	m, s, _ := newTestModel(t, nil)

	m = press(t, m, runes("a"), runes("Buy milk @home"), enter)

	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Text != "Buy milk" || !slices.Equal(tasks[0].Tags, []string{"home"}) {
		t.Errorf("unexpected task %+v", tasks[0])
	}
	if m.list.IsInputMode() {
		t.Error("expected to leave add mode")
	}
	if !strings.Contains(m.View(), "Buy milk") {
		t.Error("new task not rendered")
	}
}

func TestToggleAndUndo(t *testing.T) {
	m, s, _ := newTestModel(t, model.Collection{{ID: "a", Text: "task"}})

	m = press(t, m, tab)
	if !s.Tasks()[0].Completed {
		t.Fatal("expected task to be completed")
	}
	press(t, m, runes("u"))
	if s.Tasks()[0].Completed {
		t.Error("expected undo to restore the task")
	}
}

func TestEditAndEscape(t *testing.T) {
	m, s, _ := newTestModel(t, model.Collection{{ID: "a", Text: "old"}})

	m = press(t, m, enter)
	if s.Editing() != "a" {
		t.Fatalf("expected edit mode on a")
	}
	m = press(t, m, esc)
	if s.Editing() != "" || m.list.IsInputMode() {
		t.Error("escape should cancel the edit")
	}

	m = press(t, m, enter, runes(" new"), enter)
	if got := s.Tasks()[0].Text; got != "old new" {
		t.Errorf("expected edited text, got %q", got)
	}
}

func TestMoveWithinFilteredList(t *testing.T) {
	m, s, _ := newTestModel(t, model.Collection{
		{ID: "a", Text: "a"},
		{ID: "b", Text: "b", Completed: true},
		{ID: "c", Text: "c"},
	})

	// show active only: a, c
	m = press(t, m, runes("f"))
	if m.list.Criteria().Status != filter.StatusActive {
		t.Fatalf("expected active filter, got %s", m.list.Criteria().Status)
	}
	m = press(t, m, runes("j"), runes("K"))

	if got := texts(s.Tasks()); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("unexpected order %v", got)
	}
	if sel, _ := m.list.Selected(); sel.ID != "c" {
		t.Errorf("cursor should follow the moved task, got %q", sel.ID)
	}
}

func TestSearchFilters(t *testing.T) {
	m, _, _ := newTestModel(t, model.Collection{
		{ID: "a", Text: "Buy milk"},
		{ID: "b", Text: "Call mom"},
	})

	m = press(t, m, runes("/"), runes("MILK"), enter)
	if got := texts(m.list.tasks); !slices.Equal(got, []string{"Buy milk"}) {
		t.Errorf("unexpected visible tasks %v", got)
	}
	m = press(t, m, esc)
	if len(m.list.tasks) != 2 {
		t.Errorf("escape should clear the search, got %v", texts(m.list.tasks))
	}

	m = press(t, m, runes("/"), runes("milk "), enter)
	if len(m.list.tasks) != 0 || m.list.Criteria().Search != "milk " {
		t.Errorf("trailing space should stay in the search, got %q showing %v",
			m.list.Criteria().Search, texts(m.list.tasks))
	}
}

func TestClearCompletedNeedsConfirmation(t *testing.T) {
	m, s, _ := newTestModel(t, model.Collection{
		{ID: "a", Text: "a", Completed: true},
		{ID: "b", Text: "b"},
	})

	m = press(t, m, runes("C"), runes("n"))
	if len(s.Tasks()) != 2 {
		t.Fatal("declining should keep completed tasks")
	}
	press(t, m, runes("C"), runes("y"))
	if got := texts(s.Tasks()); !slices.Equal(got, []string{"b"}) {
		t.Errorf("unexpected tasks after clear %v", got)
	}
}

func TestThemeToggleIsSaved(t *testing.T) {
	m, s, _ := newTestModel(t, nil)

	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if s.Theme() != "light" {
		t.Errorf("expected light theme to be saved, got %q", s.Theme())
	}
}

func TestRemindersToggle(t *testing.T) {
	m, _, r := newTestModel(t, nil)

	m = press(t, m, runes("n"))
	if !r.on {
		t.Error("expected reminders on")
	}

	r.on, r.err = false, errors.New("notify-send not found")
	m = press(t, m, runes("n"))
	if !strings.Contains(m.errorMsg, "notify-send") {
		t.Errorf("expected error to be shown, got %q", m.errorMsg)
	}
}

func TestBackgroundChangeRefreshes(t *testing.T) {
	m, s, _ := newTestModel(t, nil)
	s.ReplaceAll(model.Collection{{ID: "x", Text: "from remote"}})

	next, cmd := m.Update(ChangedMsg{})
	m = next.(RootModel)
	if cmd == nil {
		t.Error("expected the model to keep listening for changes")
	}
	if got := texts(m.list.tasks); !slices.Equal(got, []string{"from remote"}) {
		t.Errorf("unexpected visible tasks %v", got)
	}
}

func TestQuitOnlyOutsideInput(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	m = press(t, m, runes("a"), runes("q"))
	if got := m.list.input.Value(); got != "q" {
		t.Fatalf("q should be typed while adding, input is %q", got)
	}

	m = press(t, m, esc)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNextTag(t *testing.T) {
	tags := []string{"home", "work"}
	seq := []string{nextTag(tags, ""), nextTag(tags, "home"), nextTag(tags, "work")}
	if !slices.Equal(seq, []string{"home", "work", ""}) {
		t.Errorf("unexpected cycle %v", seq)
	}
	if nextTag(nil, "") != "" {
		t.Error("no tags should stay empty")
	}
}

func TestYankCopiesSelectedText(t *testing.T) {
	m, _, _ := newTestModel(t, model.Collection{{ID: "a", Text: "call the bank"}})

	var copied string
	m.list.copyText = func(s string) error {
		copied = s
		return nil
	}
	m = press(t, m, runes("y"))
	if copied != "call the bank" {
		t.Errorf("copied %q", copied)
	}

	m.list.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, runes("y"))
	if !strings.Contains(m.list.View(), "Clipboard unavailable") {
		t.Error("expected clipboard failure in status line")
	}
}

func TestLongTextIsTruncated(t *testing.T) {
	long := strings.Repeat("word ", 40)
	m, _, _ := newTestModel(t, model.Collection{{ID: "a", Text: long}})
	if strings.Contains(m.list.View(), long) {
		t.Error("expected long task text to be truncated")
	}
}
