package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dori/todosync/internal/app"
	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/quickadd"
	"github.com/dori/todosync/internal/ui/theme"
)

const addPlaceholder = "New task... @tag due:tomorrow every:weekly"

// ListView displays the filtered task list and drives the session
type ListView struct {
	session *app.Session
	keys    KeyMap
	width   int
	height  int

	all   model.Collection // full collection, for index mapping
	tasks model.Collection // visible subset in collection order
	tags  []string
	crit  filter.Criteria

	cursor       int
	scrollOffset int

	mode      Mode
	input     textinput.Model
	statusMsg string
	now       func() time.Time
	copyText  func(string) error
}

// NewListView creates a list view over the session
func NewListView(session *app.Session, keys KeyMap, status filter.Status) ListView {
	ti := textinput.New()
	ti.Placeholder = addPlaceholder
	ti.CharLimit = 256

	v := ListView{
		session:  session,
		keys:     keys,
		crit:     filter.Criteria{Status: status},
		input:    ti,
		now:      time.Now,
		copyText: clipboard.WriteAll,
	}
	v.refresh()
	return v
}

// IsInputMode returns true when the view is capturing text input
func (v ListView) IsInputMode() bool {
	return v.mode != ModeNormal
}

// SetSize updates the view dimensions
func (v ListView) SetSize(width, height int) ListView {
	v.width = width
	v.height = height
	v.input.Width = width - 6
	v.ensureCursorVisible()
	return v
}

// Criteria returns the active filter
func (v ListView) Criteria() filter.Criteria {
	return v.crit
}

// Selected returns the task under the cursor
func (v ListView) Selected() (model.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return model.Task{}, false
	}
	return v.tasks[v.cursor], true
}

// refresh reloads the collection from the session and reapplies the filter
func (v *ListView) refresh() {
	v.all = v.session.Tasks()
	v.tags = v.session.Tags()
	if v.crit.Tag != "" && !slices.Contains(v.tags, v.crit.Tag) {
		v.crit.Tag = ""
	}
	v.tasks = filter.Apply(v.all, v.crit)

	if v.cursor >= len(v.tasks) {
		v.cursor = len(v.tasks) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.ensureCursorVisible()
}

// visibleTaskCount returns how many tasks fit in the viewport
func (v ListView) visibleTaskCount() int {
	// status line, input box and padding
	available := v.height - 5
	if available < 1 {
		available = 1
	}
	return available
}

// ensureCursorVisible adjusts scrollOffset to keep cursor in view
func (v *ListView) ensureCursorVisible() {
	visible := v.visibleTaskCount()

	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	}
	if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}

	maxOffset := len(v.tasks) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// Update handles messages for the list view
func (v ListView) Update(msg tea.Msg) (ListView, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		v.refresh()
		// A snapshot may have removed the task being edited.
		if v.mode == ModeEdit && v.session.Editing() == "" {
			v.mode = ModeNormal
			v.input.Blur()
			v.statusMsg = "Task was removed"
		}
		return v, nil

	case tea.KeyMsg:
		if v.mode != ModeNormal {
			return v.handleInputKey(msg)
		}
		return v.handleKey(msg)
	}
	return v, nil
}

func (v ListView) handleKey(msg tea.KeyMsg) (ListView, tea.Cmd) {
	v.statusMsg = ""
	selected, hasSelection := v.Selected()

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
		}
	case key.Matches(msg, v.keys.Top):
		v.cursor = 0
	case key.Matches(msg, v.keys.Bottom):
		v.cursor = max(len(v.tasks)-1, 0)

	case key.Matches(msg, v.keys.Add):
		v.mode = ModeAdd
		v.input.SetValue("")
		v.input.Placeholder = addPlaceholder
		v.input.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if !hasSelection {
			break
		}
		text, ok := v.session.StartEdit(selected.ID)
		if !ok {
			break
		}
		v.mode = ModeEdit
		v.input.SetValue(text)
		v.input.CursorEnd()
		v.input.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Toggle):
		if hasSelection {
			v.session.ToggleComplete(selected.ID)
		}

	case key.Matches(msg, v.keys.Delete):
		if hasSelection {
			v.session.Delete(selected.ID)
			v.statusMsg = fmt.Sprintf("Deleted %q (u to undo)", selected.Text)
		}

	case key.Matches(msg, v.keys.Yank):
		if !hasSelection {
			break
		}
		if err := v.copyText(selected.Text); err != nil {
			debug.Log("ui: clipboard: %v", err)
			v.statusMsg = "Clipboard unavailable"
		} else {
			v.statusMsg = "Copied to clipboard"
		}

	case key.Matches(msg, v.keys.MoveUp):
		v.move(-1)
	case key.Matches(msg, v.keys.MoveDown):
		v.move(1)

	case key.Matches(msg, v.keys.ClearDone):
		if len(v.all)-filter.Remaining(v.all) > 0 {
			v.mode = ModeConfirmClear
		} else {
			v.statusMsg = "No completed tasks"
		}

	case key.Matches(msg, v.keys.Undo):
		if !v.session.Undo() {
			v.statusMsg = "Nothing to undo"
		}
	case key.Matches(msg, v.keys.Redo):
		if !v.session.Redo() {
			v.statusMsg = "Nothing to redo"
		}

	case key.Matches(msg, v.keys.Filter):
		v.crit.Status = v.crit.Status.Next()
		v.cursor = 0
	case key.Matches(msg, v.keys.Tag):
		v.crit.Tag = nextTag(v.tags, v.crit.Tag)
		v.cursor = 0
		if len(v.tags) == 0 {
			v.statusMsg = "No tags yet. Add one with @name"
		}
	case key.Matches(msg, v.keys.Search):
		v.mode = ModeSearch
		v.input.SetValue(v.crit.Search)
		v.input.Placeholder = "Search tasks..."
		v.input.CursorEnd()
		v.input.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Back):
		// Clear search and tag first, then the status filter
		if v.crit.Search != "" || v.crit.Tag != "" {
			v.crit.Search = ""
			v.crit.Tag = ""
		} else {
			v.crit.Status = filter.StatusAll
		}
	}

	v.refresh()
	return v, nil
}

func (v ListView) handleInputKey(msg tea.KeyMsg) (ListView, tea.Cmd) {
	if v.mode == ModeConfirmClear {
		if msg.String() == "y" || key.Matches(msg, v.keys.Confirm) {
			v.session.ClearCompleted()
			v.statusMsg = "Cleared completed tasks"
		}
		v.mode = ModeNormal
		v.refresh()
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		switch v.mode {
		case ModeEdit:
			v.session.CancelEdit()
		case ModeSearch:
			v.crit.Search = ""
		}
		v.leaveInput()
		return v, nil

	case key.Matches(msg, v.keys.Confirm):
		value := v.input.Value()
		switch v.mode {
		case ModeAdd:
			if strings.TrimSpace(value) == "" {
				break
			}
			d, err := quickadd.Parse(value, v.now())
			if err != nil {
				v.statusMsg = err.Error()
				return v, nil
			}
			if err := v.session.Add(d); err != nil {
				v.statusMsg = err.Error()
				return v, nil
			}
			// Show the new task even if the filter would hide it
			if v.crit.Status == filter.StatusCompleted {
				v.crit.Status = filter.StatusAll
			}
			v.refresh()
			v.cursor = max(len(v.tasks)-1, 0)
		case ModeEdit:
			if !v.session.SaveEdit(value) && strings.TrimSpace(value) == "" {
				v.statusMsg = "Edit cancelled"
			}
		case ModeSearch:
			v.crit.Search = value
			v.cursor = 0
		}
		v.leaveInput()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	if v.mode == ModeSearch {
		v.crit.Search = v.input.Value()
		v.cursor = 0
		v.refresh()
	}
	return v, cmd
}

func (v *ListView) leaveInput() {
	v.mode = ModeNormal
	v.input.Blur()
	v.input.SetValue("")
	v.refresh()
}

// move swaps the selected task with its visible neighbour. Tasks hidden by
// the filter keep their place in the full collection.
func (v *ListView) move(delta int) {
	j := v.cursor + delta
	if j < 0 || j >= len(v.tasks) {
		return
	}
	all := v.session.Tasks()
	from := all.Index(v.tasks[v.cursor].ID)
	to := all.Index(v.tasks[j].ID)
	if from < 0 || to < 0 {
		return
	}
	if err := v.session.Reorder(from, to); err != nil {
		debug.Log("ui: reorder %d -> %d failed: %v", from, to, err)
		v.statusMsg = err.Error()
		return
	}
	v.cursor = j
}

// nextTag cycles through no tag and then each tag in order
func nextTag(tags []string, current string) string {
	if len(tags) == 0 {
		return ""
	}
	if current == "" {
		return tags[0]
	}
	i := slices.Index(tags, current)
	if i < 0 || i+1 >= len(tags) {
		return ""
	}
	return tags[i+1]
}

// View renders the list
func (v ListView) View() string {
	styles := theme.Current.Styles
	var b strings.Builder

	if len(v.tasks) == 0 {
		if len(v.all) == 0 {
			b.WriteString(styles.Label.Render("  No tasks yet. Press a to add one."))
		} else {
			b.WriteString(styles.Label.Render("  No tasks match the current filter."))
		}
		b.WriteString("\n")
	}

	editing := v.session.Editing()
	now := v.now()
	end := min(v.scrollOffset+v.visibleTaskCount(), len(v.tasks))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.renderTask(v.tasks[i], i == v.cursor, v.tasks[i].ID == editing, now))
		b.WriteString("\n")
	}

	b.WriteString(v.renderStatusLine())

	switch v.mode {
	case ModeAdd, ModeEdit, ModeSearch:
		b.WriteString("\n")
		b.WriteString(styles.InputFocused.Width(max(v.width-4, 10)).Render(v.input.View()))
	case ModeConfirmClear:
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Current.Theme.Warning).
			Render("  Delete all completed tasks? (y/n)"))
	}
	return b.String()
}

func (v ListView) renderTask(t model.Task, selected, editing bool, now time.Time) string {
	styles := theme.Current.Styles

	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	cursor := "  "
	if selected {
		cursor = "› "
	}

	textStyle := styles.TaskNormal
	switch {
	case editing:
		textStyle = styles.TaskEditing
	case t.Completed:
		textStyle = styles.TaskDone
	case t.IsOverdue(now):
		textStyle = styles.TaskOverdue
	}
	if selected && !editing {
		textStyle = textStyle.Background(theme.Current.Theme.Highlight)
	}

	text := t.Text
	if v.width > 0 {
		text = runewidth.Truncate(text, max(v.width/2, 20), "…")
	}
	parts := []string{cursor + check, textStyle.Render(text)}
	if t.HasDue() {
		due := t.Due
		if _, err := t.DueTime(); err != nil {
			due += " (?)"
		}
		parts = append(parts, styles.DueDate.Render(due))
	}
	if t.Recurrence.IsRecurring() {
		parts = append(parts, styles.Recurrence.Render("↻ "+string(t.Recurrence)))
	}
	for _, tag := range t.Tags {
		parts = append(parts, styles.Tag.Render("#"+tag))
	}
	return strings.Join(parts, " ")
}

func (v ListView) renderStatusLine() string {
	styles := theme.Current.Styles

	remaining := filter.Remaining(v.all)
	items := "items"
	if remaining == 1 {
		items = "item"
	}
	fields := []string{
		fmt.Sprintf("%d %s left", remaining, items),
		"show: " + string(v.crit.Status),
	}
	if v.crit.Tag != "" {
		fields = append(fields, "tag: #"+v.crit.Tag)
	}
	if v.crit.Search != "" {
		fields = append(fields, fmt.Sprintf("search: %q", v.crit.Search))
	}
	line := styles.Label.Render("  " + strings.Join(fields, " · "))
	if v.statusMsg != "" {
		line += "  " + lipgloss.NewStyle().Foreground(theme.Current.Theme.Info).Render(v.statusMsg)
	}
	return line
}
