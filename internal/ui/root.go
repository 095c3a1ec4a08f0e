package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dori/todosync/internal/app"
	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/ui/theme"
)

// Reminders switches due reminders on and off; App implements it
type Reminders interface {
	SetReminders(on bool) error
	RemindersEnabled() bool
}

// RootModel is the main application model
type RootModel struct {
	session   *app.Session
	reminders Reminders
	keys      KeyMap
	help      help.Model
	width     int
	height    int

	list        ListView
	helpVisible bool

	statusMsg string
	errorMsg  string
}

// NewRootModel creates the root model for a running application
func NewRootModel(a *app.App) RootModel {
	return newRootModel(a.Session, a, filter.ParseStatus(a.Config.UI.DefaultFilter))
}

func newRootModel(session *app.Session, reminders Reminders, status filter.Status) RootModel {
	theme.Apply(session.Theme())

	keys := DefaultKeyMap()
	h := help.New()
	h.ShowAll = false

	return RootModel{
		session:   session,
		reminders: reminders,
		keys:      keys,
		help:      h,
		list:      NewListView(session, keys, status),
	}
}

// waitForChange turns the next session change signal into a ChangedMsg
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return ChangedMsg{}
	}
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return waitForChange(m.session.Changes())
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// header and two footer lines
		m.list = m.list.SetSize(m.width, m.height-3)
		return m, nil

	case ChangedMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, tea.Batch(cmd, waitForChange(m.session.Changes()))

	case tea.KeyMsg:
		m.statusMsg = ""
		m.errorMsg = ""
		isInputMode := m.list.IsInputMode()

		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.ThemeCycle):
			name := theme.Toggle()
			m.session.SetTheme(name)
			m.statusMsg = fmt.Sprintf("Theme: %s", name)
			return m, nil
		}

		if isInputMode {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = !m.helpVisible
			m.help.ShowAll = m.helpVisible
			return m, nil
		case m.helpVisible && key.Matches(msg, m.keys.Back):
			m.helpVisible = false
			m.help.ShowAll = false
			return m, nil
		case key.Matches(msg, m.keys.Reminders):
			m.toggleReminders()
			return m, nil
		}

	case ErrorMsg:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *RootModel) toggleReminders() {
	on := !m.reminders.RemindersEnabled()
	if err := m.reminders.SetReminders(on); err != nil {
		debug.Log("ui: reminders: %v", err)
		m.errorMsg = fmt.Sprintf("Reminders unavailable: %v", err)
		return
	}
	if on {
		m.statusMsg = "Reminders on"
	} else {
		m.statusMsg = "Reminders off"
	}
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	contentHeight := m.height - 3
	var content string
	if m.helpVisible {
		content = m.help.View(m.keys)
	} else {
		content = m.list.View()
	}
	if lines := strings.Count(content, "\n") + 1; lines < contentHeight {
		content += strings.Repeat("\n", contentHeight-lines)
	}

	return strings.Join([]string{m.renderHeader(), content, m.renderFooter()}, "\n")
}

// renderHeader renders the title, sync badge and reminder state
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("todosync")
	dim := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1)

	left := lipgloss.JoinHorizontal(lipgloss.Center, title,
		dim.Render(fmt.Sprintf("[%s]", m.list.Criteria().Status)))

	var right []string
	if m.reminders.RemindersEnabled() {
		right = append(right, dim.Render("reminders"))
	}
	right = append(right, renderBadge(m.session.Status()))
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, right...)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightSide), 0)
	return left + strings.Repeat(" ", gap) + rightSide
}

// renderBadge shows the sync status
func renderBadge(s model.SyncStatus) string {
	styles := theme.Current.Styles
	style := styles.BadgeLocal
	switch s {
	case model.SyncSyncing:
		style = styles.BadgeSyncing
	case model.SyncSynced:
		style = styles.BadgeSynced
	case model.SyncOffline:
		style = styles.BadgeOffline
	case model.SyncError:
		style = styles.BadgeError
	}
	return style.Render("● " + s.String())
}

// renderFooter renders the status line and key hints
func (m RootModel) renderFooter() string {
	t := theme.Current.Theme
	styles := theme.Current.Styles

	var statusLine string
	switch {
	case m.errorMsg != "":
		statusLine = lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg)
	case m.statusMsg != "":
		statusLine = lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg)
	}

	var hints string
	if m.list.IsInputMode() {
		sep := styles.HelpSeparator.Render(" │ ")
		hints = styles.HelpKey.Render("enter") + styles.HelpDesc.Render(" confirm") + sep +
			styles.HelpKey.Render("esc") + styles.HelpDesc.Render(" cancel")
	} else {
		hints = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return statusLine + "\n" + hints
}
