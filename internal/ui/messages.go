package ui

// Mode is what the list is currently capturing input for
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeEdit
	ModeSearch
	ModeConfirmClear
)

// String returns the display name for a mode
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "Normal"
	case ModeAdd:
		return "Add"
	case ModeEdit:
		return "Edit"
	case ModeSearch:
		return "Search"
	case ModeConfirmClear:
		return "Clear"
	default:
		return "Unknown"
	}
}

// Messages for inter-component communication

// ChangedMsg is sent whenever the session state changed, including changes
// made in the background by sync or the reminder scanner
type ChangedMsg struct{}

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}
