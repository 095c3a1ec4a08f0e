package theme

import "github.com/charmbracelet/lipgloss"

// Dark uses the Nord palette
// https://www.nordtheme.com/
var Dark = Theme{
	Name: "dark",

	// Polar Night
	Background: lipgloss.Color("#2E3440"),
	Foreground: lipgloss.Color("#ECEFF4"),
	Subtle:     lipgloss.Color("#4C566A"),
	Highlight:  lipgloss.Color("#3B4252"),
	Border:     lipgloss.Color("#4C566A"),
	TagBack:    lipgloss.Color("#3B4252"),

	// Frost
	Primary:   lipgloss.Color("#88C0D0"),
	Secondary: lipgloss.Color("#81A1C1"),
	Info:      lipgloss.Color("#5E81AC"),

	// Aurora
	Success: lipgloss.Color("#A3BE8C"),
	Warning: lipgloss.Color("#EBCB8B"),
	Error:   lipgloss.Color("#BF616A"),
}

// Light uses the Nord Snow Storm shades as background
var Light = Theme{
	Name: "light",

	Background: lipgloss.Color("#ECEFF4"),
	Foreground: lipgloss.Color("#2E3440"),
	Subtle:     lipgloss.Color("#7B88A1"),
	Highlight:  lipgloss.Color("#D8DEE9"),
	Border:     lipgloss.Color("#AEB8CA"),
	TagBack:    lipgloss.Color("#E5E9F0"),

	Primary:   lipgloss.Color("#5E81AC"),
	Secondary: lipgloss.Color("#81A1C1"),
	Info:      lipgloss.Color("#4C6A91"),

	Success: lipgloss.Color("#6E8F52"),
	Warning: lipgloss.Color("#B4892F"),
	Error:   lipgloss.Color("#BF616A"),
}
