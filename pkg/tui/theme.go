package tui

import "github.com/charmbracelet/lipgloss/v2"

// Theme centralizes Lip Gloss styles for the tree browser.
type Theme struct {
	Window   lipgloss.Style
	Count    lipgloss.Style
	Tab      lipgloss.Style
	Active   lipgloss.Style
	Selected lipgloss.Style
	ID       lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Prompt   lipgloss.Style
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Window:   lipgloss.NewStyle().Bold(true).Underline(true),
		Count:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Tab:      lipgloss.NewStyle(),
		Active:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Selected: lipgloss.NewStyle().Reverse(true),
		ID:       lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Faint(true),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
	}
}
