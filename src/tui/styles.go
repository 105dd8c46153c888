package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colors used by the watch view and summary table.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color

	Success lipgloss.Color
	Failure lipgloss.Color
	Pending lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		Success:       lipgloss.Color("#34A853"),
		Failure:       lipgloss.Color("#EA4335"),
		Pending:       lipgloss.Color("#FBBC04"),
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// StatusStyle colors a build status: green for success, red for any other
// finished status, yellow while the build is still running.
func (s *StyleConfig) StatusStyle(finished, succeeded bool) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(s.Pending)
	switch {
	case succeeded:
		style = style.Foreground(s.Success)
	case finished:
		style = style.Foreground(s.Failure).Bold(true)
	}
	return style
}

// BoxStyle returns a bordered container style using this config
func (s *StyleConfig) BoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
