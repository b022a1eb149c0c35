// Package ui is the live terminal view of tally watch.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	LightForeground = lipgloss.Color("#101F38")
	LightMuted      = lipgloss.Color("#6b7280")
	LightAccent     = lipgloss.Color("#2e7d32")

	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkMuted      = lipgloss.Color("#8b95a7")
	DarkAccent     = lipgloss.Color("#8BC34A")

	Destructive = lipgloss.Color("#e53935")
	Info        = lipgloss.Color("#2196F3")
)

// Theme is the color scheme for one terminal background.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the theme for light backgrounds.
func LightTheme() Theme {
	return Theme{Foreground: LightForeground, Muted: LightMuted, Accent: LightAccent}
}

// DarkTheme returns the theme for dark backgrounds.
func DarkTheme() Theme {
	return Theme{Foreground: DarkForeground, Muted: DarkMuted, Accent: DarkAccent, IsDark: true}
}

// DetectTheme picks a theme from the terminal background.
func DetectTheme() Theme {
	if lipgloss.HasDarkBackground() {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds the styled pieces of the view.
type Styles struct {
	Theme Theme

	Header  lipgloss.Style
	Status  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Spinner lipgloss.Style
	Footer  lipgloss.Style
}

// NewStyles builds Styles for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,
		Header: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			MarginBottom(1),
		Status: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(Info),
		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			MarginTop(1),
	}
}
