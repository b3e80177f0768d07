package tui

import "github.com/charmbracelet/lipgloss"

var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	queryFg   = lipgloss.Color("#3B82F6")
	sketchFg  = lipgloss.Color("#FFA500")
	errorFg   = lipgloss.Color("#EF4444")

	appStyle    = lipgloss.NewStyle().Foreground(baseFg)
	titleStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(baseDimFg)
	queryStyle  = lipgloss.NewStyle().Foreground(queryFg)
	sketchStyle = lipgloss.NewStyle().Foreground(sketchFg)
	errorStyle  = lipgloss.NewStyle().Foreground(errorFg)
	popupStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
