package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = lipgloss.Color("12")
	colorMuted  = lipgloss.Color("8")
	colorGood   = lipgloss.Color("10")
	colorBad    = lipgloss.Color("9")
	colorWarn   = lipgloss.Color("11")
	colorCursor = lipgloss.Color("14")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginBottom(1)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1)

	successStyle   = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	highlightStyle = lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	// session rows
	timeStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	moduleStyle = lipgloss.NewStyle().Bold(true)
	// sessions outside the free slots
	invalidStyle = lipgloss.NewStyle().Foreground(colorBad).Strikethrough(true)
)
