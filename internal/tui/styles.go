package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#5FAFAF") // Teal accent
	secondaryColor = lipgloss.Color("#666666") // Gray for secondary text
	successColor   = lipgloss.Color("#87AF87") // Muted sage for passed cases
	errorColor     = lipgloss.Color("#AF5F5F") // Muted terracotta for failures

	// titleStyle for headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// subtleStyle for hints/help text
	subtleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// selectedStyle for the cursor row in the case list
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// passedStyle and failedStyle for case status markers
	passedStyle = lipgloss.NewStyle().
			Foreground(successColor)
	failedStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// errorStyle for error messages
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)
