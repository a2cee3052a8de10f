package ui

import "github.com/charmbracelet/lipgloss"

var (
	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58a6ff")).
			Bold(true)

	handleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9")).
			Background(lipgloss.Color("#21262d"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	likedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f778ba"))

	followStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7ee787"))

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d29922"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#484f58")).
				Italic(true)

	repostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9")).
			Background(lipgloss.Color("#161b22"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d2a8ff")).
			Bold(true)
)
