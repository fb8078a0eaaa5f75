package main

import "github.com/charmbracelet/lipgloss"

// ANSI palette indexes so the help output follows the terminal theme.
var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	usageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	flagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)
