// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides styled terminal output for typybench commands.
//
// Styled text goes to stdout and is purely presentational; structured
// logs stay on stderr. Nothing here is required for correctness, so a
// dumb terminal just sees plain text.
package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorAccent  = lipgloss.Color("#5FAFD7")
	ColorSuccess = lipgloss.Color("#5FD787")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
}

// Success prints a success line.
func Success(message string) {
	fmt.Println(Styles.Success.Render("✓ " + message))
}

// Warning prints a warning line.
func Warning(message string) {
	fmt.Println(Styles.Warning.Render("! " + message))
}

// Error prints an error line.
func Error(message string) {
	fmt.Println(Styles.Error.Render("✗ " + message))
}

// Title prints a section heading.
func Title(message string) {
	fmt.Println(Styles.Title.Render(message))
}

// SummaryLine renders one repository outcome for the terminal.
//
// Inputs:
//
//	repo - Repository name.
//	detail - Score summary, e.g. "overall 0.8123, 142 vars".
//	failed - Whether the repository produced a failure row.
func SummaryLine(repo, detail string, failed bool) string {
	name := Styles.Bold.Render(padRight(repo, 28))
	if failed {
		return fmt.Sprintf("%s %s", name, Styles.Error.Render("failed"))
	}
	return fmt.Sprintf("%s %s", name, Styles.Muted.Render(detail))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
