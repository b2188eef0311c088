// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package prompts provides interactive terminal prompts for CLI commands.
package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Theme returns the shared huh theme used across all CLI forms.
func Theme() *huh.Theme {
	theme := huh.ThemeBase16()
	theme.FieldSeparator = lipgloss.NewStyle().SetString("\n").MarginBottom(1)
	theme.Form = theme.Form.MarginTop(1)
	theme.Group = theme.Group.MarginTop(1)
	theme.Focused.Title = theme.Focused.Title.Foreground(lipgloss.Color("#f9ca24"))
	theme.Blurred.Title = theme.Blurred.Title.Foreground(lipgloss.Color("#bababa"))
	return theme
}

// ResultField is a label-value pair for PrintResult.
type ResultField struct {
	Label string
	Value string
}

// PrintResult prints a styled summary with green checkmarks and gray labels.
func PrintResult(fields []ResultField, successMsg string) {
	success := lipgloss.NewStyle().Foreground(lipgloss.Color("#27ca3f"))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
	check := success.Render("✓")

	fmt.Println()
	for _, f := range fields {
		fmt.Printf("%s %s %s\n", check, label.Render(f.Label+":"), f.Value)
	}

	if successMsg != "" {
		fmt.Println(success.Render("\n" + successMsg))
	}
}

// PrintWarning prints a yellow warning line to the terminal.
func PrintWarning(msg string) {
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#f9ca24"))
	fmt.Println(warn.Render("! " + msg))
}

func emailValidator(s string) error {
	if s == "" {
		return errors.New("e-mail is required by the NCBI usage policy")
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return errors.New("not a valid e-mail address")
	}
	return nil
}

// RunConfigForm runs the interactive form collecting NCBI contact details.
// email and apiKey are both in/out: existing values become the defaults.
func RunConfigForm(email, apiKey *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Contact e-mail").
				Description("Sent to NCBI with every request, per their usage policy.").
				Placeholder("you@example.org").
				Value(email).
				Validate(emailValidator),
			huh.NewInput().
				Title("NCBI API key (optional)").
				Description("Raises the request limit from 3/s to 10/s.").
				Value(apiKey),
		),
	).WithTheme(Theme()).Run()
}
