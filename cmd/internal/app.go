// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package internal contains the main application logic for the CLI.
package internal

import (
	"context"

	"github.com/allista/GetIsolationSource/internal/commands"
)

// Run is the main application logic, extracted for testability.
// It accepts OS dependencies as parameters (context, env lookup).
func Run(ctx context.Context, getenv func(string) string) error {
	rootCmd := commands.NewRootCmd()
	return rootCmd.ExecuteContext(ctx)
}
