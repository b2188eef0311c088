// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package main is the entry point for the get_isolation_sources CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/allista/GetIsolationSource/cmd/internal"
)

func main() {
	if err := internal.Run(context.Background(), os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
