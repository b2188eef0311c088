// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package session provides configuration loading for CLI commands.
package session

import (
	"context"
	"fmt"
	"os"

	"github.com/allista/GetIsolationSource/internal/config"
)

// contextKey is used to store Context in context.Context.
type contextKey struct{}

// Context holds the resolved configuration for a command invocation.
type Context struct {
	// Config is the effective configuration: file values overlaid with
	// environment variables. Flags are applied by the commands themselves.
	Config *config.Config

	// ConfigPath is where the config file lives (whether or not it exists).
	ConfigPath string
}

// Load resolves the configuration and returns a new context.Context with
// the session Context stored in it. A missing config file is not an error;
// defaults plus environment apply.
func Load(ctx context.Context) (context.Context, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)

	sess := &Context{
		Config:     cfg,
		ConfigPath: path,
	}
	return context.WithValue(ctx, contextKey{}, sess), nil
}

// From extracts the session Context from a context.Context.
// Returns nil if no Context is stored.
func From(ctx context.Context) *Context {
	if sess, ok := ctx.Value(contextKey{}).(*Context); ok {
		return sess
	}
	return nil
}
