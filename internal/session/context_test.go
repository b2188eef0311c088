// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package session

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allista/GetIsolationSource/internal/config"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	// Point the config directory somewhere empty so the host machine's
	// real config never leaks into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ENTREZ_EMAIL", "env@example.org")
	t.Setenv("NCBI_API_KEY", "env-key")

	ctx, err := Load(context.Background())
	require.NoError(t, err)

	sess := From(ctx)
	require.NotNil(t, sess)
	assert.Equal(t, "env@example.org", sess.Config.Email)
	assert.Equal(t, "env-key", sess.Config.APIKey)
	assert.Equal(t, config.DefaultBatchSize, sess.Config.BatchSize)
	assert.NotEmpty(t, sess.ConfigPath)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("ENTREZ_EMAIL", "")
	t.Setenv("NCBI_API_KEY", "")

	path, err := config.DefaultPath()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Email = "file@example.org"
	cfg.BatchSize = 42
	require.NoError(t, cfg.Save(path))

	ctx, err := Load(context.Background())
	require.NoError(t, err)

	sess := From(ctx)
	require.NotNil(t, sess)
	assert.Equal(t, "file@example.org", sess.Config.Email)
	assert.Equal(t, 42, sess.Config.BatchSize)
}

func TestFrom_NoContextStored(t *testing.T) {
	assert.Nil(t, From(context.Background()))
}

func TestRequireFromCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	// Before PreRunLoad.
	_, err := RequireFromCommand(cmd)
	assert.Error(t, err)

	// After PreRunLoad.
	require.NoError(t, PreRunLoad(cmd, nil))
	sess, err := RequireFromCommand(cmd)
	require.NoError(t, err)
	assert.NotNil(t, sess.Config)
}
