// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/allista/GetIsolationSource/internal/cache"
	"github.com/allista/GetIsolationSource/internal/config"
	"github.com/allista/GetIsolationSource/internal/prompts"
	"github.com/allista/GetIsolationSource/internal/session"
)

func registerCacheCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "cache",
		Short:             "Manage the local record cache",
		PersistentPreRunE: session.PreRunLoad,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePurgeCmd())

	parent.AddCommand(cmd)
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record cache size and entry count",
		Example: `  # Inspect the cache
  get_isolation_sources cache stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			store, path, err := openCache(sess)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			entries, size, err := store.Stats()
			if err != nil {
				return err
			}
			prompts.PrintResult([]prompts.ResultField{
				{Label: "Cache", Value: path},
				{Label: "Entries", Value: fmt.Sprintf("%d", entries)},
				{Label: "Size", Value: fmt.Sprintf("%d bytes", size)},
			}, "")
			return nil
		},
	}
}

func newCachePurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cached records",
		Example: `  # Drop everything
  get_isolation_sources cache purge

  # Drop records fetched more than 30 days ago
  get_isolation_sources cache purge --older-than 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			store, path, err := openCache(sess)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			removed, err := store.Purge(olderThan)
			if err != nil {
				return err
			}
			prompts.PrintResult([]prompts.ResultField{
				{Label: "Cache", Value: path},
				{Label: "Removed", Value: fmt.Sprintf("%d entries", removed)},
			}, "")
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0,
		"Only remove entries fetched more than this long ago (e.g. 720h)")
	return cmd
}

func openCache(sess *session.Context) (*cache.Cache, string, error) {
	path := sess.Config.CachePath
	if path == "" {
		var err error
		if path, err = config.DefaultCachePath(); err != nil {
			return nil, "", err
		}
	}
	store, err := cache.Open(path)
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}
