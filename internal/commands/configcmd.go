// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allista/GetIsolationSource/internal/config"
	"github.com/allista/GetIsolationSource/internal/prompts"
	"github.com/allista/GetIsolationSource/internal/session"
)

func registerConfigCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	parent.AddCommand(cmd)
}

func newConfigInitCmd() *cobra.Command {
	opts := struct {
		email          string
		apiKey         string
		nonInteractive bool
	}{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update the configuration file",
		Long: `Create or update the configuration file with the NCBI contact e-mail and
optional API key. Runs an interactive form unless --non-interactive is set.`,
		Example: `  # Interactive mode
  get_isolation_sources config init

  # Non-interactive
  get_isolation_sources config init --email you@example.org --non-interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(opts.email, opts.apiKey, opts.nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "Contact e-mail sent to NCBI")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "NCBI API key")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false,
		"Run without prompts (requires --email)")

	return cmd
}

func runConfigInit(email, apiKey string, nonInteractive bool) error {
	path, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("failed to locate config directory: %w", err)
	}

	// Start from the existing file so init can be re-run to amend it.
	cfg := config.Default()
	if existing, err := config.Load(path); err == nil {
		cfg = existing
	}
	if email != "" {
		cfg.Email = email
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	if nonInteractive {
		if cfg.Email == "" {
			return fmt.Errorf("non-interactive mode requires --email")
		}
	} else {
		if err := prompts.RunConfigForm(&cfg.Email, &cfg.APIKey); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("config file couldn't be saved: %w", err)
	}

	prompts.PrintResult([]prompts.ResultField{
		{Label: "Config", Value: path},
		{Label: "E-mail", Value: cfg.Email},
		{Label: "API key", Value: maskKey(cfg.APIKey)},
	}, "Configuration saved")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Short:   "Print the effective configuration",
		PreRunE: session.PreRunLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			cfg := sess.Config

			cachePath := cfg.CachePath
			if cachePath == "" {
				if cachePath, err = config.DefaultCachePath(); err != nil {
					return err
				}
			}
			prompts.PrintResult([]prompts.ResultField{
				{Label: "Config", Value: sess.ConfigPath},
				{Label: "E-mail", Value: cfg.Email},
				{Label: "API key", Value: maskKey(cfg.APIKey)},
				{Label: "Batch size", Value: fmt.Sprintf("%d", cfg.BatchSize)},
				{Label: "Cache", Value: cachePath},
				{Label: "Cache disabled", Value: fmt.Sprintf("%t", cfg.DisableCache)},
			}, "")
			return nil
		},
	}
}

// maskKey hides all but the last four characters of an API key.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}
