// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package commands contains all CLI command definitions.
package commands

import (
	"github.com/allista/GetIsolationSource/internal/session"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command for the CLI.
// The root command itself runs the fetch pipeline.
func NewRootCmd() *cobra.Command {
	opts := &fetchOptions{}

	rootCmd := &cobra.Command{
		Use:   "get_isolation_sources [flags] FILE...",
		Short: "Retrieve isolation sources for sequences identified by accession numbers",
		Long: `Retrieve the isolation sources of sequence records identified by accession
numbers, as given by SILVA tools.

Input files may be FASTA (accessions taken from the headers, including the
SILVA ACCESSION.START.STOP form) or plain accession lists; use "-" to read
a list from stdin. Records are fetched from NCBI Entrez and the isolation
source of each record is reported, grouped and counted.`,
		Example: `  # Summarize a SILVA export
  get_isolation_sources arb-silva.de_2026-01-12.fasta

  # Accession list from stdin, per-accession listing, CSV output
  cat accessions.txt | get_isolation_sources -l --csv -o report.txt -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       session.PreRunLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args, opts)
		},
	}

	fl := rootCmd.Flags()
	fl.StringVarP(&opts.email, "email", "e", "", "Contact e-mail sent to NCBI (required by their usage policy)")
	fl.StringVar(&opts.apiKey, "api-key", "", "NCBI API key (raises the rate limit from 3/s to 10/s)")
	fl.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout (\"-\" for stdout)")
	fl.BoolVar(&opts.csv, "csv", false, "Also write a per-accession CSV next to each report")
	fl.BoolVarP(&opts.listing, "list", "l", false, "Include the per-accession listing in the report")
	fl.IntVar(&opts.batchSize, "batch-size", 0, "Accessions per efetch request (default 100, max 200)")
	fl.BoolVar(&opts.noCache, "no-cache", false, "Bypass the local record cache")
	fl.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress the progress bar")
	fl.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	registerCacheCmd(rootCmd)
	registerConfigCmd(rootCmd)
	registerVersionCmd(rootCmd)

	return rootCmd
}
