// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/allista/GetIsolationSource/internal/accession"
	"github.com/allista/GetIsolationSource/internal/cache"
	"github.com/allista/GetIsolationSource/internal/config"
	"github.com/allista/GetIsolationSource/internal/entrez"
	"github.com/allista/GetIsolationSource/internal/genbank"
	"github.com/allista/GetIsolationSource/internal/prompts"
	"github.com/allista/GetIsolationSource/internal/report"
	"github.com/allista/GetIsolationSource/internal/session"
)

// fetchWorkers bounds concurrent efetch batches. The shared rate limiter
// is the real throttle; this only caps in-flight requests.
const fetchWorkers = 3

type fetchOptions struct {
	email     string
	apiKey    string
	output    string
	csv       bool
	listing   bool
	batchSize int
	noCache   bool
	quiet     bool
	verbose   bool
}

func runFetch(cmd *cobra.Command, args []string, opts *fetchOptions) error {
	sess, err := session.RequireFromCommand(cmd)
	if err != nil {
		return err
	}
	cfg := sess.Config

	// A single output file cannot hold several reports; each input gets
	// its own FILE.sources instead.
	if opts.output != "" && opts.output != "-" && len(args) > 1 {
		return errors.New("--output cannot be combined with multiple inputs; omit it to get a FILE.sources report per input")
	}

	// Flags win over environment and file values.
	if opts.email != "" {
		cfg.Email = opts.email
	}
	if opts.apiKey != "" {
		cfg.APIKey = opts.apiKey
	}
	if opts.batchSize > 0 {
		cfg.BatchSize = opts.batchSize
	}
	if opts.noCache {
		cfg.DisableCache = true
	}

	// First run without a configured e-mail: ask for it and offer to keep
	// it. The form needs the terminal, so a piped stdin (or stdin already
	// claimed as the accession stream) goes straight to the error.
	if cfg.Email == "" {
		if !isTerminal(os.Stdin) || slices.Contains(args, "-") {
			return errors.New("contact e-mail not configured; run 'get_isolation_sources config init' or pass --email")
		}
		if err := prompts.RunConfigForm(&cfg.Email, &cfg.APIKey); err != nil {
			return fmt.Errorf("contact e-mail not configured; run 'get_isolation_sources config init' or pass --email: %w", err)
		}
		if err := cfg.Save(sess.ConfigPath); err != nil {
			prompts.PrintWarning(fmt.Sprintf("could not save configuration: %v", err))
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(opts.verbose)
	client := entrez.NewClient(entrez.Options{
		Email:  cfg.Email,
		APIKey: cfg.APIKey,
		Logger: logger,
	})

	var store *cache.Cache
	if !cfg.DisableCache {
		path := cfg.CachePath
		if path == "" {
			if path, err = config.DefaultCachePath(); err != nil {
				return err
			}
		}
		if store, err = cache.Open(path); err != nil {
			// The cache is an optimization; a locked or unreadable file
			// must not block the run.
			prompts.PrintWarning(fmt.Sprintf("record cache unavailable: %v", err))
			store = nil
		} else {
			defer store.Close() //nolint:errcheck
		}
	}

	f := fetcher{
		client:   client,
		store:    store,
		batch:    cfg.BatchSize,
		progress: !opts.quiet && isTerminal(os.Stderr),
		log:      logger,
	}

	var failures []error
	for _, path := range args {
		if err := f.processFile(cmd.Context(), path, len(args), opts); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", inputName(path), err))
		}
	}
	return errors.Join(failures...)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// fetcher runs the accessions-to-report pipeline for one input file.
type fetcher struct {
	client   *entrez.Client
	store    *cache.Cache
	batch    int
	progress bool
	log      *slog.Logger
}

// isTerminal reports whether f is attached to a terminal; redirected
// streams get no progress bar and no interactive prompts.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (f *fetcher) processFile(ctx context.Context, path string, ninputs int, opts *fetchOptions) error {
	accs, err := readInput(path)
	if err != nil {
		return err
	}
	f.log.Debug("parsed input", "file", inputName(path), "accessions", len(accs))

	records, missing, err := f.fetchAll(ctx, accs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		prompts.PrintWarning(fmt.Sprintf("%d accession(s) not found in nuccore: %s",
			len(missing), strings.Join(missing, ", ")))
	}

	rep := report.Build(inputName(path), accs, records)
	return writeOutputs(rep, path, ninputs, opts)
}

// fetchAll resolves accessions through the cache and fetches the rest from
// Entrez in bounded-concurrency batches. Batch transport errors abort the
// file; missing accessions do not.
func (f *fetcher) fetchAll(ctx context.Context, accs []accession.Accession) (map[string]genbank.Record, []string, error) {
	records := make(map[string]genbank.Record, len(accs))
	var misses []string

	for _, acc := range accs {
		if f.store != nil {
			if rec, ok, err := f.store.Get(acc.Key()); err == nil && ok {
				records[acc.Key()] = rec
				continue
			}
		}
		misses = append(misses, acc.Key())
	}
	f.log.Debug("cache lookup done", "hits", len(accs)-len(misses), "misses", len(misses))
	if len(misses) == 0 {
		return records, nil, nil
	}

	var bar *pb.ProgressBar
	if f.progress {
		bar = pb.New(len(misses))
		bar.Output = os.Stderr
		bar.ShowTimeLeft = false
		bar.Start()
	}

	var (
		mu      sync.Mutex
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for _, ids := range batches(misses, f.batch) {
		ids := ids
		g.Go(func() error {
			recs, err := f.client.FetchGenBank(gctx, ids)
			var nf *entrez.NotFoundError
			if err != nil && !errors.As(err, &nf) {
				return err
			}

			mu.Lock()
			if nf != nil {
				missing = append(missing, nf.IDs...)
			}
			for _, rec := range recs {
				records[rec.Key()] = rec
				records[rec.Accession] = rec
			}
			mu.Unlock()

			if f.store != nil {
				if err := f.store.Put(recs); err != nil {
					f.log.Warn("failed to cache records", "error", err)
				}
			}
			if bar != nil {
				bar.Add(len(ids))
			}
			return nil
		})
	}
	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(missing)
	return records, missing, nil
}

// batches splits ids into chunks of at most size elements.
func batches(ids []string, size int) [][]string {
	if size < 1 {
		size = config.DefaultBatchSize
	}
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	return append(out, ids)
}

func readInput(path string) ([]accession.Accession, error) {
	if path == "-" {
		return accession.ReadList(os.Stdin, "stdin")
	}
	return accession.ReadFile(path)
}

func inputName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

// writeOutputs renders the text report (stdout, --output, or FILE.sources
// for multi-input runs) and the optional CSV.
func writeOutputs(rep *report.Report, path string, ninputs int, opts *fetchOptions) error {
	target := opts.output
	if target == "" && ninputs > 1 && path != "-" {
		target = path + ".sources"
	}

	if target == "" || target == "-" {
		if err := rep.WriteText(os.Stdout, opts.listing); err != nil {
			return err
		}
	} else {
		if err := writeTo(target, func(w io.Writer) error {
			return rep.WriteText(w, opts.listing)
		}); err != nil {
			return err
		}
		prompts.PrintResult([]prompts.ResultField{
			{Label: "Report", Value: target},
		}, "")
	}

	if !opts.csv {
		return nil
	}
	csvTarget := csvPath(path, opts.output)
	if err := writeTo(csvTarget, rep.WriteCSV); err != nil {
		return err
	}
	prompts.PrintResult([]prompts.ResultField{
		{Label: "CSV", Value: csvTarget},
	}, "")
	return nil
}

func writeTo(path string, render func(io.Writer) error) error {
	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func csvPath(input, output string) string {
	switch {
	case output != "" && output != "-":
		return strings.TrimSuffix(output, filepath.Ext(output)) + ".csv"
	case input == "-":
		return "isolation_sources.csv"
	default:
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".csv"
	}
}
