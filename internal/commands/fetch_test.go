// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package commands

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allista/GetIsolationSource/internal/accession"
	"github.com/allista/GetIsolationSource/internal/cache"
	"github.com/allista/GetIsolationSource/internal/entrez"
	"github.com/allista/GetIsolationSource/internal/genbank"
	"github.com/allista/GetIsolationSource/internal/report"
)

const flatfile = `LOCUS       AB064923                1520 bp    DNA     linear   BCT 14-JUL-2016
ACCESSION   AB064923
VERSION     AB064923.1
FEATURES             Location/Qualifiers
     source          1..1520
                     /organism="Geobacillus stearothermophilus"
                     /isolation_source="hot spring soil"
//
LOCUS       HG530070                1396 bp    DNA     linear   BCT 27-FEB-2024
ACCESSION   HG530070
VERSION     HG530070.1
FEATURES             Location/Qualifiers
     source          1..1396
                     /organism="Bacillus subtilis"
                     /isolation_source="rhizosphere soil"
//
`

func testFetcher(t *testing.T, handler http.HandlerFunc, store *cache.Cache) *fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &fetcher{
		client: entrez.NewClient(entrez.Options{
			BaseURL: srv.URL,
			Email:   "someone@example.org",
		}),
		store:    store,
		batch:    100,
		progress: false,
		log:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestFetcher_FetchAll(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var calls atomic.Int32
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(flatfile))
	}, store)

	accs := []accession.Accession{
		{ID: "AB064923", Version: 1},
		{ID: "HG530070"},
	}

	records, missing, err := f.fetchAll(context.Background(), accs)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, "hot spring soil", records["AB064923.1"].IsolationSource)
	assert.Equal(t, "rhizosphere soil", records["HG530070"].IsolationSource)
	assert.Equal(t, int32(1), calls.Load())

	// Second run is served from the cache.
	records, _, err = f.fetchAll(context.Background(), accs)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcher_FetchAll_Missing(t *testing.T) {
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(flatfile))
	}, nil)

	accs := []accession.Accession{
		{ID: "AB064923", Version: 1},
		{ID: "HG530070"},
		{ID: "XX999999"},
	}

	records, missing, err := f.fetchAll(context.Background(), accs)
	require.NoError(t, err)
	assert.Equal(t, []string{"XX999999"}, missing)
	assert.Len(t, records, 4) // two records, versioned + bare keys
}

func TestFetcher_FetchAll_ServerError(t *testing.T) {
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, nil)

	_, _, err := f.fetchAll(context.Background(), []accession.Accession{{ID: "AB064923"}})
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	got := batches(ids, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)

	got = batches(ids, 10)
	assert.Equal(t, [][]string{ids}, got)

	// Nonsense size falls back to the default.
	got = batches(ids, 0)
	assert.Equal(t, [][]string{ids}, got)
}

func TestCSVPath(t *testing.T) {
	assert.Equal(t, "input.csv", csvPath("input.fasta", ""))
	assert.Equal(t, "report.csv", csvPath("input.fasta", "report.txt"))
	assert.Equal(t, "isolation_sources.csv", csvPath("-", ""))
	assert.Equal(t, "input.csv", csvPath("input.fasta", "-"))
}

func TestInputName(t *testing.T) {
	assert.Equal(t, "stdin", inputName("-"))
	assert.Equal(t, "sample.fasta", inputName("/data/sample.fasta"))
}

func TestWriteOutputs_MultiInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sample.fasta")

	rep := report.Build("sample.fasta",
		[]accession.Accession{{ID: "AB064923", Version: 1}},
		map[string]genbank.Record{
			"AB064923.1": {
				Accession: "AB064923", Version: 1,
				Organism:        "Geobacillus stearothermophilus",
				IsolationSource: "hot spring soil",
			},
		})

	opts := &fetchOptions{csv: true}
	require.NoError(t, writeOutputs(rep, input, 2, opts))

	text, err := os.ReadFile(input + ".sources") //nolint:gosec // test file path
	require.NoError(t, err)
	assert.Contains(t, string(text), "hot spring soil")

	csvOut, err := os.ReadFile(filepath.Join(dir, "sample.csv")) //nolint:gosec // test file path
	require.NoError(t, err)
	assert.Contains(t, string(csvOut), "AB064923.1,Geobacillus stearothermophilus")
}

func TestWriteOutputs_SingleOutputRejectedForMultipleInputs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ENTREZ_EMAIL", "someone@example.org")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--output", "report.txt", "a.fasta", "b.fasta"})

	// The flag combination is rejected before any input is opened, so the
	// missing files never matter. One report file cannot hold two reports
	// without the second truncating the first.
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output cannot be combined with multiple inputs")
}

func TestWriteOutputs_StdoutAllowedForMultipleInputs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("ENTREZ_EMAIL", "someone@example.org")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--output", "-", "a.fasta", "b.fasta"})

	// "-" concatenates to stdout and overwrites nothing; the run proceeds
	// to the inputs and fails on the missing files instead.
	err := cmd.Execute()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "--output")
	assert.Contains(t, err.Error(), "a.fasta")
}

func TestRunFetch_PipedStdinWithoutEmail(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ENTREZ_EMAIL", "")
	t.Setenv("NCBI_API_KEY", "")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"-"})

	// stdin is the accession stream here, so the interactive e-mail form
	// must not run; the error points at config init / --email instead.
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email")
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stderr")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.False(t, isTerminal(f))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(not set)", maskKey(""))
	assert.Equal(t, "****", maskKey("abc"))
	assert.Equal(t, "****6789", maskKey("123456789"))
}
