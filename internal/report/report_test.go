// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allista/GetIsolationSource/internal/accession"
	"github.com/allista/GetIsolationSource/internal/genbank"
)

func testReport() *Report {
	accs := []accession.Accession{
		{ID: "AB064923", Version: 1},
		{ID: "HG530070"},
		{ID: "KF515699", Version: 1},
		{ID: "KJ000001", Version: 1},
		{ID: "XX999999"},
	}
	records := map[string]genbank.Record{
		"AB064923.1": {
			Accession: "AB064923", Version: 1,
			Organism:        "Geobacillus stearothermophilus",
			IsolationSource: "Hot spring soil",
			GeoLocName:      "Japan: Beppu",
		},
		"HG530070": {
			Accession: "HG530070", Version: 1,
			Organism:        "Bacillus subtilis",
			IsolationSource: "hot  spring soil.",
		},
		"KF515699.1": {
			Accession: "KF515699", Version: 1,
			Organism: "uncultured bacterium",
			// no isolation_source annotation
		},
		"KJ000001.1": {
			Accession: "KJ000001", Version: 1,
			Organism:        "Bacillus subtilis",
			IsolationSource: "rhizosphere soil",
		},
	}
	return Build("sample.fasta", accs, records)
}

func TestBuild(t *testing.T) {
	rep := testReport()
	require.Len(t, rep.Entries, 5)

	// Versioned and bare lookups both resolve.
	assert.True(t, rep.Entries[0].Found)
	assert.True(t, rep.Entries[1].Found)
	assert.Equal(t, "HG530070.1", rep.Entries[1].Accession)

	// Unknown accession stays in the report as not found.
	assert.False(t, rep.Entries[4].Found)
	assert.Equal(t, "XX999999", rep.Entries[4].Accession)
}

func TestGroups(t *testing.T) {
	groups := testReport().Groups()
	require.Len(t, groups, 4)

	// Case, spacing and trailing punctuation variants collapse into one
	// group; the largest group sorts first.
	top := groups[0]
	assert.Equal(t, 2, top.Count)
	assert.Contains(t, []string{"Hot spring soil", "hot  spring soil."}, top.Display)
	assert.Equal(t,
		[]string{"Bacillus subtilis", "Geobacillus stearothermophilus"}, top.Organisms)

	assert.Equal(t, "rhizosphere soil", groups[1].Display)
	assert.Equal(t, 1, groups[1].Count)

	// Bucket groups always sort last.
	assert.Equal(t, NotAnnotated, groups[2].Display)
	assert.Equal(t, NotFound, groups[3].Display)
}

func TestWriteText_Summary(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, testReport().WriteText(&buf, false))
	out := buf.String()

	assert.Contains(t, out, "# sample.fasta: 5 accession(s)")
	assert.Contains(t, out, "ISOLATION SOURCE")
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, NotAnnotated)
	assert.Contains(t, out, NotFound)
	// Listing off by default.
	assert.NotContains(t, out, "ACCESSION\t")
	assert.NotContains(t, out, "AB064923.1")
}

func TestWriteText_WithListing(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, testReport().WriteText(&buf, true))
	out := buf.String()

	assert.Contains(t, out, "AB064923.1")
	assert.Contains(t, out, "Geobacillus stearothermophilus")
	assert.Contains(t, out, "XX999999")
}

func TestWriteCSV(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, testReport().WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6) // header + 5 entries
	assert.Equal(t,
		"accession,organism,strain,isolation_source,host,geo_loc_name,found", lines[0])
	assert.Equal(t,
		"AB064923.1,Geobacillus stearothermophilus,,Hot spring soil,,Japan: Beppu,true", lines[1])
	assert.Equal(t, "XX999999,,,,,,false", lines[5])
}

func TestOrganismSummary_Truncates(t *testing.T) {
	s := organismSummary([]string{"a", "b", "c", "d", "e"})
	assert.Equal(t, "a; b; c; ... (2 more)", s)
}
