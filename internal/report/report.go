// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package report aggregates fetched records into isolation-source groups
// and renders the text and CSV reports.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/allista/GetIsolationSource/internal/accession"
	"github.com/allista/GetIsolationSource/internal/genbank"
)

// Labels for records without a usable isolation source.
const (
	NotAnnotated = "[no isolation source annotated]"
	NotFound     = "[record not found]"
)

// Entry is the per-accession result.
type Entry struct {
	Accession       string
	Organism        string
	Strain          string
	IsolationSource string
	Host            string
	GeoLocName      string
	Found           bool
}

// Group is an aggregated isolation source with its usage count.
type Group struct {
	// Display is the most frequent original spelling within the group.
	Display string
	Count   int
	// Organisms are the distinct organisms seen in the group, sorted.
	Organisms []string
}

// Report holds per-accession entries and their aggregation.
type Report struct {
	Title   string
	Entries []Entry
}

// Build joins the requested accessions with the fetched records. Records
// are matched by versioned key first, then by bare accession.
func Build(title string, accs []accession.Accession, records map[string]genbank.Record) *Report {
	rep := &Report{Title: title}
	for _, acc := range accs {
		rec, ok := records[acc.Key()]
		if !ok {
			rec, ok = records[acc.ID]
		}
		if !ok {
			rep.Entries = append(rep.Entries, Entry{Accession: acc.Key()})
			continue
		}
		rep.Entries = append(rep.Entries, Entry{
			Accession:       rec.Key(),
			Organism:        rec.Organism,
			Strain:          rec.Strain,
			IsolationSource: rec.IsolationSource,
			Host:            rec.Host,
			GeoLocName:      rec.GeoLocName,
			Found:           true,
		})
	}
	return rep
}

// normalize produces the grouping key: lower-cased, whitespace collapsed,
// trailing punctuation dropped.
func normalize(source string) string {
	s := strings.ToLower(strings.TrimRight(strings.TrimSpace(source), "."))
	return strings.Join(strings.Fields(s), " ")
}

// Groups aggregates the entries, sorted by descending count then name.
// The NotAnnotated and NotFound buckets always sort last.
func (r *Report) Groups() []Group {
	type agg struct {
		spellings map[string]int
		organisms map[string]bool
		count     int
	}
	byKey := map[string]*agg{}

	for _, e := range r.Entries {
		key := normalize(e.IsolationSource)
		display := e.IsolationSource
		switch {
		case !e.Found:
			key, display = NotFound, NotFound
		case key == "":
			key, display = NotAnnotated, NotAnnotated
		}
		a := byKey[key]
		if a == nil {
			a = &agg{spellings: map[string]int{}, organisms: map[string]bool{}}
			byKey[key] = a
		}
		a.count++
		a.spellings[display]++
		if e.Organism != "" {
			a.organisms[e.Organism] = true
		}
	}

	groups := make([]Group, 0, len(byKey))
	for _, a := range byKey {
		g := Group{Count: a.count}
		for spelling, n := range a.spellings {
			if g.Display == "" || n > a.spellings[g.Display] ||
				(n == a.spellings[g.Display] && spelling < g.Display) {
				g.Display = spelling
			}
		}
		for org := range a.organisms {
			g.Organisms = append(g.Organisms, org)
		}
		sort.Strings(g.Organisms)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		gi, gj := groups[i], groups[j]
		bi, bj := isBucket(gi.Display), isBucket(gj.Display)
		if bi != bj {
			return !bi
		}
		if gi.Count != gj.Count {
			return gi.Count > gj.Count
		}
		return gi.Display < gj.Display
	})
	return groups
}

func isBucket(display string) bool {
	return display == NotAnnotated || display == NotFound
}

// WriteText renders the report: a summary table of isolation sources with
// counts and percentages, and optionally the per-accession listing.
func (r *Report) WriteText(w io.Writer, withListing bool) error {
	total := len(r.Entries)
	if r.Title != "" {
		if _, err := fmt.Fprintf(w, "# %s: %d accession(s)\n\n", r.Title, total); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ISOLATION SOURCE\tCOUNT\tPERCENT\tORGANISMS")
	for _, g := range r.Groups() {
		pct := float64(g.Count) / float64(total) * 100
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%s\n",
			g.Display, g.Count, pct, organismSummary(g.Organisms))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !withListing {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ACCESSION\tORGANISM\tISOLATION SOURCE\tLOCATION")
	for _, e := range r.Entries {
		source := e.IsolationSource
		switch {
		case !e.Found:
			source = NotFound
		case source == "":
			source = NotAnnotated
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Accession, e.Organism, source, e.GeoLocName)
	}
	return tw.Flush()
}

// organismSummary keeps the listing readable for diverse groups.
func organismSummary(organisms []string) string {
	const maxShown = 3
	if len(organisms) <= maxShown {
		return strings.Join(organisms, "; ")
	}
	return fmt.Sprintf("%s; ... (%d more)",
		strings.Join(organisms[:maxShown], "; "), len(organisms)-maxShown)
}

// WriteCSV writes one row per accession.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"accession", "organism", "strain", "isolation_source", "host", "geo_loc_name", "found",
	}); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if err := cw.Write([]string{
			e.Accession, e.Organism, e.Strain, e.IsolationSource,
			e.Host, e.GeoLocName, fmt.Sprintf("%t", e.Found),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
