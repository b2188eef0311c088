// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

package genbank

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoRecords indicates input that contained no GenBank entries at all.
var ErrNoRecords = errors.New("no GenBank records found")

// Parse reads a multi-record GenBank flatfile and returns the parsed records
// in input order. Unknown keywords and features are skipped; a record is
// terminated by the "//" line.
func Parse(r io.Reader) ([]Record, error) {
	p := parser{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		if err := p.feed(sc.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	p.flushRecord()

	if len(p.records) == 0 {
		return nil, ErrNoRecords
	}
	return p.records, nil
}

// parser is the line-level state machine for the flatfile.
type parser struct {
	records []Record

	cur     *Record
	section string // current top-level keyword
	inner   string // current feature key inside FEATURES

	// sourceSeen guards against multiple source features; only the first
	// one describes the sequenced sample.
	sourceSeen bool

	// pending qualifier being accumulated across lines
	qualKey  string
	qualVal  strings.Builder
	qualOpen bool // inside an unterminated quoted value
}

// Flatfile layout: top-level keywords start at column 0 with content at
// column 12; feature keys are indented 5 spaces with qualifiers at column 21.
const (
	contentCol   = 12
	qualifierCol = 21
)

func (p *parser) feed(raw string) error {
	// Top-level keyword line.
	if len(raw) > 0 && raw[0] != ' ' {
		keyword, content := splitKeyword(raw)
		return p.keyword(keyword, content)
	}

	if p.cur == nil {
		return nil
	}

	switch p.section {
	case "DEFINITION":
		if strings.TrimSpace(raw) != "" {
			p.cur.Definition += " " + strings.TrimSpace(raw)
		}
	case "FEATURES":
		return p.featureLine(raw)
	}
	return nil
}

func (p *parser) keyword(keyword, content string) error {
	switch keyword {
	case "LOCUS":
		p.flushRecord()
		p.cur = &Record{}
		if fields := strings.Fields(content); len(fields) > 0 {
			p.cur.Locus = fields[0]
		}
	case "//":
		p.flushRecord()
	}

	if p.cur == nil {
		p.section = keyword
		return nil
	}

	switch keyword {
	case "DEFINITION":
		p.cur.Definition = strings.TrimSpace(content)
	case "ACCESSION":
		// Secondary accessions may follow the primary one.
		if fields := strings.Fields(content); len(fields) > 0 {
			p.cur.Accession = fields[0]
		}
	case "VERSION":
		if fields := strings.Fields(content); len(fields) > 0 {
			acc, ver, ok := splitVersion(fields[0])
			if ok {
				p.cur.Version = ver
				if p.cur.Accession == "" {
					p.cur.Accession = acc
				}
			}
		}
	case "FEATURES", "ORIGIN", "CONTIG":
		p.closeQualifier()
		p.inner = ""
	}
	p.section = keyword
	return nil
}

func (p *parser) featureLine(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	// A new feature key starts before the qualifier column.
	if indent(raw) < qualifierCol {
		p.closeQualifier()
		p.inner = strings.Fields(trimmed)[0]
		if p.inner == "source" && !p.sourceSeen {
			p.sourceSeen = true
		} else if p.inner == "source" {
			p.inner = "" // only the first source feature is read
		}
		return nil
	}

	if p.inner != "source" {
		return nil
	}

	// Continuation of a multi-line quoted value.
	if p.qualOpen {
		p.qualVal.WriteByte(' ')
		if closed := strings.HasSuffix(trimmed, `"`); closed {
			p.qualVal.WriteString(strings.TrimSuffix(trimmed, `"`))
			p.qualOpen = false
			p.closeQualifier()
		} else {
			p.qualVal.WriteString(trimmed)
		}
		return nil
	}

	if !strings.HasPrefix(trimmed, "/") {
		// Stray continuation of an unquoted value; append as-is.
		if p.qualKey != "" {
			p.qualVal.WriteByte(' ')
			p.qualVal.WriteString(trimmed)
		}
		return nil
	}

	p.closeQualifier()
	key, val, hasVal := strings.Cut(trimmed[1:], "=")
	p.qualKey = key
	if !hasVal {
		p.closeQualifier()
		return nil
	}
	if strings.HasPrefix(val, `"`) {
		val = val[1:]
		if strings.HasSuffix(val, `"`) && val != "" {
			p.qualVal.WriteString(strings.TrimSuffix(val, `"`))
			p.closeQualifier()
		} else {
			p.qualVal.WriteString(val)
			p.qualOpen = true
		}
		return nil
	}
	p.qualVal.WriteString(val)
	p.closeQualifier()
	return nil
}

// closeQualifier assigns the accumulated qualifier value to the record.
func (p *parser) closeQualifier() {
	if p.qualKey == "" || p.cur == nil {
		p.qualKey = ""
		p.qualVal.Reset()
		p.qualOpen = false
		return
	}
	val := strings.TrimSpace(p.qualVal.String())
	switch p.qualKey {
	case "organism":
		p.cur.Organism = val
	case "strain":
		p.cur.Strain = val
	case "isolation_source":
		p.cur.IsolationSource = val
	case "host":
		p.cur.Host = val
	case "geo_loc_name":
		p.cur.GeoLocName = val
	case "country":
		// Retired in favor of /geo_loc_name; keep unless the new
		// qualifier was already seen.
		if p.cur.GeoLocName == "" {
			p.cur.GeoLocName = val
		}
	}
	p.qualKey = ""
	p.qualVal.Reset()
	p.qualOpen = false
}

func (p *parser) flushRecord() {
	p.closeQualifier()
	if p.cur != nil && (p.cur.Accession != "" || p.cur.Locus != "") {
		if p.cur.Accession == "" {
			p.cur.Accession = p.cur.Locus
		}
		p.records = append(p.records, *p.cur)
	}
	p.cur = nil
	p.inner = ""
	p.sourceSeen = false
	p.section = ""
}

func splitKeyword(raw string) (keyword, content string) {
	if len(raw) > contentCol {
		return strings.TrimSpace(raw[:contentCol]), raw[contentCol:]
	}
	return strings.TrimSpace(raw), ""
}

// splitVersion parses "AB064923.1" into ("AB064923", 1, true).
func splitVersion(token string) (string, int, bool) {
	i := strings.LastIndexByte(token, '.')
	if i < 0 {
		return token, 0, false
	}
	v, err := strconv.Atoi(token[i+1:])
	if err != nil || v <= 0 {
		return token, 0, false
	}
	return token[:i], v, true
}

func indent(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			return i
		}
	}
	return len(s)
}
