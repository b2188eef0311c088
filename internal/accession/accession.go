// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package accession extracts accession numbers from sequence input files.
//
// Two input shapes are supported: FASTA files whose headers carry the
// accession as the first token (including the SILVA/ARB export form
// ACCESSION.START.STOP), and plain lists of accessions separated by
// whitespace or commas.
package accession

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrBadAccession indicates a token that cannot be parsed as an accession.
var ErrBadAccession = errors.New("invalid accession")

// Accession identifies a single sequence record.
type Accession struct {
	// ID is the primary accession, e.g. "HG530070" or "NR_074540".
	ID string
	// Version is the record version (the "1" in "AB064923.1"), 0 if absent.
	Version int
	// Start and Stop are SILVA alignment coordinates, 0 if absent.
	// SILVA headers carry the unversioned accession: ACCESSION.START.STOP.
	Start int
	Stop  int
}

// Key returns the identifier used for fetching and caching: the versioned
// accession when a version is known, the bare accession otherwise.
func (a Accession) Key() string {
	if a.Version > 0 {
		return a.ID + "." + strconv.Itoa(a.Version)
	}
	return a.ID
}

func (a Accession) String() string { return a.Key() }

// Parse parses a single accession token. Accepted forms:
//
//	AB064923           bare accession
//	AB064923.1         versioned accession
//	AB064923.25.1520   SILVA header form (accession.start.stop)
func Parse(token string) (Accession, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), ">")
	if token == "" {
		return Accession{}, fmt.Errorf("%w: empty token", ErrBadAccession)
	}

	parts := strings.Split(token, ".")
	if err := validateID(parts[0]); err != nil {
		return Accession{}, err
	}
	acc := Accession{ID: parts[0]}

	switch len(parts) {
	case 1:
		return acc, nil
	case 2:
		v, err := strconv.Atoi(parts[1])
		if err != nil || v <= 0 {
			return Accession{}, fmt.Errorf("%w: bad version in %q", ErrBadAccession, token)
		}
		acc.Version = v
		return acc, nil
	case 3:
		start, err1 := strconv.Atoi(parts[1])
		stop, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || start <= 0 || stop < start {
			return Accession{}, fmt.Errorf("%w: bad coordinates in %q", ErrBadAccession, token)
		}
		acc.Start, acc.Stop = start, stop
		return acc, nil
	default:
		return Accession{}, fmt.Errorf("%w: %q", ErrBadAccession, token)
	}
}

// validateID checks the primary accession shape: starts with a letter,
// contains only upper-case letters, digits and at most one underscore
// (RefSeq accessions like NR_074540).
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty accession", ErrBadAccession)
	}
	underscores := 0
	for i, r := range id {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("%w: %q starts with a digit", ErrBadAccession, id)
			}
		case r == '_':
			underscores++
			if underscores > 1 {
				return fmt.Errorf("%w: %q", ErrBadAccession, id)
			}
		default:
			return fmt.Errorf("%w: %q", ErrBadAccession, id)
		}
	}
	return nil
}

// fastaExtensions are recognized FASTA file suffixes; anything else is
// treated as an accession list.
var fastaExtensions = map[string]bool{
	".fasta": true,
	".fa":    true,
	".fna":   true,
	".fsa":   true,
}

// ReadFile extracts accessions from path. FASTA is detected by extension or,
// failing that, by a leading '>' in the content. Duplicates (by Key) are
// dropped, first occurrence wins.
func ReadFile(path string) ([]Accession, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	br := bufio.NewReader(f)
	fasta := fastaExtensions[strings.ToLower(filepath.Ext(path))]
	if !fasta {
		if first, err := peekFirstByte(br); err == nil && first == '>' {
			fasta = true
		}
	}

	if fasta {
		return readFASTA(br, path)
	}
	return readList(br, path)
}

// ReadList extracts accessions from a plain list, e.g. stdin.
func ReadList(r io.Reader, name string) ([]Accession, error) {
	return readList(bufio.NewReader(r), name)
}

// peekFirstByte returns the first non-whitespace byte without consuming it.
func peekFirstByte(br *bufio.Reader) (byte, error) {
	for n := 1; ; n++ {
		buf, err := br.Peek(n)
		if err != nil {
			return 0, err
		}
		c := buf[n-1]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return c, nil
		}
	}
}

func readFASTA(br *bufio.Reader, name string) ([]Accession, error) {
	var (
		accs []Accession
		seen = map[string]bool{}
		line int
	)
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, ">") {
			continue
		}
		token := strings.Fields(text)[0]
		acc, err := Parse(token)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		if !seen[acc.Key()] {
			seen[acc.Key()] = true
			accs = append(accs, acc)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(accs) == 0 {
		return nil, fmt.Errorf("%s: no sequence headers found", name)
	}
	return accs, nil
}

func readList(br *bufio.Reader, name string) ([]Accession, error) {
	var (
		accs []Accession
		seen = map[string]bool{}
		line int
	)
	sc := bufio.NewScanner(br)
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, token := range strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			acc, err := Parse(token)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, line, err)
			}
			if !seen[acc.Key()] {
				seen[acc.Key()] = true
				accs = append(accs, acc)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(accs) == 0 {
		return nil, fmt.Errorf("%s: no accessions found", name)
	}
	return accs, nil
}
