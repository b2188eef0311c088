// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package genbank parses GenBank flatfiles as returned by Entrez efetch
// (rettype=gb, retmode=text) into record metadata. Only the fields needed
// for isolation-source reporting are extracted; sequence data is skipped.
package genbank

import "strconv"

// Record holds the metadata of a single GenBank entry.
type Record struct {
	// Locus is the LOCUS name, usually equal to the accession.
	Locus string `json:"locus,omitempty"`
	// Accession is the primary accession from the ACCESSION line.
	Accession string `json:"accession"`
	// Version is the record version from the VERSION line, 0 if absent.
	Version int `json:"version,omitempty"`
	// Definition is the DEFINITION text, joined to a single line.
	Definition string `json:"definition,omitempty"`

	// Source feature qualifiers.
	Organism        string `json:"organism,omitempty"`
	Strain          string `json:"strain,omitempty"`
	IsolationSource string `json:"isolation_source,omitempty"`
	Host            string `json:"host,omitempty"`
	// GeoLocName is /geo_loc_name, falling back to the retired /country
	// qualifier when the record predates the INSDC rename.
	GeoLocName string `json:"geo_loc_name,omitempty"`
}

// Key returns the versioned accession ("AB064923.1"), or the bare accession
// when no version is known.
func (r Record) Key() string {
	if r.Version > 0 {
		return r.Accession + "." + strconv.Itoa(r.Version)
	}
	return r.Accession
}
