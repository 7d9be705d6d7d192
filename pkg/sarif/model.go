// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

// The document types below cover only the subset of SARIF 2.1.0 that the
// extractor reads. Pointer fields distinguish "absent" from zero values.

type document struct {
	Runs []run `json:"runs"`
}

type run struct {
	Results []result `json:"results"`
}

type result struct {
	Message   *message   `json:"message"`
	Level     *string    `json:"level"`
	Locations []location `json:"locations"`
}

type message struct {
	Text *string `json:"text"`
}

type location struct {
	PhysicalLocation physicalLocation `json:"physicalLocation"`
}

type physicalLocation struct {
	ArtifactLocation artifactLocation `json:"artifactLocation"`
	Region           region           `json:"region"`
}

type artifactLocation struct {
	URI string `json:"uri"`
}

type region struct {
	StartLine   *int `json:"startLine"`
	EndLine     *int `json:"endLine"`
	StartColumn *int `json:"startColumn"`
	EndColumn   *int `json:"endColumn"`
}

// Finding is one static-analysis result resolved to a file and line range.
type Finding struct {
	// ID is the zero-based index of the result in the run's result list.
	ID int `json:"id"`

	// FilePath is relative to the analyzed source root, percent-decoded.
	FilePath string `json:"file_path"`

	// StartLine and EndLine are 1-based; EndLine defaults to StartLine.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Columns are carried through but never narrow the snippet.
	StartColumn *int `json:"start_column"`
	EndColumn   *int `json:"end_column"`

	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Item is a Finding enriched with the source text it points at.
type Item struct {
	Finding
	CodeSnippet string `json:"code_snippet"`
}

// Metadata describes one extraction run.
type Metadata struct {
	SarifPath      string `json:"sarif_path"`
	RepositoryPath string `json:"repository_path"`
	TotalResults   int    `json:"total_results"`
	ExtractionDate string `json:"extraction_date"`
}

// Extraction is the JSON artifact written for each project.
type Extraction struct {
	Metadata Metadata `json:"metadata"`
	Results  []Item   `json:"results"`
}
