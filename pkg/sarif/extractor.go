// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/mbscanner/internal/textfile"
)

// Snippet placeholders. They appear verbatim in extraction artifacts.
const (
	SnippetBuildArtifact = "[Build artifact - skipped]"
	SnippetFileNotFound  = "[File not found]"
	SnippetOutOfRange    = "[Line out of range]"
)

// buildArtifactPrefixes lists generated-output directories that are never
// read for snippets.
var buildArtifactPrefixes = []string{
	"build/",
	"dist/",
	"out/",
	".next/",
	"target/",
	"public/build/",
	"static/build/",
}

// IsBuildArtifact reports whether a repository-relative path lives under a
// generated-output directory.
func IsBuildArtifact(path string) bool {
	for _, prefix := range buildArtifactPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Extractor resolves findings from one SARIF file against one repository
// working copy.
type Extractor struct {
	sarifPath      string
	repositoryPath string
	logger         *slog.Logger
	now            func() time.Time
}

// NewExtractor creates an extractor. A nil logger uses slog.Default().
func NewExtractor(sarifPath, repositoryPath string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		sarifPath:      sarifPath,
		repositoryPath: repositoryPath,
		logger:         logger,
		now:            time.Now,
	}
}

// Parse returns the findings of the extractor's SARIF file.
func (e *Extractor) Parse() ([]Finding, error) {
	return ParseFile(e.sarifPath, e.logger)
}

// Snippet returns the source lines a finding spans, or one of the
// placeholder strings when the lines cannot be produced. It never fails:
// read errors are folded into an "[Error: ...]" snippet.
func (e *Extractor) Snippet(f Finding) string {
	if IsBuildArtifact(f.FilePath) {
		e.logger.Debug("sarif.snippet.build_artifact", "file", f.FilePath)
		return SnippetBuildArtifact
	}

	path := filepath.Join(e.repositoryPath, f.FilePath)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("sarif.snippet.file_not_found", "path", path)
			return SnippetFileNotFound
		}
		e.logger.Error("sarif.snippet.error", "path", path, "err", err)
		return fmt.Sprintf("[Error: %v]", err)
	}

	lines, err := textfile.ReadLinesLenient(path)
	if err != nil {
		e.logger.Error("sarif.snippet.error", "path", path, "err", err)
		return fmt.Sprintf("[Error: %v]", err)
	}

	startIdx := f.StartLine - 1
	endIdx := f.EndLine
	if startIdx < 0 || endIdx > len(lines) {
		e.logger.Warn("sarif.snippet.out_of_range",
			"path", path,
			"start_line", f.StartLine,
			"end_line", f.EndLine,
			"file_lines", len(lines),
		)
		return SnippetOutOfRange
	}
	if endIdx <= startIdx {
		return ""
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// ExtractAll parses the SARIF file and attaches a snippet to every finding.
// It only reads; persisting the result is up to the caller.
func (e *Extractor) ExtractAll() (*Extraction, error) {
	findings, err := e.Parse()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(findings))
	for _, f := range findings {
		items = append(items, Item{Finding: f, CodeSnippet: e.Snippet(f)})
	}

	return &Extraction{
		Metadata: Metadata{
			SarifPath:      e.sarifPath,
			RepositoryPath: e.repositoryPath,
			TotalResults:   len(findings),
			ExtractionDate: e.now().Format("2006-01-02T15:04:05.000000"),
		},
		Results: items,
	}, nil
}
