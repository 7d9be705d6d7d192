// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbtest "github.com/kraklabs/mbscanner/internal/testing"
)

// numberedLines returns "line 1\nline 2\n...\nline n\n".
func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestExtractor_Snippet(t *testing.T) {
	repo := t.TempDir()
	mbtest.WriteFile(t, filepath.Join(repo, "src", "app.js"), numberedLines(5))
	mbtest.WriteFile(t, filepath.Join(repo, "src", "crlf.js"), "one\r\ntwo\r\nthree")
	mbtest.WriteFile(t, filepath.Join(repo, "src", "latin1.js"), "caf\xe9\nok\n")
	mbtest.WriteFile(t, filepath.Join(repo, "src", "哔.js"), "wide\n")

	ex := NewExtractor("unused.sarif", repo, nil)

	tests := []struct {
		name    string
		finding Finding
		want    string
	}{
		{"single line", Finding{FilePath: "src/app.js", StartLine: 2, EndLine: 2}, "line 2"},
		{"range", Finding{FilePath: "src/app.js", StartLine: 2, EndLine: 4}, "line 2\nline 3\nline 4"},
		{"last line", Finding{FilePath: "src/app.js", StartLine: 5, EndLine: 5}, "line 5"},
		{"past end", Finding{FilePath: "src/app.js", StartLine: 5, EndLine: 6}, SnippetOutOfRange},
		{"zero start", Finding{FilePath: "src/app.js", StartLine: 0, EndLine: 1}, SnippetOutOfRange},
		{"inverted range", Finding{FilePath: "src/app.js", StartLine: 4, EndLine: 2}, ""},
		{"crlf and no trailing newline", Finding{FilePath: "src/crlf.js", StartLine: 2, EndLine: 3}, "two\nthree"},
		{"invalid utf-8 replaced", Finding{FilePath: "src/latin1.js", StartLine: 1, EndLine: 1}, "caf�"},
		{"non-ascii path", Finding{FilePath: "src/哔.js", StartLine: 1, EndLine: 1}, "wide"},
		{"missing file", Finding{FilePath: "src/nope.js", StartLine: 1, EndLine: 1}, SnippetFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Snippet(tt.finding))
		})
	}
}

func TestExtractor_BuildArtifacts(t *testing.T) {
	repo := t.TempDir()
	prefixes := []string{"build/", "dist/", "out/", ".next/", "target/", "public/build/", "static/build/"}

	ex := NewExtractor("unused.sarif", repo, nil)
	for _, prefix := range prefixes {
		t.Run(prefix, func(t *testing.T) {
			// Present on disk or not, artifacts are never read.
			rel := prefix + "bundle.js"
			mbtest.WriteFile(t, filepath.Join(repo, rel), "x\n")

			assert.True(t, IsBuildArtifact(rel))
			assert.Equal(t, SnippetBuildArtifact, ex.Snippet(Finding{FilePath: rel, StartLine: 1, EndLine: 1}))
			assert.Equal(t, SnippetBuildArtifact, ex.Snippet(Finding{FilePath: prefix + "missing.js", StartLine: 1, EndLine: 1}))
		})
	}

	for _, rel := range []string{"src/build/a.js", "builder/a.js", "public/a.js", "outer/a.js"} {
		assert.False(t, IsBuildArtifact(rel), rel)
	}
}

func TestExtractor_SnippetReadError(t *testing.T) {
	repo := t.TempDir()
	// A directory where a file is expected cannot be read as text.
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "src", "dir.js"), 0o755))

	ex := NewExtractor("unused.sarif", repo, nil)
	got := ex.Snippet(Finding{FilePath: "src/dir.js", StartLine: 1, EndLine: 1})
	assert.True(t, strings.HasPrefix(got, "[Error: "), got)
}

func TestExtractor_ExtractAll(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	mbtest.WriteFile(t, filepath.Join(repo, "src", "server.js"), numberedLines(12))
	mbtest.WriteFile(t, filepath.Join(repo, "lib", "util.js"), numberedLines(6))
	mbtest.WriteFile(t, filepath.Join(repo, "index.js"), numberedLines(3))

	sarifPath := mbtest.WriteSARIF(t, filepath.Join(dir, "q.sarif"),
		mbtest.SARIFResult{URI: "src/server.js", StartLine: 5, EndLine: 7, Message: "first", Level: "error"},
		mbtest.SARIFResult{URI: "src/server.js", StartLine: 10, EndLine: 12, Message: "second"},
		mbtest.SARIFResult{URI: "index.js", StartLine: 1, Message: "third", Level: "note"},
	)

	ex := NewExtractor(sarifPath, repo, nil)
	ex.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 45, 123456000, time.Local) }

	got, err := ex.ExtractAll()
	require.NoError(t, err)

	assert.Equal(t, sarifPath, got.Metadata.SarifPath)
	assert.Equal(t, repo, got.Metadata.RepositoryPath)
	assert.Equal(t, 3, got.Metadata.TotalResults)
	assert.Equal(t, "2025-03-01T12:30:45.123456", got.Metadata.ExtractionDate)

	require.Len(t, got.Results, 3)
	placeholders := []string{SnippetBuildArtifact, SnippetFileNotFound, SnippetOutOfRange}
	for i, item := range got.Results {
		assert.Equal(t, i, item.ID)
		assert.NotContains(t, placeholders, item.CodeSnippet)
		assert.False(t, strings.HasPrefix(item.CodeSnippet, "[Error:"))
	}

	assert.Equal(t, "line 5\nline 6\nline 7", got.Results[0].CodeSnippet)
	assert.Equal(t, "line 10\nline 11\nline 12", got.Results[1].CodeSnippet)
	assert.Equal(t, "line 1", got.Results[2].CodeSnippet)
	assert.Equal(t, 1, got.Results[2].EndLine)
	assert.Equal(t, "note", got.Results[2].Severity)
}

func TestExtractor_ExtractAllNoResults(t *testing.T) {
	dir := t.TempDir()
	sarifPath := mbtest.WriteSARIF(t, filepath.Join(dir, "q.sarif"))

	got, err := NewExtractor(sarifPath, dir, nil).ExtractAll()
	require.NoError(t, err)
	assert.Equal(t, 0, got.Metadata.TotalResults)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestExtractor_ExtractAllMissingSARIF(t *testing.T) {
	_, err := NewExtractor(filepath.Join(t.TempDir(), "none.sarif"), t.TempDir(), nil).ExtractAll()
	require.ErrorIs(t, err, ErrNotFound)
}
