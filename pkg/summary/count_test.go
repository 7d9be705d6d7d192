// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package summary

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbtest "github.com/kraklabs/mbscanner/internal/testing"
)

// writeCounts writes one SARIF file per project with the given number of
// results and returns the query directory.
func writeCounts(t *testing.T, counts map[string]int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "id_10")
	for stem, n := range counts {
		results := make([]mbtest.SARIFResult, n)
		for i := range results {
			results[i] = mbtest.SARIFResult{URI: "index.js", StartLine: i + 1}
		}
		mbtest.WriteSARIF(t, filepath.Join(dir, stem+".sarif"), results...)
	}
	return dir
}

func intPtr(v int) *int { return &v }

func TestCountResults(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr error
	}{
		{"three results", `{"runs":[{"results":[{},{},{}]}]}`, 3, nil},
		{"first run only", `{"runs":[{"results":[{}]},{"results":[{},{}]}]}`, 1, nil},
		{"no results key", `{"runs":[{"tool":{}}]}`, 0, nil},
		{"empty runs", `{"runs":[]}`, 0, ErrFormat},
		{"missing runs", `{"version":"2.1.0"}`, 0, ErrFormat},
		{"bad json", `{"runs":`, 0, ErrFormat},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := mbtest.WriteFile(t, filepath.Join(dir, fmt.Sprintf("%d.sarif", i)), tt.content)

			got, err := CountResults(path)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountResults_ErrorMessages(t *testing.T) {
	dir := t.TempDir()

	missingRuns := mbtest.WriteFile(t, filepath.Join(dir, "a.sarif"), `{"runs":[]}`)
	_, err := CountResults(missingRuns)
	assert.EqualError(t, err, "invalid SARIF format (missing runs): "+missingRuns)

	_, err = CountResults(filepath.Join(dir, "none.sarif"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "SARIF file not found: "+filepath.Join(dir, "none.sarif"))
}

func TestFromDirectory_RoundTrip(t *testing.T) {
	counts := map[string]int{
		"facebook-react":   15,
		"microsoft-vscode": 8,
		"vercel-next.js":   0,
		"nodejs-node":      3,
	}
	dir := writeCounts(t, counts)

	got, err := FromDirectory(dir, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"facebook/react":   15,
		"microsoft/vscode": 8,
		"vercel/next.js":   0,
		"nodejs/node":      3,
	}, got)

	s := New("id_10", got, nil)
	assert.Equal(t, len(counts), s.TotalProjects)
}

func TestFromDirectory_Threshold(t *testing.T) {
	dir := writeCounts(t, map[string]int{"facebook-react": 15, "microsoft-vscode": 8})

	got, err := FromDirectory(dir, intPtr(10), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"facebook/react": 15}, got)

	// The threshold is inclusive.
	got, err = FromDirectory(dir, intPtr(8), nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFromDirectory_ThresholdMonotonic(t *testing.T) {
	dir := writeCounts(t, map[string]int{"a-a": 0, "b-b": 1, "c-c": 2, "d-d": 5, "e-e": 5, "f-f": 9})

	prev, err := FromDirectory(dir, intPtr(0), nil)
	require.NoError(t, err)
	for threshold := 1; threshold <= 10; threshold++ {
		cur, err := FromDirectory(dir, intPtr(threshold), nil)
		require.NoError(t, err)
		for project := range cur {
			assert.Contains(t, prev, project, "threshold %d", threshold)
		}
		assert.LessOrEqual(t, len(cur), len(prev))
		prev = cur
	}
}

func TestFromDirectory_SkipsBadFiles(t *testing.T) {
	dir := writeCounts(t, map[string]int{"good-repo": 2})
	mbtest.WriteFile(t, filepath.Join(dir, "bad-json.sarif"), "{")
	mbtest.WriteFile(t, filepath.Join(dir, "no-runs.sarif"), `{"runs":[]}`)
	mbtest.WriteFile(t, filepath.Join(dir, "other-file.json"), `{"runs":[{"results":[{}]}]}`)

	got, err := FromDirectory(dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"good/repo": 2}, got)
}

func TestFromDirectory_FirstHyphenOnly(t *testing.T) {
	dir := writeCounts(t, map[string]int{"vuejs-vue-router": 1})

	got, err := FromDirectory(dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"vuejs/vue-router": 1}, got)
}

func TestFromDirectory_Missing(t *testing.T) {
	_, err := FromDirectory(filepath.Join(t.TempDir(), "nope"), nil, nil)
	require.ErrorIs(t, err, ErrNotFound)

	file := mbtest.WriteFile(t, filepath.Join(t.TempDir(), "file"), "")
	_, err = FromDirectory(file, nil, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFromDirectory_Empty(t *testing.T) {
	got, err := FromDirectory(t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterAndSummarize(t *testing.T) {
	dir := writeCounts(t, map[string]int{"facebook-react": 42, "microsoft-vscode": 15, "a-b": 3})
	paths := map[string]string{
		"facebook/react":   filepath.Join(dir, "facebook-react.sarif"),
		"microsoft/vscode": filepath.Join(dir, "microsoft-vscode.sarif"),
		"a/b":              filepath.Join(dir, "a-b.sarif"),
	}

	filtered, err := FilterByThreshold(paths, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"facebook/react", "microsoft/vscode"}, filtered)

	counts, err := Summarize(paths)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"facebook/react": 42, "microsoft/vscode": 15, "a/b": 3}, counts)

	paths["missing/repo"] = filepath.Join(dir, "missing-repo.sarif")
	_, err = Summarize(paths)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = FilterByThreshold(paths, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSorted(t *testing.T) {
	results := map[string]int{"a/x": 5, "b/y": 42, "c/z": 5, "d/w": 1}

	assert.Equal(t, []Entry{
		{"b/y", 42}, {"a/x", 5}, {"c/z", 5}, {"d/w", 1},
	}, Sorted(results, true))

	assert.Equal(t, []Entry{
		{"d/w", 1}, {"a/x", 5}, {"c/z", 5}, {"b/y", 42},
	}, Sorted(results, false))

	assert.Empty(t, Sorted(nil, true))
}
