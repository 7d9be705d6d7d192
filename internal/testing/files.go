// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteFile writes content to path, creating parent directories, and
// returns path.
//
// Example:
//
//	src := testing.WriteFile(t, filepath.Join(repo, "src", "app.js"), "a\nb\nc\n")
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteJSON marshals v as indented JSON into path.
func WriteJSON(t *testing.T, path string, v any) string {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal fixture for %s: %v", path, err)
	}
	return WriteFile(t, path, string(data))
}

// SARIFResult describes one result in a generated SARIF fixture. Zero
// values mean "absent" so that fixtures can omit optional properties.
type SARIFResult struct {
	URI       string
	StartLine int
	EndLine   int
	Message   string
	Level     string

	// NoLocation drops the locations array entirely.
	NoLocation bool
}

// SARIFDocument builds a single-run SARIF 2.1.0 document.
func SARIFDocument(results ...SARIFResult) map[string]any {
	rs := make([]any, 0, len(results))
	for _, r := range results {
		res := map[string]any{}
		if r.Message != "" {
			res["message"] = map[string]any{"text": r.Message}
		}
		if r.Level != "" {
			res["level"] = r.Level
		}
		if !r.NoLocation {
			region := map[string]any{}
			if r.StartLine != 0 {
				region["startLine"] = r.StartLine
			}
			if r.EndLine != 0 {
				region["endLine"] = r.EndLine
			}
			res["locations"] = []any{
				map[string]any{
					"physicalLocation": map[string]any{
						"artifactLocation": map[string]any{"uri": r.URI},
						"region":           region,
					},
				},
			}
		}
		rs = append(rs, res)
	}

	return map[string]any{
		"version": "2.1.0",
		"runs": []any{
			map[string]any{
				"tool":    map[string]any{"driver": map[string]any{"name": "CodeQL"}},
				"results": rs,
			},
		},
	}
}

// WriteSARIF writes a single-run SARIF document with the given results.
//
// Example:
//
//	testing.WriteSARIF(t, path,
//	    testing.SARIFResult{URI: "src/app.js", StartLine: 2, Message: "m"},
//	)
func WriteSARIF(t *testing.T, path string, results ...SARIFResult) string {
	t.Helper()
	return WriteJSON(t, path, SARIFDocument(results...))
}

// FakeTool writes an executable POSIX shell script named name into a fresh
// temp directory and returns its path. The script body receives the
// original arguments as "$@". Tests using it are skipped on Windows.
//
// Example:
//
//	git := testing.FakeTool(t, "git", `mkdir -p "$4"`)
func FakeTool(t *testing.T, name, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake %s: %v", name, err)
	}
	return path
}
