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

package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

// captureOutput redirects Output and disables colors for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalOut, originalNoColor := Output, color.NoColor
	Output = &buf
	color.NoColor = true
	t.Cleanup(func() {
		Output = originalOut
		color.NoColor = originalNoColor
	})
	return &buf
}

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	for _, noColor := range []bool{false, true} {
		InitColors(noColor)
		if color.NoColor != noColor {
			t.Errorf("InitColors(%v): color.NoColor = %v", noColor, color.NoColor)
		}
	}
}

func TestMessageFunctions(t *testing.T) {
	tests := []struct {
		name string
		emit func()
		want string
	}{
		{"Success", func() { Success("Saved 3 projects") }, "✓ Saved 3 projects\n"},
		{"Successf", func() { Successf("Saved %d projects", 3) }, "✓ Saved 3 projects\n"},
		{"Warning", func() { Warning("2 skipped") }, "⚠ 2 skipped\n"},
		{"Warningf", func() { Warningf("%d skipped", 2) }, "⚠ 2 skipped\n"},
		{"Error", func() { Error("clone failed") }, "✗ clone failed\n"},
		{"Errorf", func() { Errorf("%s failed", "clone") }, "✗ clone failed\n"},
		{"Info", func() { Info("Loading summary") }, "ℹ Loading summary\n"},
		{"Infof", func() { Infof("Loading %s", "summary") }, "ℹ Loading summary\n"},
		{"Header", func() { Header("Summary") }, "Summary\n=======\n"},
		{"SubHeader", func() { SubHeader("Results:") }, "Results:\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)
			tt.emit()
			if got := buf.String(); got != tt.want {
				t.Errorf("%s output = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestInlineFormatters(t *testing.T) {
	captureOutput(t)

	if got := Label("Query:"); got != "Query:" {
		t.Errorf("Label() = %q", got)
	}
	if got := DimText("/data/repositories"); got != "/data/repositories" {
		t.Errorf("DimText() = %q", got)
	}
	if got := CountText(-1); got != "-1" {
		t.Errorf("CountText(-1) = %q", got)
	}
}

func TestStatusText(t *testing.T) {
	captureOutput(t)

	for _, status := range []string{"success", "skipped", "error", "custom"} {
		if got := StatusText(status); got != status {
			t.Errorf("StatusText(%q) = %q without colors", status, got)
		}
	}
}

func TestKeyValue(t *testing.T) {
	buf := captureOutput(t)

	KeyValue("Limit:", "5000 requests/hour")
	if !strings.Contains(buf.String(), "Limit:") || !strings.Contains(buf.String(), "5000 requests/hour") {
		t.Errorf("KeyValue output = %q", buf.String())
	}
}

func TestStats(t *testing.T) {
	buf := captureOutput(t)

	Stats("Results:", []Stat{{"total", 10}, {"created", 8}, {"failed", 2}})

	want := "Results:\n  total:   10\n  created: 8\n  failed:  2\n"
	if got := buf.String(); got != want {
		t.Errorf("Stats output = %q, want %q", got, want)
	}
}
