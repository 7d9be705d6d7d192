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

// Package ui provides human-readable terminal output for the mbscanner CLI.
//
// All helpers write to Output (stdout by default). Commands running in
// --json mode point Output at stderr so that stdout carries only JSON.
//
// Color usage guidelines:
//   - Red: errors, failed projects, rate-limited status
//   - Yellow: warnings, skipped projects
//   - Green: success, created/saved projects
//   - Cyan: info and counts
//   - Bold: headers and labels
//   - Dim: paths
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Output is where every helper in this package writes.
var Output io.Writer = os.Stdout

// Pre-configured color instances for consistent CLI output.
var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors configures global color output based on the --no-color flag.
// fatih/color already honours NO_COLOR and non-TTY output on its own.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

// Success prints a green message with a checkmark prefix.
//
// Example output: "✓ Saved 42 projects"
func Success(msg string) {
	_, _ = Green.Fprintln(Output, "✓ "+msg)
}

// Successf prints a formatted green message with a checkmark prefix.
func Successf(format string, args ...any) {
	_, _ = Green.Fprintf(Output, "✓ "+format+"\n", args...)
}

// Warning prints a yellow message with a warning symbol prefix.
func Warning(msg string) {
	_, _ = Yellow.Fprintln(Output, "⚠ "+msg)
}

// Warningf prints a formatted yellow warning message.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Fprintf(Output, "⚠ "+format+"\n", args...)
}

// Error prints a red message with an X prefix.
func Error(msg string) {
	_, _ = Red.Fprintln(Output, "✗ "+msg)
}

// Errorf prints a formatted red error message.
func Errorf(format string, args ...any) {
	_, _ = Red.Fprintf(Output, "✗ "+format+"\n", args...)
}

// Info prints a cyan message with an info symbol prefix.
func Info(msg string) {
	_, _ = Cyan.Fprintln(Output, "ℹ "+msg)
}

// Infof prints a formatted cyan informational message.
func Infof(format string, args ...any) {
	_, _ = Cyan.Fprintf(Output, "ℹ "+format+"\n", args...)
}

// Header prints a bold header with an underline separator.
//
//	CodeQL Summary
//	==============
func Header(text string) {
	_, _ = Bold.Fprintln(Output, text)
	fmt.Fprintln(Output, strings.Repeat("=", len([]rune(text))))
}

// SubHeader prints a bold sub-header without an underline.
func SubHeader(text string) {
	_, _ = Bold.Fprintln(Output, text)
}

// Label returns a bold-formatted label string for inline use.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns a dim-formatted string for less important text.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText returns a cyan-formatted count value.
func CountText(count int) string {
	return Cyan.Sprint(count)
}

// KeyValue prints an aligned "label value" row.
//
//	Limit:      5000 requests/hour
//	Remaining:  4990 requests
func KeyValue(label string, value any) {
	fmt.Fprintf(Output, "  %s %v\n", Label(fmt.Sprintf("%-11s", label)), value)
}

// StatusText colors a status word the same way across commands: success-like
// words green, skip/warning words yellow, error-like words red.
func StatusText(status string) string {
	switch strings.ToLower(status) {
	case "success", "created", "saved", "cloned", "updated", "ok":
		return Green.Sprint(status)
	case "skipped", "warning", "unchanged", "not_found":
		return Yellow.Sprint(status)
	case "error", "failed", "limited":
		return Red.Sprint(status)
	default:
		return status
	}
}

// Stat is one row of a batch statistics block.
type Stat struct {
	Label string
	Value int
}

// Stats prints a batch statistics block under a sub-header.
//
//	Results:
//	  total:    10
//	  created:   8
func Stats(title string, rows []Stat) {
	SubHeader(title)
	width := 0
	for _, r := range rows {
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}
	for _, r := range rows {
		fmt.Fprintf(Output, "  %-*s %s\n", width+1, r.Label+":", CountText(r.Value))
	}
}
