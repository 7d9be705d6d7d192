// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrNotFound is returned when a SARIF file does not exist.
var ErrNotFound = errors.New("SARIF file not found")

const (
	defaultMessage  = "No message"
	defaultSeverity = "warning"
)

// ParseFile reads the SARIF document at path and returns its findings.
//
// Only the first run is considered. A document without runs is a valid,
// empty analysis and yields no findings. Results without a location or a
// start line are dropped and logged.
func ParseFile(path string, logger *slog.Logger) ([]Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read SARIF file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode SARIF file %s: %w", path, err)
	}

	findings := []Finding{}
	if len(doc.Runs) == 0 {
		logger.Warn("sarif.parse.no_runs", "path", path)
		return findings, nil
	}

	for idx, r := range doc.Runs[0].Results {
		if len(r.Locations) == 0 {
			logger.Warn("sarif.parse.skip_result", "path", path, "index", idx, "reason", "no locations")
			continue
		}

		phys := r.Locations[0].PhysicalLocation
		if phys.Region.StartLine == nil {
			logger.Warn("sarif.parse.skip_result", "path", path, "index", idx, "reason", "no startLine")
			continue
		}

		start := *phys.Region.StartLine
		end := start
		if phys.Region.EndLine != nil {
			end = *phys.Region.EndLine
		}

		findings = append(findings, Finding{
			ID:          idx,
			FilePath:    unquote(phys.ArtifactLocation.URI),
			StartLine:   start,
			EndLine:     end,
			StartColumn: phys.Region.StartColumn,
			EndColumn:   phys.Region.EndColumn,
			Message:     messageText(r.Message),
			Severity:    severity(r.Level),
		})
	}

	return findings, nil
}

func messageText(m *message) string {
	if m == nil || m.Text == nil {
		return defaultMessage
	}
	return *m.Text
}

func severity(level *string) string {
	if level == nil {
		return defaultSeverity
	}
	return *level
}

// unquote percent-decodes a SARIF artifact URI. Valid %XX escapes are
// decoded, malformed ones are kept verbatim, and "+" is left alone. The
// decoded bytes are interpreted as UTF-8 with invalid sequences replaced.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}

	if utf8.Valid(buf) {
		return string(buf)
	}

	var sb strings.Builder
	sb.Grow(len(buf) + 8)
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			size = invalidPrefix(buf)
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(buf[:size])
		}
		buf = buf[size:]
	}
	return sb.String()
}

// invalidPrefix returns the length of the maximal subpart of an ill-formed
// UTF-8 sequence at the start of b, which is replaced by a single U+FFFD.
// A stray byte is a subpart of its own, so "%FF%FE" yields two.
func invalidPrefix(b []byte) int {
	var n int
	lo, hi := byte(0x80), byte(0xBF)
	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		n = 2
	case c == 0xE0:
		n, lo = 3, 0xA0
	case c == 0xED:
		n, hi = 3, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		n = 3
	case c == 0xF0:
		n, lo = 4, 0x90
	case c == 0xF4:
		n, hi = 4, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		n = 4
	default:
		return 1
	}

	i := 1
	if i < len(b) && b[i] >= lo && b[i] <= hi {
		i++
		for i < n && i < len(b) && b[i] >= 0x80 && b[i] <= 0xBF {
			i++
		}
	}
	return i
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
