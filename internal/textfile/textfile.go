// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package textfile reads source files as lines the way a text-mode reader
// with universal newlines does: "\r\n", "\r" and "\n" all terminate a line,
// terminators are dropped, and a trailing fragment without a terminator is
// still a line.
package textfile

import (
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadLinesLenient reads path as UTF-8, replacing invalid byte sequences
// with U+FFFD, and splits it into lines.
func ReadLinesLenient(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, unicode.UTF8.NewDecoder()))
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits s into lines without their terminators.
func SplitLines(s string) []string {
	lines := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// CountLines returns the number of lines SplitLines would produce for data,
// without allocating the lines.
func CountLines(data []byte) int {
	n := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		}
	}
	if len(data) > 0 {
		last := data[len(data)-1]
		if last != '\n' && last != '\r' {
			n++
		}
	}
	return n
}
