// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package repo

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/kraklabs/mbscanner/internal/textfile"
)

// JSExtensions are the file extensions counted as JavaScript source.
var JSExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}

// LineCounter totals physical lines, blank and comment lines included, of
// the source files under a directory.
type LineCounter struct {
	extensions map[string]bool
	logger     *slog.Logger
}

// NewJSLineCounter counts .js, .jsx, .mjs and .cjs files.
func NewJSLineCounter(logger *slog.Logger) *LineCounter {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]bool, len(JSExtensions))
	for _, e := range JSExtensions {
		exts[e] = true
	}
	return &LineCounter{extensions: exts, logger: logger}
}

// CountFile returns the number of lines of a UTF-8 text file. Missing
// files, directories, undecodable files and read errors all count 0.
func (c *LineCounter) CountFile(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		c.logger.Debug("linecount.file.missing", "path", path)
		return 0
	}
	if !info.Mode().IsRegular() {
		c.logger.Debug("linecount.file.not_regular", "path", path)
		return 0
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("linecount.file.error", "path", path, "err", err)
		return 0
	}
	if !utf8.Valid(data) {
		c.logger.Debug("linecount.file.binary", "path", path)
		return 0
	}
	return textfile.CountLines(data)
}

// CountDirectory walks dir and sums CountFile over every matching file. A
// missing directory counts 0. Unreadable subdirectories are logged and
// skipped.
func (c *LineCounter) CountDirectory(dir string) int64 {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		c.logger.Debug("linecount.dir.missing", "path", dir)
		return 0
	}

	var total int64
	files := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("linecount.walk.error", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !c.extensions[filepath.Ext(path)] {
			return nil
		}
		n := c.CountFile(path)
		total += int64(n)
		files++
		return nil
	})
	if walkErr != nil {
		c.logger.Warn("linecount.walk.error", "path", dir, "err", walkErr)
	}

	c.logger.Debug("linecount.dir.done", "path", dir, "files", files, "lines", total)
	return total
}
