// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package summary aggregates per-project SARIF files into per-query result
// counts and persists them as summary files.
//
// Counting here is strict: a SARIF file without runs is a format error,
// because a summary is only built over finished query output. The extractor
// in package sarif is lenient about the same condition.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kraklabs/mbscanner/pkg/layout"
)

var (
	// ErrNotFound is returned for missing SARIF files, query directories and
	// summary files.
	ErrNotFound = errors.New("not found")

	// ErrFormat is returned for SARIF files that cannot be counted.
	ErrFormat = errors.New("invalid SARIF format")
)

type countDocument struct {
	Runs []struct {
		Results []json.RawMessage `json:"results"`
	} `json:"runs"`
}

// CountResults returns the number of results in the first run of a SARIF
// file.
func CountResults(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("SARIF file %w: %s", ErrNotFound, path)
		}
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var doc countDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w (JSON decode error): %s: %v", ErrFormat, path, err)
	}
	if len(doc.Runs) == 0 {
		return 0, fmt.Errorf("%w (missing runs): %s", ErrFormat, path)
	}

	return len(doc.Runs[0].Results), nil
}

// FromDirectory counts every *.sarif file in a query directory and returns
// the counts keyed by project full name. With a threshold, only projects
// with at least that many results are kept. Files that cannot be counted are
// logged and skipped.
func FromDirectory(dir string, threshold *int, logger *slog.Logger) (map[string]int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("query directory %w: %s", ErrNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("query directory %w: %s is not a directory", ErrNotFound, dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*"+layout.SarifExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	results := make(map[string]int, len(files))
	for _, path := range files {
		project := layout.ProjectFromSarifFile(path)

		count, err := CountResults(path)
		if err != nil {
			logger.Warn("summary.count.skip", "path", path, "err", err)
			continue
		}

		if threshold != nil && count < *threshold {
			logger.Debug("summary.count.below_threshold", "project", project, "count", count, "threshold", *threshold)
			continue
		}
		results[project] = count
	}

	logger.Info("summary.directory.done",
		"dir", dir,
		"projects", len(results),
		"files", len(files),
	)
	return results, nil
}

// FilterByThreshold returns, in name order, the projects whose SARIF file
// has at least threshold results. Unlike FromDirectory it stops at the
// first file that cannot be counted.
func FilterByThreshold(paths map[string]string, threshold int) ([]string, error) {
	names := sortedKeys(paths)
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		count, err := CountResults(paths[name])
		if err != nil {
			return nil, err
		}
		if count >= threshold {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// Summarize counts the SARIF file of every project.
func Summarize(paths map[string]string) (map[string]int, error) {
	out := make(map[string]int, len(paths))
	for _, name := range sortedKeys(paths) {
		count, err := CountResults(paths[name])
		if err != nil {
			return nil, err
		}
		out[name] = count
	}
	return out, nil
}

// Entry is one project and its result count.
type Entry struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

// Sorted orders counts by value. Ties are broken by project name so the
// output is deterministic.
func Sorted(results map[string]int, descending bool) []Entry {
	entries := make([]Entry, 0, len(results))
	for name, count := range results {
		entries = append(entries, Entry{Project: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Count != b.Count {
			if descending {
				return a.Count > b.Count
			}
			return a.Count < b.Count
		}
		return a.Project < b.Project
	})
	return entries
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
