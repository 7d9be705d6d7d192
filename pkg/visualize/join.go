// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package visualize joins per-project finding counts with stored project
// sizes and renders them as plots.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kraklabs/mbscanner/pkg/storage"
	"github.com/kraklabs/mbscanner/pkg/summary"
)

// LineCountLookup returns the stored JavaScript line count of a project.
// *storage.Store implements it.
type LineCountLookup interface {
	LineCount(ctx context.Context, fullName string) (*int64, error)
}

// Point is one project on a size versus findings plot.
type Point struct {
	Lines int64  `json:"lines"`
	Count int    `json:"count"`
	Name  string `json:"name"`
}

// ScatterData loads the summary at summaryPath and pairs each project's
// finding count with its line count. Projects unknown to the store, or not
// measured yet, are left out. Points are ordered by project name.
func ScatterData(ctx context.Context, summaryPath string, lookup LineCountLookup, logger *slog.Logger) ([]Point, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := summary.Load(summaryPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.Results))
	for name := range s.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	points := make([]Point, 0, len(names))
	skipped := 0
	for _, name := range names {
		lines, err := lookup.LineCount(ctx, name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			logger.Debug("visualize.join.skip", "project", name, "reason", "not_in_store")
			skipped++
			continue
		case err != nil:
			return nil, fmt.Errorf("look up line count of %s: %w", name, err)
		case lines == nil:
			logger.Debug("visualize.join.skip", "project", name, "reason", "no_line_count")
			skipped++
			continue
		}
		points = append(points, Point{Lines: *lines, Count: s.Results[name], Name: name})
	}

	logger.Info("visualize.join.done", "summary", summaryPath, "points", len(points), "skipped", skipped)
	return points, nil
}
