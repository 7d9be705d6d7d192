// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/mbscanner/pkg/layout"
)

// DefaultBatchSize is the number of line counts written per transaction.
const DefaultBatchSize = 100

// LineCountStats summarizes a line counting run.
type LineCountStats struct {
	// Processed counts projects measured and stored.
	Processed int `json:"processed"`
	// Updated counts stored line counts.
	Updated int `json:"updated"`
	// Skipped counts projects that already had a line count.
	Skipped int `json:"skipped"`
	// NotFound counts projects without a working copy.
	NotFound int `json:"not_found"`
	// Errors counts projects whose count could not be stored.
	Errors int `json:"errors"`
}

// LineCounting measures the JavaScript size of every stored project.
type LineCounting struct {
	Store    LineCountStore
	Counter  LineCounter
	Logger   *slog.Logger
	Progress Progress
}

// Run counts lines for each project under repositoriesDir and stores them
// in batches of batchSize. Projects that already have a count are skipped
// unless force is set.
func (w *LineCounting) Run(ctx context.Context, repositoriesDir string, force bool, batchSize int) (LineCountStats, error) {
	logger := loggerOrDefault(w.Logger)
	var stats LineCountStats

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	projects, err := w.Store.ListProjects(ctx)
	if err != nil {
		return stats, fmt.Errorf("list projects: %w", err)
	}

	logger.Info("workflow.linecount.start", "projects", len(projects), "dir", repositoriesDir, "force", force, "batch_size", batchSize)

	pending := make(map[int64]int64, batchSize)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := w.Store.UpdateLineCounts(ctx, pending); err != nil {
			logger.Error("workflow.linecount.flush_error", "projects", len(pending), "err", err)
			stats.Errors += len(pending)
		} else {
			stats.Updated += len(pending)
			stats.Processed += len(pending)
		}
		pending = make(map[int64]int64, batchSize)
	}

	for i, p := range projects {
		if err := ctx.Err(); err != nil {
			flush()
			return stats, err
		}

		if !force && p.JSLinesCount != nil {
			logger.Debug("workflow.linecount.skip", "project", p.FullName, "reason", "counted")
			stats.Skipped++
			w.Progress.tick()
			continue
		}

		dir := layout.RepositoryPath(repositoriesDir, p.FullName)
		if _, err := os.Stat(dir); err != nil {
			logger.Info("workflow.linecount.skip", "project", p.FullName, "reason", "not_found")
			stats.NotFound++
			w.Progress.tick()
			continue
		}

		start := time.Now()
		lines := w.Counter.CountDirectory(dir)
		pending[p.ID] = lines
		logger.Info("workflow.linecount.counted",
			"project", p.FullName,
			"lines", lines,
			"index", i+1,
			"of", len(projects),
			"duration", time.Since(start),
		)
		w.Progress.tick()

		if len(pending) >= batchSize {
			flush()
		}
	}
	flush()

	logger.Info("workflow.linecount.done",
		"processed", stats.Processed,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"not_found", stats.NotFound,
		"errors", stats.Errors,
	)
	return stats, nil
}
