// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// CloneStats summarizes a clone batch.
type CloneStats struct {
	Total   int `json:"total"`
	Cloned  int `json:"cloned"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`
}

// CloneBatchOptions tunes Clone.Run.
type CloneBatchOptions struct {
	// Force removes existing working copies and clones them again.
	Force bool
	// MaxProjects caps the batch when positive.
	MaxProjects int
}

// Clone fetches working copies for stored projects into ReposDir.
type Clone struct {
	Cloner   Cloner
	ReposDir string
	Logger   *slog.Logger
	Progress Progress
}

// Run clones every project. Existing working copies are skipped unless
// opts.Force is set.
func (w *Clone) Run(ctx context.Context, projects []storage.ProjectURL, opts CloneBatchOptions) CloneStats {
	logger := loggerOrDefault(w.Logger)
	projects = limit(projects, opts.MaxProjects)
	stats := CloneStats{Total: len(projects)}

	logger.Info("workflow.clone.start", "projects", len(projects), "force", opts.Force, "dir", w.ReposDir)

	for _, p := range projects {
		if ctx.Err() != nil {
			break
		}

		dest := layout.RepositoryPath(w.ReposDir, p.FullName)
		skipped, err := w.cloneOne(ctx, logger, p, dest, opts.Force)
		w.Progress.tick()

		switch {
		case err != nil:
			stats.Failed++
			stats.Failures = append(stats.Failures, Failure{Project: p.FullName, Error: err.Error()})
			logger.Error("workflow.clone.error", "project", p.FullName, "err", err)
		case skipped:
			stats.Skipped++
		default:
			stats.Cloned++
		}
	}

	logger.Info("workflow.clone.done",
		"total", stats.Total,
		"cloned", stats.Cloned,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats
}

func (w *Clone) cloneOne(ctx context.Context, logger *slog.Logger, p storage.ProjectURL, dest string, force bool) (skipped bool, err error) {
	if force && exists(dest) {
		logger.Info("workflow.clone.remove", "project", p.FullName, "dest", dest)
		if err := repo.CleanupDirectory(dest, false, logger); err != nil {
			return false, err
		}
	}

	existed := exists(dest)
	start := time.Now()
	if _, err := w.Cloner.Clone(ctx, p.URL, dest, repo.CloneOptions{SkipIfExists: !force}); err != nil {
		return false, err
	}
	if existed {
		logger.Info("workflow.clone.skip", "project", p.FullName, "reason", "exists")
		return true, nil
	}
	logger.Info("workflow.clone.success", "project", p.FullName, "duration", time.Since(start))
	return false, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
