// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/workflow"
)

// runCountLines measures the JavaScript size of every cloned project and
// stores it in projects.js_lines_count.
//
//	mbscanner count-lines
//	mbscanner count-lines -r /data/repositories --batch-size 50 --force
func runCountLines(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("count-lines", "Usage: mbscanner count-lines [options]\n\nCounts JavaScript lines of every cloned project.\n")
	reposDir := fs.StringP("repositories-dir", "r", a.cfg.RepositoriesDir(), "Directory holding cloned repositories")
	batchSize := fs.IntP("batch-size", "b", workflow.DefaultBatchSize, "Line counts written per transaction")
	force := fs.BoolP("force", "f", false, "Recount projects that already have a line count")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if *batchSize < 1 {
		return errors.NewInputError("Invalid --batch-size", "must be >= 1", "")
	}
	if st, err := os.Stat(*reposDir); err != nil || !st.IsDir() {
		return errors.NewNotFoundError(
			fmt.Sprintf("Repositories directory does not exist: %s", *reposDir),
			"",
			"Run 'mbscanner github clone' first or pass -r",
		)
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.CountProjects(ctx)
	if err != nil {
		return userError("Cannot count projects", err)
	}

	bar := NewProgressBar(a.progress, int64(total), "Counting lines")
	wf := &workflow.LineCounting{
		Store:    store,
		Counter:  repo.NewJSLineCounter(a.logger),
		Logger:   a.logger,
		Progress: batchProgress(bar),
	}
	stats, err := wf.Run(ctx, *reposDir, *force, *batchSize)
	finishBar(bar)
	if err != nil {
		return userError("Line counting failed", err)
	}

	if done, err := a.emit(stats); done {
		return err
	}
	ui.Stats("Line counting summary:", []ui.Stat{
		{Label: "processed", Value: stats.Processed},
		{Label: "updated", Value: stats.Updated},
		{Label: "skipped", Value: stats.Skipped},
		{Label: "not found", Value: stats.NotFound},
		{Label: "errors", Value: stats.Errors},
	})
	return checkInterrupted(ctx)
}
