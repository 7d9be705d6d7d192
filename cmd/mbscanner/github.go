// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/workflow"
)

// runGitHub dispatches the 'github' subcommands.
func runGitHub(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "github", args, map[string]handler{
		"rate-limit": runRateLimit,
		"clone":      runClone,
	})
}

type rateLimitReport struct {
	github.RateLimitInfo
	Status string `json:"status"`
}

// runRateLimit prints the GitHub API quota.
//
//	mbscanner github rate-limit
func runRateLimit(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("rate-limit", "Usage: mbscanner github rate-limit\n\nShows the GitHub API rate limit status.\n")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	client, err := a.githubClient(ctx)
	if err != nil {
		return err
	}
	info, err := client.RateLimit(ctx)
	if err != nil {
		return userError("Cannot read GitHub rate limit", err)
	}

	if done, err := a.emit(rateLimitReport{RateLimitInfo: info, Status: info.Status()}); done {
		return err
	}

	ui.Header("GitHub API Rate Limit Status")
	ui.KeyValue("Limit:", fmt.Sprintf("%d requests/hour", info.Limit))
	ui.KeyValue("Remaining:", fmt.Sprintf("%d requests", info.Remaining))
	ui.KeyValue("Reset:", info.Reset.Format("2006-01-02 15:04:05 MST"))
	ui.KeyValue("Status:", ui.StatusText(info.Status()))
	if info.Status() == github.RateLimited {
		ui.KeyValue("Wait time:", fmt.Sprintf("%d minutes", int(info.WaitSeconds)/60))
	}
	return nil
}

// runClone clones every stored project into the repositories directory.
//
//	mbscanner github clone
//	mbscanner github clone --max-projects 10
//	mbscanner github clone --force
func runClone(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("clone", "Usage: mbscanner github clone [options]\n\nClones every project in the metadata database.\n")
	maxProjects := fs.Int("max-projects", 0, "Maximum projects to process (0 = all)")
	force := fs.BoolP("force", "f", false, "Delete existing clones and clone again")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.ProjectURLs(ctx)
	if err != nil {
		return userError("Cannot list projects", err)
	}
	if len(projects) == 0 {
		ui.Info("No projects found in database")
		return nil
	}

	if !a.globals.JSON {
		ui.KeyValue("Projects:", len(projects))
		ui.KeyValue("Max:", unlimited(*maxProjects))
		ui.KeyValue("Force:", *force)
		ui.KeyValue("Into:", ui.DimText(a.cfg.RepositoriesDir()))
	}

	bar := NewProgressBar(a.progress, int64(capped(len(projects), *maxProjects)), "Cloning")
	wf := &workflow.Clone{
		Cloner:   a.cloner(),
		ReposDir: a.cfg.RepositoriesDir(),
		Logger:   a.logger,
		Progress: batchProgress(bar),
	}
	stats := wf.Run(ctx, projects, workflow.CloneBatchOptions{Force: *force, MaxProjects: *maxProjects})
	finishBar(bar)

	if done, err := a.emit(stats); done {
		return err
	}
	ui.Stats("Cloning summary:", []ui.Stat{
		{Label: "total", Value: stats.Total},
		{Label: "cloned", Value: stats.Cloned},
		{Label: "skipped", Value: stats.Skipped},
		{Label: "failed", Value: stats.Failed},
	})
	printFailures(stats.Failures)
	return checkInterrupted(ctx)
}
