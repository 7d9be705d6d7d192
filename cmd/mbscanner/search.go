// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/workflow"
)

type searchReport struct {
	Criteria   github.SearchCriteria `json:"criteria"`
	MaxResults int                   `json:"max_results"`
	Update     bool                  `json:"update"`
	Stats      workflow.SearchStats  `json:"stats"`
}

// runSearch executes the 'search' command: it searches GitHub with the
// given criteria and stores every hit in the metadata database.
//
// Examples:
//
//	mbscanner search --language Python --min-stars 1000 --max-results 50
//	mbscanner search -l JavaScript -s 500 -d 180 --update
func runSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("search", `Usage: mbscanner search [options]

Searches GitHub repositories and stores them as projects.
`)
	criteria := github.SearchCriteria{
		Language:           a.cfg.Search.Language,
		MinStars:           a.cfg.Search.MinStars,
		MaxDaysSinceCommit: a.cfg.Search.MaxDaysSinceCommit,
	}
	fs.StringVarP(&criteria.Language, "language", "l", criteria.Language, "Primary language")
	fs.IntVarP(&criteria.MinStars, "min-stars", "s", criteria.MinStars, "Minimum stars")
	fs.IntVarP(&criteria.MaxDaysSinceCommit, "max-days-since-commit", "d", criteria.MaxDaysSinceCommit, "Maximum days since the last push")
	maxResults := fs.IntP("max-results", "n", 0, "Maximum repositories to fetch (0 = all GitHub serves)")
	update := fs.BoolP("update", "u", false, "Update projects that are already stored")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	if err := criteria.Validate(); err != nil {
		return errors.NewInputError("Invalid search criteria", err.Error(), "Check --min-stars (>= 0) and --max-days-since-commit (>= 1)")
	}
	if *maxResults < 0 {
		return errors.NewInputError("Invalid --max-results", "must be >= 0", "")
	}

	client, err := a.githubClient(ctx)
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, true)
	if err != nil {
		return err
	}
	defer store.Close()

	if !a.globals.JSON {
		ui.SubHeader("Search criteria:")
		ui.KeyValue("Language:", criteria.Language)
		ui.KeyValue("Min stars:", criteria.MinStars)
		ui.KeyValue("Pushed:", fmt.Sprintf("within %d days", criteria.MaxDaysSinceCommit))
		ui.KeyValue("Max:", unlimited(*maxResults))
		ui.KeyValue("Update:", *update)
	}

	spinner := NewSpinner(a.progress, "Searching and storing")
	wf := &workflow.SearchAndStore{
		Searcher: client,
		Store:    store,
		Logger:   a.logger,
		Progress: batchProgress(spinner),
	}
	stats, err := wf.Run(ctx, criteria, *maxResults, *update)
	finishBar(spinner)
	if err != nil {
		return userError("Search failed", err)
	}

	if done, err := a.emit(searchReport{Criteria: criteria, MaxResults: *maxResults, Update: *update, Stats: stats}); done {
		return err
	}

	ui.Stats("Results:", []ui.Stat{
		{Label: "total", Value: stats.Total},
		{Label: "saved", Value: stats.Saved},
		{Label: "updated", Value: stats.Updated},
		{Label: "skipped", Value: stats.Skipped},
		{Label: "failed", Value: stats.Failed},
	})
	printFailures(stats.Failures)
	if stats.Failed > 0 {
		ui.Warning("Some repositories could not be stored; check the log")
	} else {
		ui.Success("Done")
	}
	return checkInterrupted(ctx)
}
