// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// SearchStats summarizes a search-and-store run.
type SearchStats struct {
	// Total is the number of repositories the search returned.
	Total int `json:"total"`
	// Saved counts newly created projects.
	Saved int `json:"saved"`
	// Updated counts existing projects overwritten because update was set.
	Updated int `json:"updated"`
	// Skipped counts existing projects left untouched.
	Skipped int `json:"skipped"`
	// Failed counts repositories that could not be stored.
	Failed int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`
}

// SearchAndStore searches GitHub and records every hit as a project.
type SearchAndStore struct {
	Searcher Searcher
	Store    ProjectSaver
	Logger   *slog.Logger
	Progress Progress
}

// Run searches with criteria and saves up to maxResults repositories. A
// search failure aborts the run; a failure to save one repository does not.
func (w *SearchAndStore) Run(ctx context.Context, criteria github.SearchCriteria, maxResults int, update bool) (SearchStats, error) {
	logger := loggerOrDefault(w.Logger)
	var stats SearchStats

	logger.Info("workflow.search.start", "query", criteria.Query(nowUTC()), "max_results", maxResults, "update", update)

	repos, err := w.Searcher.SearchRepositories(ctx, criteria, maxResults)
	if err != nil {
		logger.Error("workflow.search.error", "err", err)
		return stats, fmt.Errorf("search repositories: %w", err)
	}
	stats.Total = len(repos)

	for _, r := range repos {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, _, err := w.Store.SaveProject(ctx, storage.RepositoryRecord{
			FullName:       r.FullName,
			URL:            r.URL,
			Stars:          r.Stars,
			Language:       r.Language,
			Description:    r.Description,
			LastCommitDate: r.PushedAt,
			Topics:         r.Topics,
		}, update)
		w.Progress.tick()
		if err != nil {
			logger.Error("workflow.search.save_error", "project", r.FullName, "err", err)
			stats.Failed++
			stats.Failures = append(stats.Failures, Failure{Project: r.FullName, Error: err.Error()})
			continue
		}

		switch outcome {
		case storage.Created:
			stats.Saved++
		case storage.Updated:
			stats.Updated++
		case storage.Unchanged:
			stats.Skipped++
		}
		logger.Debug("workflow.search.saved", "project", r.FullName, "outcome", outcome.String())
	}

	logger.Info("workflow.search.done",
		"total", stats.Total,
		"saved", stats.Saved,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}
