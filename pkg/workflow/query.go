// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/summary"
)

// QueryOptions tunes query execution.
type QueryOptions struct {
	Format        string
	Resources     codeql.Resources
	SarifCategory string
	AddSnippets   bool
	// MaxProjects caps a batch when positive.
	MaxProjects int
}

// QueryResult is one query's output for one project.
type QueryResult struct {
	QueryFile   string `json:"query_file"`
	OutputPath  string `json:"output_path"`
	ResultCount int    `json:"result_count"`
}

// QueryOutcome is the result of running the queries for one project.
type QueryOutcome struct {
	Project string        `json:"project"`
	Status  string        `json:"status"`
	Results []QueryResult `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// QueryStats summarizes a query batch.
type QueryStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`
}

// QueryExecution runs CodeQL queries against existing databases.
type QueryExecution struct {
	Manager  DatabaseManager
	Logger   *slog.Logger
	Progress Progress
}

// ExecuteForProject runs each query file separately against the project's
// database, writing outputBase/<query-id>/<owner-repo>.sarif and counting
// its results. A missing database or query file fails the project before
// any query runs.
func (w *QueryExecution) ExecuteForProject(ctx context.Context, fullName string, queryFiles []string, outputBase string, opts QueryOptions) QueryOutcome {
	logger := loggerOrDefault(w.Logger)
	out := QueryOutcome{Project: fullName}

	if !w.Manager.DatabaseExists(fullName) {
		return w.fail(logger, out, fmt.Errorf("database does not exist for project: %s", fullName))
	}
	for _, q := range queryFiles {
		if _, err := os.Stat(q); err != nil {
			return w.fail(logger, out, fmt.Errorf("query file does not exist: %s", q))
		}
	}

	for _, q := range queryFiles {
		sarifPath := layout.SarifPath(outputBase, layout.QueryID(q), fullName)
		logger.Info("workflow.query.run", "project", fullName, "query", filepath.Base(q))

		err := w.Manager.AnalyzeDatabase(ctx, fullName, sarifPath, []string{q}, codeql.AnalyzeOptions{
			Format:        opts.Format,
			Resources:     opts.Resources,
			SarifCategory: opts.SarifCategory,
			AddSnippets:   opts.AddSnippets,
		})
		if err != nil {
			return w.fail(logger, out, err)
		}

		count, err := summary.CountResults(sarifPath)
		if err != nil {
			return w.fail(logger, out, err)
		}

		logger.Info("workflow.query.success", "project", fullName, "query", filepath.Base(q), "results", count)
		out.Results = append(out.Results, QueryResult{
			QueryFile:   filepath.Base(q),
			OutputPath:  sarifPath,
			ResultCount: count,
		})
	}

	out.Status = StatusSuccess
	return out
}

func (w *QueryExecution) fail(logger *slog.Logger, out QueryOutcome, err error) QueryOutcome {
	logger.Error("workflow.query.error", "project", out.Project, "err", err)
	out.Status = StatusError
	out.Error = err.Error()
	return out
}

// ExecuteBatch runs ExecuteForProject over projects in order.
func (w *QueryExecution) ExecuteBatch(ctx context.Context, projects []string, queryFiles []string, outputBase string, opts QueryOptions) QueryStats {
	logger := loggerOrDefault(w.Logger)
	projects = limit(projects, opts.MaxProjects)
	stats := QueryStats{Total: len(projects)}

	logger.Info("workflow.query.batch.start", "projects", len(projects), "queries", len(queryFiles))

	for _, name := range projects {
		if ctx.Err() != nil {
			break
		}
		out := w.ExecuteForProject(ctx, name, queryFiles, outputBase, opts)
		w.Progress.tick()

		if out.Status == StatusSuccess {
			stats.Success++
		} else {
			stats.Failed++
			stats.Failures = append(stats.Failures, Failure{Project: name, Error: out.Error})
		}
	}

	logger.Info("workflow.query.batch.done", "total", stats.Total, "success", stats.Success, "failed", stats.Failed)
	return stats
}
