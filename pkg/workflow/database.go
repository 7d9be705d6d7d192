// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"log/slog"

	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// Database creation statuses.
const (
	StatusCreated = "created"
	StatusSkipped = "skipped"
	StatusSuccess = "success"
	StatusError   = "error"
)

// DatabaseOptions tunes database creation.
type DatabaseOptions struct {
	Language  string
	Resources codeql.Resources
	// SkipExisting leaves projects that already have a database alone.
	// Force overrides it.
	SkipExisting bool
	// Force rebuilds existing databases.
	Force bool
	// MaxProjects caps a batch when positive.
	MaxProjects int
}

// DatabaseOutcome is the result of one project's database creation.
type DatabaseOutcome struct {
	Project string `json:"project"`
	Status  string `json:"status"`
	DBPath  string `json:"db_path,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DatabaseStats summarizes a database creation batch.
type DatabaseStats struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`
}

// DatabaseCreation clones a project when needed and builds its CodeQL
// database.
type DatabaseCreation struct {
	Cloner   Cloner
	Manager  DatabaseManager
	ReposDir string
	Logger   *slog.Logger
	Progress Progress
}

// CreateForProject builds the database of one project. It never returns an
// error; failures are reported in the outcome.
func (w *DatabaseCreation) CreateForProject(ctx context.Context, fullName, url string, opts DatabaseOptions) DatabaseOutcome {
	logger := loggerOrDefault(w.Logger)
	out := DatabaseOutcome{Project: fullName}

	if opts.SkipExisting && !opts.Force && w.Manager.DatabaseExists(fullName) {
		logger.Info("workflow.database.skip", "project", fullName, "reason", "exists")
		out.Status = StatusSkipped
		out.DBPath = w.Manager.DatabasePath(fullName)
		out.Reason = "database already exists"
		return out
	}

	language := opts.Language
	if language == "" {
		language = "javascript"
	}

	src := layout.RepositoryPath(w.ReposDir, fullName)
	if _, err := w.Cloner.Clone(ctx, url, src, repo.CloneOptions{SkipIfExists: true}); err != nil {
		return w.fail(logger, out, err)
	}

	dbPath, err := w.Manager.CreateDatabase(ctx, fullName, src, language, opts.Resources, opts.Force)
	if err != nil {
		return w.fail(logger, out, err)
	}

	logger.Info("workflow.database.created", "project", fullName, "db", dbPath)
	out.Status = StatusCreated
	out.DBPath = dbPath
	return out
}

func (w *DatabaseCreation) fail(logger *slog.Logger, out DatabaseOutcome, err error) DatabaseOutcome {
	logger.Error("workflow.database.error", "project", out.Project, "err", err)
	out.Status = StatusError
	out.Error = err.Error()
	return out
}

// CreateBatch runs CreateForProject over projects in order.
func (w *DatabaseCreation) CreateBatch(ctx context.Context, projects []storage.ProjectURL, opts DatabaseOptions) DatabaseStats {
	logger := loggerOrDefault(w.Logger)
	projects = limit(projects, opts.MaxProjects)
	stats := DatabaseStats{Total: len(projects)}

	logger.Info("workflow.database.batch.start", "projects", len(projects), "skip_existing", opts.SkipExisting, "force", opts.Force)

	for _, p := range projects {
		if ctx.Err() != nil {
			break
		}
		out := w.CreateForProject(ctx, p.FullName, p.URL, opts)
		w.Progress.tick()

		switch out.Status {
		case StatusCreated:
			stats.Created++
		case StatusSkipped:
			stats.Skipped++
		default:
			stats.Failed++
			stats.Failures = append(stats.Failures, Failure{Project: p.FullName, Error: out.Error})
		}
	}

	logger.Info("workflow.database.batch.done",
		"total", stats.Total,
		"created", stats.Created,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats
}
