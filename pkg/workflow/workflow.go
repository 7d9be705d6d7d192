// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workflow composes search, storage, cloning, CodeQL and line
// counting into the batch operations the CLI runs.
//
// Each workflow takes its collaborators as small interfaces so that tests
// can substitute fakes. Batch operations never abort on a per-project
// failure: the failure is logged, counted and the batch moves on. Only
// context cancellation stops a batch early.
package workflow

import (
	"context"

	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// Searcher finds candidate repositories.
type Searcher interface {
	SearchRepositories(ctx context.Context, criteria github.SearchCriteria, maxResults int) ([]github.Repository, error)
}

// ProjectSaver persists search results.
type ProjectSaver interface {
	SaveProject(ctx context.Context, rec storage.RepositoryRecord, update bool) (storage.SaveOutcome, *storage.Project, error)
}

// Cloner fetches a repository working copy.
type Cloner interface {
	Clone(ctx context.Context, url, dest string, opts repo.CloneOptions) (string, error)
}

// DatabaseManager owns per-project CodeQL databases.
type DatabaseManager interface {
	DatabasePath(fullName string) string
	DatabaseExists(fullName string) bool
	CreateDatabase(ctx context.Context, fullName, sourceRoot, language string, res codeql.Resources, force bool) (string, error)
	AnalyzeDatabase(ctx context.Context, fullName, outputPath string, queries []string, opts codeql.AnalyzeOptions) error
}

// LineCounter measures a working copy.
type LineCounter interface {
	CountDirectory(dir string) int64
}

// LineCountStore reads projects and stores their line counts.
type LineCountStore interface {
	ListProjects(ctx context.Context) ([]storage.Project, error)
	UpdateLineCounts(ctx context.Context, counts map[int64]int64) error
}

// Failure records why one project of a batch failed.
type Failure struct {
	Project string `json:"project"`
	Error   string `json:"error"`
}

// Progress is called once per processed item of a batch.
type Progress func()

func (p Progress) tick() {
	if p != nil {
		p()
	}
}

// limit truncates items to n when n is positive.
func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
