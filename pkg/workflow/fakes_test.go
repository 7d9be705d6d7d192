// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

type fakeSearcher struct {
	repos []github.Repository
	err   error
}

func (f *fakeSearcher) SearchRepositories(ctx context.Context, c github.SearchCriteria, max int) ([]github.Repository, error) {
	return f.repos, f.err
}

// fakeCloner creates dest, fails for URLs listed in fail, and records each
// call.
type fakeCloner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeCloner) Clone(ctx context.Context, url, dest string, opts repo.CloneOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if err := f.fail[url]; err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		if opts.SkipIfExists {
			return dest, nil
		}
		return "", repo.ErrDestinationExists
	}
	return dest, os.MkdirAll(dest, 0o755)
}

// fakeManager keeps databases as directories under base and writes a SARIF
// file with results findings for every analysis.
type fakeManager struct {
	base      string
	results   int
	createErr error
	created   []string
	analyzed  []string
}

func (m *fakeManager) DatabasePath(name string) string { return layout.DatabasePath(m.base, name) }

func (m *fakeManager) DatabaseExists(name string) bool {
	_, err := os.Stat(m.DatabasePath(name))
	return err == nil
}

func (m *fakeManager) CreateDatabase(ctx context.Context, name, src, lang string, res codeql.Resources, force bool) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	if m.DatabaseExists(name) && !force {
		return "", codeql.ErrDatabaseExists
	}
	if _, err := os.Stat(src); err != nil {
		return "", codeql.ErrSourceNotFound
	}
	m.created = append(m.created, name)
	return m.DatabasePath(name), os.MkdirAll(m.DatabasePath(name), 0o755)
}

func (m *fakeManager) AnalyzeDatabase(ctx context.Context, name, out string, queries []string, opts codeql.AnalyzeOptions) error {
	if !m.DatabaseExists(name) {
		return codeql.ErrDatabaseNotFound
	}
	m.analyzed = append(m.analyzed, name+":"+filepath.Base(queries[0]))
	results := make([]map[string]any, m.results)
	for i := range results {
		results[i] = map[string]any{}
	}
	doc := map[string]any{"runs": []any{map[string]any{"results": results}}}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return writeJSON(out, doc)
}

// memStore is an in-memory LineCountStore and ProjectSaver.
type memStore struct {
	projects  []storage.Project
	updateErr error
	updates   []map[int64]int64
}

func (s *memStore) SaveProject(ctx context.Context, rec storage.RepositoryRecord, update bool) (storage.SaveOutcome, *storage.Project, error) {
	if rec.Stars < 0 {
		return 0, nil, errors.New("negative stars")
	}
	for i := range s.projects {
		if s.projects[i].FullName == rec.FullName {
			if !update {
				return storage.Unchanged, &s.projects[i], nil
			}
			s.projects[i].Stars = rec.Stars
			return storage.Updated, &s.projects[i], nil
		}
	}
	s.projects = append(s.projects, storage.Project{ID: int64(len(s.projects) + 1), FullName: rec.FullName, Stars: rec.Stars})
	return storage.Created, &s.projects[len(s.projects)-1], nil
}

func (s *memStore) ListProjects(ctx context.Context) ([]storage.Project, error) {
	return s.projects, nil
}

func (s *memStore) UpdateLineCounts(ctx context.Context, counts map[int64]int64) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	batch := make(map[int64]int64, len(counts))
	for id, n := range counts {
		batch[id] = n
		for i := range s.projects {
			if s.projects[i].ID == id {
				v := n
				s.projects[i].JSLinesCount = &v
			}
		}
	}
	s.updates = append(s.updates, batch)
	return nil
}
