// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sort"
)

// ProjectsByTopic returns the projects tagged with a topic, ordered by id.
func (s *Store) ProjectsByTopic(ctx context.Context, topic string) ([]Project, error) {
	return s.selectProjects(ctx, `SELECT `+prefixed("p.")+` FROM projects p
		JOIN project_topics pt ON pt.project_id = p.id
		JOIN topics t ON t.id = pt.topic_id
		WHERE t.name = ?
		ORDER BY p.id`, topic)
}

// ProjectsByLanguage returns the projects whose primary language matches
// exactly, ordered by id.
func (s *Store) ProjectsByLanguage(ctx context.Context, language string) ([]Project, error) {
	return s.selectProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE language = ? ORDER BY id`, language)
}

// ProjectsByMinStars returns the projects with at least minStars stars,
// most starred first.
func (s *Store) ProjectsByMinStars(ctx context.Context, minStars int) ([]Project, error) {
	return s.selectProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE stars >= ? ORDER BY stars DESC, id`, minStars)
}

// ProjectFilter narrows a project selection. Zero fields match everything.
type ProjectFilter struct {
	Topic    string
	Language string
	MinStars int
}

// IsZero reports whether f selects every project.
func (f ProjectFilter) IsZero() bool {
	return f.Topic == "" && f.Language == "" && f.MinStars <= 0
}

// FilterProjectURLs returns the clone targets of the projects matching
// every set field of f, ordered by id.
func (s *Store) FilterProjectURLs(ctx context.Context, f ProjectFilter) ([]ProjectURL, error) {
	if f.IsZero() {
		return s.ProjectURLs(ctx)
	}

	var sets [][]Project
	if f.Topic != "" {
		ps, err := s.ProjectsByTopic(ctx, f.Topic)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}
	if f.Language != "" {
		ps, err := s.ProjectsByLanguage(ctx, f.Language)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}
	if f.MinStars > 0 {
		ps, err := s.ProjectsByMinStars(ctx, f.MinStars)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}

	hits := make(map[int64]int)
	byID := make(map[int64]Project)
	for _, set := range sets {
		for _, p := range set {
			hits[p.ID]++
			byID[p.ID] = p
		}
	}
	urls := []ProjectURL{}
	for id, n := range hits {
		if n == len(sets) {
			p := byID[id]
			urls = append(urls, ProjectURL{ID: p.ID, FullName: p.FullName, URL: p.URL})
		}
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].ID < urls[j].ID })
	return urls, nil
}

func prefixed(prefix string) string {
	return prefix + "id, " + prefix + "full_name, " + prefix + "url, " + prefix + "stars, " +
		prefix + "last_commit_date, " + prefix + "language, " + prefix + "description, " +
		prefix + "fetched_at, " + prefix + "js_lines_count"
}
