// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateTopics(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first, err := GetOrCreateTopics(ctx, s.DB(), []string{"react", "ui", "react"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "react", first[0].Name)
	assert.Equal(t, "ui", first[1].Name)

	second, err := GetOrCreateTopics(ctx, s.DB(), []string{"ui", "cli"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].ID, second[0].ID, "existing topic is reused")

	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cli", "react", "ui"}, topicNames(topics))

	n, err := s.CountTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetTopicByName(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := GetOrCreateTopics(ctx, s.DB(), []string{"react"})
	require.NoError(t, err)

	got, err := s.GetTopicByName(ctx, "react")
	require.NoError(t, err)
	assert.Equal(t, "react", got.Name)

	_, err = s.GetTopicByName(ctx, "vue")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectTopics_CascadeOnDelete(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, p, err := s.SaveProject(ctx, RepositoryRecord{FullName: "a/b", URL: "u", Topics: []string{"x", "y"}}, false)
	require.NoError(t, err)

	names, err := s.ProjectTopics(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, names)

	_, err = s.DB().ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID)
	require.NoError(t, err)

	var links int
	require.NoError(t, s.DB().GetContext(ctx, &links, `SELECT COUNT(*) FROM project_topics`))
	assert.Zero(t, links, "foreign keys cascade")
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	records := []RepositoryRecord{
		{FullName: "a/js-lib", URL: "u", Stars: 500, Language: strPtr("JavaScript"), Topics: []string{"library"}},
		{FullName: "b/ts-app", URL: "u", Stars: 1500, Language: strPtr("TypeScript"), Topics: []string{"app", "library"}},
		{FullName: "c/js-app", URL: "u", Stars: 50, Language: strPtr("JavaScript"), Topics: []string{"app"}},
		{FullName: "d/none", URL: "u", Stars: 5000},
	}
	for _, r := range records {
		_, _, err := s.SaveProject(ctx, r, false)
		require.NoError(t, err)
	}

	byTopic, err := s.ProjectsByTopic(ctx, "library")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/js-lib", "b/ts-app"}, projectNames(byTopic))
	assert.Equal(t, []string{"app", "library"}, byTopic[1].Topics)

	byLang, err := s.ProjectsByLanguage(ctx, "JavaScript")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/js-lib", "c/js-app"}, projectNames(byLang))

	none, err := s.ProjectsByLanguage(ctx, "javascript")
	require.NoError(t, err)
	assert.Empty(t, none)

	byStars, err := s.ProjectsByMinStars(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"d/none", "b/ts-app", "a/js-lib"}, projectNames(byStars))

	empty, err := s.ProjectsByTopic(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	filters := []struct {
		name   string
		filter ProjectFilter
		want   []string
	}{
		{"no filter", ProjectFilter{}, []string{"a/js-lib", "b/ts-app", "c/js-app", "d/none"}},
		{"topic", ProjectFilter{Topic: "app"}, []string{"b/ts-app", "c/js-app"}},
		{"topic and language", ProjectFilter{Topic: "library", Language: "JavaScript"}, []string{"a/js-lib"}},
		{"language and stars", ProjectFilter{Language: "JavaScript", MinStars: 100}, []string{"a/js-lib"}},
		{"stars", ProjectFilter{MinStars: 1000}, []string{"b/ts-app", "d/none"}},
		{"no match", ProjectFilter{Topic: "app", MinStars: 10000}, []string{}},
	}
	for _, tt := range filters {
		t.Run(tt.name, func(t *testing.T) {
			urls, err := s.FilterProjectURLs(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, len(urls))
			for i, u := range urls {
				names[i] = u.FullName
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func topicNames(topics []Topic) []string {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return names
}

func projectNames(projects []Project) []string {
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.FullName
	}
	return names
}
