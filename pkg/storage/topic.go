// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Topic is a GitHub repository topic.
type Topic struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// GetOrCreateTopics returns the topics with the given names, creating the
// missing ones. Duplicate and empty names are dropped; the order of first
// appearance is kept.
func GetOrCreateTopics(ctx context.Context, q queryer, names []string) ([]Topic, error) {
	seen := make(map[string]bool, len(names))
	topics := make([]Topic, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if _, err := q.ExecContext(ctx, `INSERT INTO topics (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return nil, fmt.Errorf("create topic %q: %w", name, err)
		}
		var t Topic
		if err := q.GetContext(ctx, &t, `SELECT id, name FROM topics WHERE name = ?`, name); err != nil {
			return nil, fmt.Errorf("load topic %q: %w", name, err)
		}
		topics = append(topics, t)
	}
	return topics, nil
}

// GetTopicByName returns a topic or an error matching ErrNotFound.
func (s *Store) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	var t Topic
	err := s.read(func(db *sqlx.DB) error {
		return notFound(db.GetContext(ctx, &t, `SELECT id, name FROM topics WHERE name = ?`, name), "topic "+name)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTopics returns every topic ordered by name.
func (s *Store) ListTopics(ctx context.Context) ([]Topic, error) {
	topics := []Topic{}
	err := s.read(func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &topics, `SELECT id, name FROM topics ORDER BY name`)
	})
	return topics, err
}

// CountTopics returns the number of distinct topics.
func (s *Store) CountTopics(ctx context.Context) (int, error) {
	var n int
	err := s.read(func(db *sqlx.DB) error {
		return db.GetContext(ctx, &n, `SELECT COUNT(*) FROM topics`)
	})
	return n, err
}

// ProjectTopics returns the topic names of a project ordered by name.
func (s *Store) ProjectTopics(ctx context.Context, projectID int64) ([]string, error) {
	var names []string
	err := s.read(func(db *sqlx.DB) error {
		var err error
		names, err = projectTopics(ctx, db, projectID)
		return err
	})
	return names, err
}

func projectTopics(ctx context.Context, q queryer, projectID int64) ([]string, error) {
	names := []string{}
	err := q.SelectContext(ctx, &names, `SELECT t.name FROM topics t
		JOIN project_topics pt ON pt.topic_id = t.id
		WHERE pt.project_id = ?
		ORDER BY t.name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load topics of project %d: %w", projectID, err)
	}
	return names, nil
}

func setProjectTopics(ctx context.Context, q queryer, projectID int64, topics []Topic) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM project_topics WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear topics of project %d: %w", projectID, err)
	}
	for _, t := range topics {
		if _, err := q.ExecContext(ctx, `INSERT INTO project_topics (project_id, topic_id) VALUES (?, ?)`, projectID, t.ID); err != nil {
			return fmt.Errorf("link topic %q to project %d: %w", t.Name, projectID, err)
		}
	}
	return nil
}

// attachTopics fills Topics on every project with one query.
func attachTopics(ctx context.Context, db *sqlx.DB, projects []Project) error {
	if len(projects) == 0 {
		return nil
	}

	ids := make([]int64, len(projects))
	byID := make(map[int64]*Project, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
		projects[i].Topics = []string{}
		byID[projects[i].ID] = &projects[i]
	}

	query, args, err := sqlx.In(`SELECT pt.project_id, t.name FROM project_topics pt
		JOIN topics t ON t.id = pt.topic_id
		WHERE pt.project_id IN (?)
		ORDER BY pt.project_id, t.name`, ids)
	if err != nil {
		return err
	}

	var rows []struct {
		ProjectID int64  `db:"project_id"`
		Name      string `db:"name"`
	}
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load project topics: %w", err)
	}
	for _, r := range rows {
		if p := byID[r.ProjectID]; p != nil {
			p.Topics = append(p.Topics, r.Name)
		}
	}
	return nil
}
