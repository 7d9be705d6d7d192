// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Project is a stored repository.
type Project struct {
	ID             int64      `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"full_name"`
	URL            string     `db:"url" json:"url"`
	Stars          int        `db:"stars" json:"stars"`
	LastCommitDate *time.Time `db:"last_commit_date" json:"last_commit_date"`
	Language       *string    `db:"language" json:"language"`
	Description    *string    `db:"description" json:"description"`
	FetchedAt      time.Time  `db:"fetched_at" json:"fetched_at"`
	JSLinesCount   *int64     `db:"js_lines_count" json:"js_lines_count"`

	// Topics is filled by the getters; it is not a column.
	Topics []string `db:"-" json:"topics"`
}

// ProjectURL is the slice of a project needed to clone it.
type ProjectURL struct {
	ID       int64  `db:"id"`
	FullName string `db:"full_name"`
	URL      string `db:"url"`
}

// RepositoryRecord is the input to SaveProject, as returned by search.
type RepositoryRecord struct {
	FullName       string
	URL            string
	Stars          int
	Language       *string
	Description    *string
	LastCommitDate *time.Time
	Topics         []string
}

// SaveOutcome tells what SaveProject did.
type SaveOutcome int

const (
	Created SaveOutcome = iota
	Updated
	Unchanged
)

func (o SaveOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("SaveOutcome(%d)", int(o))
	}
}

const projectColumns = `id, full_name, url, stars, last_commit_date, language, description, fetched_at, js_lines_count`

// GetProjectByFullName returns the project with the given "owner/repo" name,
// or an error matching ErrNotFound.
func (s *Store) GetProjectByFullName(ctx context.Context, fullName string) (*Project, error) {
	var p Project
	err := s.read(func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, &p, `SELECT `+projectColumns+` FROM projects WHERE full_name = ?`, fullName); err != nil {
			return notFound(err, "project "+fullName)
		}
		topics, err := projectTopics(ctx, db, p.ID)
		if err != nil {
			return err
		}
		p.Topics = topics
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns every project ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	return s.selectProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
}

// CountProjects returns the number of stored projects.
func (s *Store) CountProjects(ctx context.Context) (int, error) {
	var n int
	err := s.read(func(db *sqlx.DB) error {
		return db.GetContext(ctx, &n, `SELECT COUNT(*) FROM projects`)
	})
	return n, err
}

// ProjectURLs returns id, full name and URL of every project ordered by id.
func (s *Store) ProjectURLs(ctx context.Context) ([]ProjectURL, error) {
	urls := []ProjectURL{}
	err := s.read(func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &urls, `SELECT id, full_name, url FROM projects ORDER BY id`)
	})
	return urls, err
}

// SaveProject inserts a project, or updates it when it already exists and
// update is true. An existing project with update false is returned as is
// with the Unchanged outcome.
//
// On update every column is replaced and fetched_at is refreshed. Topics
// are replaced only when rec carries at least one.
func (s *Store) SaveProject(ctx context.Context, rec RepositoryRecord, update bool) (SaveOutcome, *Project, error) {
	if rec.FullName == "" {
		return 0, nil, fmt.Errorf("save project: full name required")
	}
	if rec.Stars < 0 {
		return 0, nil, fmt.Errorf("save project %s: negative stars %d", rec.FullName, rec.Stars)
	}

	now := time.Now().UTC()
	var outcome SaveOutcome
	var id int64

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &id, `SELECT id FROM projects WHERE full_name = ?`, rec.FullName)
		switch {
		case err == nil && !update:
			outcome = Unchanged
			return nil

		case err == nil:
			outcome = Updated
			_, err = tx.ExecContext(ctx, `UPDATE projects
				SET url = ?, stars = ?, language = ?, description = ?, last_commit_date = ?, fetched_at = ?
				WHERE id = ?`,
				rec.URL, rec.Stars, rec.Language, rec.Description, utcPtr(rec.LastCommitDate), now, id)
			if err != nil {
				return fmt.Errorf("update project %s: %w", rec.FullName, err)
			}

		case errors.Is(err, sql.ErrNoRows):
			outcome = Created
			res, err := tx.ExecContext(ctx, `INSERT INTO projects
				(full_name, url, stars, language, description, last_commit_date, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.FullName, rec.URL, rec.Stars, rec.Language, rec.Description, utcPtr(rec.LastCommitDate), now)
			if err != nil {
				return fmt.Errorf("insert project %s: %w", rec.FullName, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return err
			}

		default:
			return fmt.Errorf("lookup project %s: %w", rec.FullName, err)
		}

		if len(rec.Topics) == 0 {
			return nil
		}
		topics, err := GetOrCreateTopics(ctx, tx, rec.Topics)
		if err != nil {
			return err
		}
		return setProjectTopics(ctx, tx, id, topics)
	})
	if err != nil {
		return 0, nil, err
	}

	p, err := s.GetProjectByFullName(ctx, rec.FullName)
	if err != nil {
		return 0, nil, err
	}
	return outcome, p, nil
}

// UpdateLineCount stores the JavaScript line count of a project.
func (s *Store) UpdateLineCount(ctx context.Context, id int64, lines int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE projects SET js_lines_count = ? WHERE id = ?`, lines, id)
		if err != nil {
			return fmt.Errorf("update line count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("project %d %w", id, ErrNotFound)
		}
		return nil
	})
}

// UpdateLineCounts stores several line counts, keyed by project ID, in one
// transaction. Either all of them are written or none is.
func (s *Store) UpdateLineCounts(ctx context.Context, counts map[int64]int64) error {
	if len(counts) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `UPDATE projects SET js_lines_count = ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("prepare line count update: %w", err)
		}
		defer stmt.Close()

		for id, lines := range counts {
			res, err := stmt.ExecContext(ctx, lines, id)
			if err != nil {
				return fmt.Errorf("update line count of project %d: %w", id, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("project %d %w", id, ErrNotFound)
			}
		}
		return nil
	})
}

// LineCount returns the stored line count of a project, which is nil when
// it was never measured. A missing project yields ErrNotFound.
func (s *Store) LineCount(ctx context.Context, fullName string) (*int64, error) {
	var n *int64
	err := s.read(func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, &n, `SELECT js_lines_count FROM projects WHERE full_name = ?`, fullName); err != nil {
			return notFound(err, "project "+fullName)
		}
		return nil
	})
	return n, err
}

func (s *Store) selectProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	projects := []Project{}
	err := s.read(func(db *sqlx.DB) error {
		if err := db.SelectContext(ctx, &projects, query, args...); err != nil {
			return fmt.Errorf("select projects: %w", err)
		}
		return attachTopics(ctx, db, projects)
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
