// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later


package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a project, topic or database file does not
// exist.
var ErrNotFound = errors.New("not found")

const driverName = "sqlite"

// Store is the SQLite-backed project store.
type Store struct {
	db     *sqlx.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the database file at path. Parent directories are
// created. The schema is not touched; call EnsureSchema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	return open(ctx, dsn(abs), abs)
}

// OpenMemory opens a private in-memory database with the schema applied.
// It is meant for tests.
func OpenMemory(ctx context.Context) (*Store, error) {
	s, err := open(ctx, dsn(":memory:"), ":memory:")
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
}

func open(ctx context.Context, dsn, path string) (*Store, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the absolute database path, or ":memory:".
func (s *Store) Path() string { return s.path }

// DB returns the underlying sqlx handle for advanced callers.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		stars INTEGER NOT NULL DEFAULT 0 CHECK (stars >= 0),
		last_commit_date TIMESTAMP NULL,
		language TEXT NULL,
		description TEXT NULL,
		fetched_at TIMESTAMP NOT NULL,
		js_lines_count INTEGER NULL
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS project_topics (
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, topic_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_stars ON projects(stars)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_last_commit_date ON projects(last_commit_date)`,
}

// EnsureSchema creates the tables and indexes if they don't exist.
// This is idempotent and safe to call multiple times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// withTx runs fn in a transaction, rolling back when it fails.
func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("store is closed")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// read guards a read-only operation against a closed store.
func (s *Store) read(fn func(db *sqlx.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.New("store is closed")
	}
	return fn(s.db)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}
