// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migration is one additive schema change. Run reports whether the change
// was (or, on a dry run, would be) applied.
type Migration struct {
	Name string
	Run  func(ctx context.Context, db *sqlx.DB, dryRun bool, logger *slog.Logger) (bool, error)
}

// Migrations lists every migration in the order they are applied.
var Migrations = []Migration{
	{Name: "add_js_lines_count_column", Run: addLineCountColumn},
}

// AddLineCountColumn adds projects.js_lines_count to an existing database
// file. It returns false when the column is already there.
func AddLineCountColumn(ctx context.Context, dbPath string, dryRun bool, logger *slog.Logger) (bool, error) {
	var applied bool
	err := withMigrationDB(ctx, dbPath, func(db *sqlx.DB) error {
		var err error
		applied, err = addLineCountColumn(ctx, db, dryRun, orDefault(logger))
		return err
	})
	return applied, err
}

// RunAllMigrations applies every migration to the database file and reports
// the outcome per migration name. The first failure stops the run.
func RunAllMigrations(ctx context.Context, dbPath string, dryRun bool, logger *slog.Logger) (map[string]bool, error) {
	logger = orDefault(logger)
	results := make(map[string]bool, len(Migrations))
	err := withMigrationDB(ctx, dbPath, func(db *sqlx.DB) error {
		for _, m := range Migrations {
			logger.Info("storage.migrate.run", "migration", m.Name, "dry_run", dryRun)
			applied, err := m.Run(ctx, db, dryRun, logger)
			if err != nil {
				return fmt.Errorf("migration %s: %w", m.Name, err)
			}
			results[m.Name] = applied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func withMigrationDB(ctx context.Context, dbPath string, fn func(*sqlx.DB) error) error {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database file %w: %s", ErrNotFound, dbPath)
		}
		return err
	}

	s, err := Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s.db)
}

func addLineCountColumn(ctx context.Context, db *sqlx.DB, dryRun bool, logger *slog.Logger) (bool, error) {
	exists, err := columnExists(ctx, db, "projects", "js_lines_count")
	if err != nil {
		return false, err
	}
	if exists {
		logger.Info("storage.migrate.column_exists", "table", "projects", "column", "js_lines_count")
		return false, nil
	}

	const stmt = `ALTER TABLE projects ADD COLUMN js_lines_count INTEGER`
	if dryRun {
		logger.Info("storage.migrate.dry_run", "statement", stmt)
		return true, nil
	}

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		// Another process added the column between the check and the ALTER.
		if strings.Contains(err.Error(), "duplicate column name") {
			logger.Info("storage.migrate.column_exists", "table", "projects", "column", "js_lines_count")
			return false, nil
		}
		return false, fmt.Errorf("failed to execute migration: %w", err)
	}
	logger.Info("storage.migrate.applied", "table", "projects", "column", "js_lines_count")
	return true, nil
}

func columnExists(ctx context.Context, db *sqlx.DB, table, column string) (bool, error) {
	rows, err := db.QueryxContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			found = true
		}
	}
	return found, rows.Err()
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
