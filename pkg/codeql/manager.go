// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeql

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/kraklabs/mbscanner/pkg/layout"
)

// Manager keeps one CodeQL database per project under BaseDir.
type Manager struct {
	CLI     *CLI
	BaseDir string
	Logger  *slog.Logger
}

// NewManager creates a manager storing databases under baseDir.
func NewManager(cli *CLI, baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{CLI: cli, BaseDir: baseDir, Logger: logger}
}

// DatabasePath returns BaseDir/<owner-repo>.
func (m *Manager) DatabasePath(fullName string) string {
	return layout.DatabasePath(m.BaseDir, fullName)
}

// DatabaseExists reports whether the project's database directory exists.
func (m *Manager) DatabaseExists(fullName string) bool {
	_, err := os.Stat(m.DatabasePath(fullName))
	exists := err == nil
	m.Logger.Debug("codeql.database.exists", "project", fullName, "exists", exists)
	return exists
}

// CreateDatabase builds the project's database from sourceRoot. With force
// an existing database is removed first; otherwise it is an
// ErrDatabaseExists error.
func (m *Manager) CreateDatabase(ctx context.Context, fullName, sourceRoot, language string, res Resources, force bool) (string, error) {
	dbPath := m.DatabasePath(fullName)

	if _, err := os.Stat(dbPath); err == nil {
		if !force {
			return "", errors.Wrapf(ErrDatabaseExists, "%s (use force to overwrite)", dbPath)
		}
		m.Logger.Warn("codeql.database.remove", "project", fullName, "db", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			return "", errors.Wrapf(err, "remove existing database %s", dbPath)
		}
	}

	if err := m.CLI.CreateDatabase(ctx, dbPath, sourceRoot, language, res, 0); err != nil {
		return "", err
	}
	m.Logger.Info("codeql.database.created", "project", fullName, "db", dbPath)
	return dbPath, nil
}

// AnalyzeOptions tunes AnalyzeDatabase.
type AnalyzeOptions struct {
	Format        string
	Resources     Resources
	SarifCategory string
	AddSnippets   bool
}

// AnalyzeDatabase runs queries against the project's database and writes
// the results to outputPath.
func (m *Manager) AnalyzeDatabase(ctx context.Context, fullName, outputPath string, queries []string, opts AnalyzeOptions) error {
	if !m.DatabaseExists(fullName) {
		return errors.Wrapf(ErrDatabaseNotFound, "project %s", fullName)
	}
	return m.CLI.Analyze(ctx, AnalyzeRequest{
		DatabasePath:  m.DatabasePath(fullName),
		OutputPath:    outputPath,
		Queries:       queries,
		Format:        opts.Format,
		Resources:     opts.Resources,
		SarifCategory: opts.SarifCategory,
		AddSnippets:   opts.AddSnippets,
	})
}
