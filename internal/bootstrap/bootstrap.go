// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/mbscanner/internal/config"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// ErrNotInitialized is returned by OpenStore when the metadata database
// file does not exist yet.
var ErrNotInitialized = errors.New("workspace not initialized")

// WorkspaceInfo describes an initialized workspace.
type WorkspaceInfo struct {
	DataDir         string          `json:"data_dir"`
	DBPath          string          `json:"db_path"`
	RepositoriesDir string          `json:"repositories_dir"`
	DatabaseDir     string          `json:"database_dir"`
	QueryOutputDir  string          `json:"query_output_dir"`
	Migrations      map[string]bool `json:"migrations"`
}

// InitWorkspace creates the workspace directories and the metadata database,
// then applies pending migrations. Calling it again is safe.
func InitWorkspace(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*WorkspaceInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info := &WorkspaceInfo{
		DataDir:         cfg.DataPath(),
		DBPath:          cfg.DBPath(),
		RepositoriesDir: cfg.RepositoriesDir(),
		DatabaseDir:     cfg.DatabaseDir(),
		QueryOutputDir:  cfg.QueryOutputDir(),
	}

	logger.Info("bootstrap.workspace.init.start",
		"data_dir", info.DataDir,
		"db_path", info.DBPath,
	)

	for _, dir := range []string{info.DataDir, info.RepositoriesDir, info.DatabaseDir, info.QueryOutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	store, err := storage.Open(ctx, info.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	schemaErr := store.EnsureSchema(ctx)
	_ = store.Close()
	if schemaErr != nil {
		return nil, fmt.Errorf("ensure schema: %w", schemaErr)
	}

	// Databases created by older releases lack columns EnsureSchema cannot add.
	applied, err := storage.RunAllMigrations(ctx, info.DBPath, false, logger)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	info.Migrations = applied

	logger.Info("bootstrap.workspace.init.success", "db_path", info.DBPath)
	return info, nil
}

// OpenStore opens the metadata database of an initialized workspace and
// makes sure its tables exist. When create is false and the database file
// is missing it returns ErrNotInitialized.
func OpenStore(ctx context.Context, cfg *config.Config, create bool, logger *slog.Logger) (*storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := cfg.DBPath()
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run 'mbscanner init' first)", ErrNotInitialized, path)
		}
	}

	logger.Debug("bootstrap.store.open", "db_path", path)

	store, err := storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}
