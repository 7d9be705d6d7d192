// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/mbscanner/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.CodeQL.OutputBaseDir = filepath.Join(root, "outputs", "queries")
	return cfg
}

func TestInitWorkspace(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	info, err := InitWorkspace(ctx, cfg, nil)
	require.NoError(t, err)

	for _, dir := range []string{info.DataDir, info.RepositoriesDir, info.DatabaseDir, info.QueryOutputDir} {
		st, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, st.IsDir(), dir)
	}
	assert.FileExists(t, info.DBPath)
	assert.Equal(t, map[string]bool{"add_js_lines_count_column": false}, info.Migrations)

	// Second run is a no-op.
	again, err := InitWorkspace(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, info.DBPath, again.DBPath)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("not initialized", func(t *testing.T) {
		cfg := testConfig(t)
		_, err := OpenStore(ctx, cfg, false, nil)
		require.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("create on demand", func(t *testing.T) {
		cfg := testConfig(t)
		store, err := OpenStore(ctx, cfg, true, nil)
		require.NoError(t, err)
		defer store.Close()

		n, err := store.CountProjects(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("after init", func(t *testing.T) {
		cfg := testConfig(t)
		_, err := InitWorkspace(ctx, cfg, nil)
		require.NoError(t, err)

		store, err := OpenStore(ctx, cfg, false, nil)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})
}
