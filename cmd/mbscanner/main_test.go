// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/mbscanner/internal/config"
	"github.com/kraklabs/mbscanner/internal/errors"
	mbtest "github.com/kraklabs/mbscanner/internal/testing"
	"github.com/kraklabs/mbscanner/pkg/storage"
	"github.com/kraklabs/mbscanner/pkg/summary"
)

// workspace moves the test into an empty directory and clears the
// environment the CLI reads.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"GITHUB_TOKEN", "MB_SCANNER_GITHUB_TOKEN", "MB_SCANNER_DATA_DIR", "MB_SCANNER_DB_FILE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("MB_SCANNER_LOG_TO_CONSOLE", "false")
	return dir
}

func runCLI(t *testing.T, args ...string) int {
	t.Helper()
	return run(context.Background(), append([]string{"--no-color", "-q"}, args...))
}

func initWorkspace(t *testing.T) {
	t.Helper()
	require.Equal(t, errors.ExitSuccess, runCLI(t, "init", "-y"))
}

// seedProjects stores GitHub projects in the workspace database, keyed by
// full name with their line counts.
func seedProjects(t *testing.T, lines map[string]int64) {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.Load(config.DefaultPath)
	require.NoError(t, err)
	store, err := storage.Open(ctx, cfg.DBPath())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	for name, n := range lines {
		rec := storage.RepositoryRecord{FullName: name, URL: "https://github.com/" + name, Stars: 10}
		_, p, err := store.SaveProject(ctx, rec, false)
		require.NoError(t, err)
		require.NoError(t, store.UpdateLineCount(ctx, p.ID, n))
	}
}

func TestRunGlobal(t *testing.T) {
	workspace(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"--version"}, errors.ExitSuccess},
		{"help", []string{"--help"}, errors.ExitSuccess},
		{"no command", nil, errors.ExitFailure},
		{"unknown command", []string{"frobnicate"}, errors.ExitFailure},
		{"unknown global flag", []string{"--bogus", "init"}, errors.ExitFailure},
		{"missing group subcommand", []string{"github"}, errors.ExitFailure},
		{"unknown group subcommand", []string{"codeql", "nope"}, errors.ExitFailure},
		{"group help", []string{"visualize", "--help"}, errors.ExitSuccess},
		{"command help", []string{"count-lines", "--help"}, errors.ExitSuccess},
		{"bad command flag", []string{"migrate", "--bogus"}, errors.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(context.Background(), tt.args))
		})
	}
}

func TestRunInit(t *testing.T) {
	workspace(t)
	mbtest.WriteFile(t, ".gitignore", "node_modules/\n")

	require.Equal(t, errors.ExitSuccess, runCLI(t, "init", "-y", "--language", "TypeScript", "--min-stars", "50"))

	assert.FileExists(t, config.DefaultPath)
	assert.FileExists(t, filepath.Join("data", "mb_scanner.db"))
	assert.DirExists(t, filepath.Join("data", "repositories"))
	assert.DirExists(t, filepath.Join("data", "codeql-dbs"))
	assert.DirExists(t, filepath.Join("outputs", "queries"))

	cfg, err := config.Load(config.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "TypeScript", cfg.Search.Language)
	assert.Equal(t, 50, cfg.Search.MinStars)

	gitignore, err := os.ReadFile(".gitignore")
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ".mbscanner/")
	assert.Contains(t, string(gitignore), ".env")

	t.Run("refuses to overwrite", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "init", "-y"))
	})
	t.Run("force overwrites", func(t *testing.T) {
		require.Equal(t, errors.ExitSuccess, runCLI(t, "init", "-y", "--force"))
		cfg, err := config.Load(config.DefaultPath)
		require.NoError(t, err)
		assert.Equal(t, "JavaScript", cfg.Search.Language)
	})
}

func TestRunMigrate(t *testing.T) {
	workspace(t)

	assert.Equal(t, errors.ExitFailure, runCLI(t, "migrate"), "no database yet")

	initWorkspace(t)
	assert.Equal(t, errors.ExitSuccess, runCLI(t, "migrate", "--dry-run"))
	assert.Equal(t, errors.ExitSuccess, runCLI(t, "migrate"))
}

func TestRunCountLines(t *testing.T) {
	workspace(t)

	assert.Equal(t, errors.ExitFailure, runCLI(t, "count-lines"), "no repositories directory")

	initWorkspace(t)
	assert.Equal(t, errors.ExitSuccess, runCLI(t, "count-lines"))
	assert.Equal(t, errors.ExitFailure, runCLI(t, "count-lines", "--batch-size", "0"))
}

func TestRunCodeQLSummary(t *testing.T) {
	workspace(t)
	queryDir := filepath.Join("outputs", "queries", "id_10")
	mbtest.WriteSARIF(t, filepath.Join(queryDir, "facebook-react.sarif"),
		mbtest.SARIFResult{URI: "a.js", StartLine: 1},
		mbtest.SARIFResult{URI: "b.js", StartLine: 2},
	)
	mbtest.WriteSARIF(t, filepath.Join(queryDir, "vuejs-core.sarif"))

	require.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "summary", "id_10"))
	all, err := summary.Load(filepath.Join(queryDir, "summary.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"facebook/react": 2, "vuejs/core": 0}, all.Results)
	assert.Nil(t, all.Threshold)

	require.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "summary", "id_10", "-t", "1"))
	limited, err := summary.Load(filepath.Join(queryDir, "limit_1_summary.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"facebook/react": 2}, limited.Results)
	require.NotNil(t, limited.Threshold)
	assert.Equal(t, 1, *limited.Threshold)

	t.Run("missing query directory", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "summary", "id_99"))
	})
	t.Run("missing query id", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "summary"))
	})
}

const fakeCodeQL = `
case "$1 $2" in
  "version "*)
    echo "CodeQL command-line toolchain release 2.19.0."
    ;;
  "database analyze")
    for a in "$@"; do
      case "$a" in
        --output=*) printf '{"runs":[{"results":[{},{},{}]}]}' > "${a#--output=}" ;;
      esac
    done
    ;;
esac`

func TestRunCodeQLWithFakeCLI(t *testing.T) {
	workspace(t)
	t.Setenv("MB_SCANNER_CODEQL_CLI_PATH", mbtest.FakeTool(t, "codeql", fakeCodeQL))

	assert.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "version"))

	require.NoError(t, os.MkdirAll(filepath.Join("data", "codeql-dbs", "facebook-react"), 0o755))
	mbtest.WriteFile(t, filepath.Join("queries", "id_10.ql"), "select 1")

	require.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "query", "facebook/react", "-q", filepath.Join("queries", "id_10.ql")))
	assert.FileExists(t, filepath.Join("outputs", "queries", "id_10", "facebook-react.sarif"))

	require.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "summary", "id_10"))
	s, err := summary.Load(filepath.Join("outputs", "queries", "id_10", "summary.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"facebook/react": 3}, s.Results)

	t.Run("no query files", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "query", "facebook/react"))
	})
	t.Run("invalid project name", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "query", "react", "-q", filepath.Join("queries", "id_10.ql")))
	})
	t.Run("missing database", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "query", "vuejs/core", "-q", filepath.Join("queries", "id_10.ql")))
	})
	t.Run("create-db needs a workspace", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "create-db", "facebook/react"))
	})
}

func TestRunCodeQLVersionMissingCLI(t *testing.T) {
	workspace(t)
	t.Setenv("MB_SCANNER_CODEQL_CLI_PATH", filepath.Join(t.TempDir(), "no-such-codeql"))

	assert.Equal(t, errors.ExitFailure, runCLI(t, "codeql", "version"))
}

func TestRunExtractCode(t *testing.T) {
	workspace(t)
	mbtest.WriteSARIF(t, filepath.Join("outputs", "queries", "id_10", "facebook-react.sarif"),
		mbtest.SARIFResult{URI: "src/app.js", StartLine: 2, Message: "flagged"},
	)
	mbtest.WriteSARIF(t, filepath.Join("outputs", "queries", "id_10", "vuejs-core.sarif"),
		mbtest.SARIFResult{URI: "index.js", StartLine: 1},
	)
	mbtest.WriteFile(t, filepath.Join("data", "repositories", "facebook-react", "src", "app.js"), "a\nb\nc\n")

	t.Run("single", func(t *testing.T) {
		require.Equal(t, errors.ExitSuccess, runCLI(t, "extract-code", "single", "id_10", "facebook/react"))
		assert.FileExists(t, filepath.Join(DefaultExtractDir, "id_10", "facebook-react_code.json"))
	})

	t.Run("single skipped without clone", func(t *testing.T) {
		assert.Equal(t, errors.ExitSuccess, runCLI(t, "extract-code", "single", "id_10", "vuejs/core"))
		assert.NoFileExists(t, filepath.Join(DefaultExtractDir, "id_10", "vuejs-core_code.json"))
	})

	t.Run("batch over every SARIF file", func(t *testing.T) {
		out := t.TempDir()
		require.Equal(t, errors.ExitSuccess, runCLI(t, "extract-code", "batch", "id_10", "-j", "2", "--output-dir", out))
		assert.FileExists(t, filepath.Join(out, "id_10", "facebook-react_code.json"))
	})

	t.Run("batch with explicit projects", func(t *testing.T) {
		out := t.TempDir()
		require.Equal(t, errors.ExitSuccess, runCLI(t, "extract-code", "batch", "id_10", "--projects", "facebook/react", "--output-dir", out))
		assert.FileExists(t, filepath.Join(out, "id_10", "facebook-react_code.json"))
	})

	t.Run("batch with unknown query", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "extract-code", "batch", "id_99"))
	})

	t.Run("summary and projects are exclusive", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "extract-code", "batch", "id_10", "--summary", "s.json", "--projects", "a/b"))
	})
}

func TestBatchProjects(t *testing.T) {
	dir := t.TempDir()
	mbtest.WriteSARIF(t, filepath.Join(dir, "id_1", "b-two.sarif"))
	mbtest.WriteSARIF(t, filepath.Join(dir, "id_1", "a-one.sarif"))
	summaryPath := filepath.Join(dir, "summary.json")
	require.NoError(t, summary.New("id_1", map[string]int{"z/z": 1, "c/c": 4}, nil).Save(summaryPath))

	names, err := batchProjects(dir, "id_1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one", "b/two"}, names)

	names, err = batchProjects(dir, "id_1", summaryPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c/c", "z/z"}, names)

	names, err = batchProjects(dir, "id_1", "", []string{" x/y ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"x/y"}, names)

	_, err = batchProjects(dir, "missing", "", nil)
	assert.Error(t, err)
}

func TestRunVisualize(t *testing.T) {
	workspace(t)

	input := filepath.Join("outputs", "summaries")
	require.NoError(t, summary.New("id_10", map[string]int{"a/a": 1, "b/b": 5, "c/c": 9}, nil).Save(filepath.Join(input, "id_10.json")))
	require.NoError(t, summary.New("id_18", map[string]int{"a/a": 2, "b/b": 3}, nil).Save(filepath.Join(input, "id_18.json")))

	t.Run("boxplot", func(t *testing.T) {
		out := filepath.Join("outputs", "plots", "box.png")
		require.Equal(t, errors.ExitSuccess, runCLI(t, "visualize", "boxplot", "-i", input, "-o", out, "--query-order", "id_18,id_10"))
		assert.FileExists(t, out)
	})

	t.Run("boxplot without input", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "visualize", "boxplot"))
	})

	t.Run("boxplot unsupported format", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "visualize", "boxplot", "-i", input, "-o", "plot.bmp"))
	})

	t.Run("scatter without query result", func(t *testing.T) {
		assert.Equal(t, errors.ExitFailure, runCLI(t, "visualize", "scatter"))
	})

	t.Run("scatter with empty store", func(t *testing.T) {
		initWorkspace(t)
		out := filepath.Join("outputs", "plots", "scatter.svg")
		require.Equal(t, errors.ExitSuccess, runCLI(t, "visualize", "scatter", "-q", filepath.Join(input, "id_10.json"), "-o", out))
		assert.FileExists(t, out)
	})

	t.Run("hexbin", func(t *testing.T) {
		seedProjects(t, map[string]int64{"a/a": 1200, "b/b": 45000, "c/c": 900000})
		q := filepath.Join(input, "id_10.json")

		out := filepath.Join("outputs", "plots", "hexbin.png")
		require.Equal(t, errors.ExitSuccess, runCLI(t, "visualize", "scatter", "-q", q, "-o", out,
			"--use-hexbin", "--gridsize", "8", "--cmap", "YlOrRd", "--log-scale-x", "--show-regression"))
		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Positive(t, info.Size())

		assert.Equal(t, errors.ExitFailure, runCLI(t, "visualize", "scatter", "-q", q, "-o", out, "--use-hexbin", "--gridsize", "0"))
		assert.Equal(t, errors.ExitFailure, runCLI(t, "visualize", "scatter", "-q", q, "-o", out, "--use-hexbin", "--cmap", "nope"))
	})
}

func TestRunCreateDBBatchFilter(t *testing.T) {
	workspace(t)
	initWorkspace(t)
	seedProjects(t, map[string]int64{"a/a": 100})

	assert.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "create-db-batch", "--min-stars", "1000"))
	assert.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "create-db-batch", "--topic", "missing"))
	assert.Equal(t, errors.ExitSuccess, runCLI(t, "codeql", "create-db-batch", "--project-language", "Go"))
}

func TestRunCompletion(t *testing.T) {
	workspace(t)

	var buf bytes.Buffer
	orig := completionOut
	completionOut = &buf
	t.Cleanup(func() { completionOut = orig })

	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "complete -F _mbscanner_completion mbscanner"},
		{"zsh", "#compdef mbscanner"},
		{"fish", "complete -c mbscanner"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			buf.Reset()
			require.Equal(t, errors.ExitSuccess, runCLI(t, "completion", tt.shell))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	assert.Equal(t, errors.ExitFailure, runCLI(t, "completion", "tcsh"))
	assert.Equal(t, errors.ExitFailure, runCLI(t, "completion"))
}
