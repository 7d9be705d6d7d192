// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeql

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbtest "github.com/kraklabs/mbscanner/internal/testing"
)

// fakeCodeQLScript records its arguments, creates the database directory
// for "database create" and writes an empty SARIF file for
// "database analyze".
const fakeCodeQLScript = `
case "$1 $2" in
  "version "*)
    echo "CodeQL command-line toolchain release 2.19.0."
    ;;
  "database create")
    mkdir -p "$3"
    ;;
  "database analyze")
    for a in "$@"; do
      case "$a" in
        --output=*) printf '{"runs":[{"results":[{},{}]}]}' > "${a#--output=}" ;;
      esac
    done
    ;;
esac`

// fakeCLI returns a CLI backed by a shell script and the file its
// arguments are recorded to.
func fakeCLI(t *testing.T, body string) (*CLI, string) {
	t.Helper()
	argsFile := filepath.Join(t.TempDir(), "args")
	path := mbtest.FakeTool(t, "codeql", `echo "$@" >> "`+argsFile+`"`+"\n"+body)
	return NewCLI(path, nil), argsFile
}

func recordedArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestVersion(t *testing.T) {
	cli, _ := fakeCLI(t, fakeCodeQLScript)

	version, err := cli.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CodeQL command-line toolchain release 2.19.0.", version)
}

func TestVersion_NotFound(t *testing.T) {
	for _, path := range []string{
		filepath.Join(t.TempDir(), "missing-codeql"),
		"mbscanner-no-such-binary",
	} {
		_, err := NewCLI(path, nil).Version(context.Background())
		assert.True(t, errors.Is(err, ErrCLINotFound), "%s: got %v", path, err)
	}
}

func TestCreateDatabase(t *testing.T) {
	cli, argsFile := fakeCLI(t, fakeCodeQLScript)
	src := t.TempDir()
	db := filepath.Join(t.TempDir(), "dbs", "facebook-react")

	err := cli.CreateDatabase(context.Background(), db, src, "javascript", Resources{Threads: 4, RAM: 2048}, 0)
	require.NoError(t, err)

	assert.DirExists(t, db)
	assert.Equal(t,
		[]string{"database create " + db + " --language=javascript --source-root=" + src + " --threads=4 --ram=2048"},
		recordedArgs(t, argsFile))
}

func TestCreateDatabase_Preconditions(t *testing.T) {
	cli, argsFile := fakeCLI(t, fakeCodeQLScript)
	existing := t.TempDir()

	err := cli.CreateDatabase(context.Background(), existing, t.TempDir(), "javascript", Resources{}, 0)
	assert.True(t, errors.Is(err, ErrDatabaseExists))

	err = cli.CreateDatabase(context.Background(), filepath.Join(t.TempDir(), "db"), filepath.Join(t.TempDir(), "missing"), "javascript", Resources{}, 0)
	assert.True(t, errors.Is(err, ErrSourceNotFound))

	assert.NoFileExists(t, argsFile)
}

func TestCreateDatabase_ToolError(t *testing.T) {
	cli, _ := fakeCLI(t, `echo "A fatal error occurred: no source files" >&2
exit 32`)

	err := cli.CreateDatabase(context.Background(), filepath.Join(t.TempDir(), "db"), t.TempDir(), "javascript", Resources{}, 0)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Equal(t, 32, toolErr.ExitCode)
	assert.Contains(t, toolErr.Stderr, "no source files")
	assert.Contains(t, toolErr.Error(), "codeql database create failed with exit code 32")
}

func TestCreateDatabase_Timeout(t *testing.T) {
	cli, _ := fakeCLI(t, `exec sleep 5`)

	err := cli.CreateDatabase(context.Background(), filepath.Join(t.TempDir(), "db"), t.TempDir(), "javascript", Resources{}, 200*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name string
		req  AnalyzeRequest
		want string
	}{
		{
			name: "defaults",
			req:  AnalyzeRequest{Queries: []string{"q/id_10.ql"}},
			want: "database analyze DB q/id_10.ql --format=sarifv2.1.0 --output=OUT",
		},
		{
			name: "all options",
			req: AnalyzeRequest{
				Queries:       []string{"a.ql", "b.ql"},
				Format:        "csv",
				Resources:     Resources{Threads: 2},
				SarifCategory: "js",
				AddSnippets:   true,
			},
			want: "database analyze DB a.ql b.ql --format=csv --output=OUT --threads=2 --sarif-category=js --sarif-add-snippets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, argsFile := fakeCLI(t, fakeCodeQLScript)
			db := t.TempDir()
			out := filepath.Join(t.TempDir(), "id_10", "a-b.sarif")
			tt.req.DatabasePath = db
			tt.req.OutputPath = out

			require.NoError(t, cli.Analyze(context.Background(), tt.req))

			assert.FileExists(t, out)
			want := strings.NewReplacer("DB", db, "OUT", out).Replace(tt.want)
			assert.Equal(t, []string{want}, recordedArgs(t, argsFile))
		})
	}
}

func TestAnalyze_NoQueries(t *testing.T) {
	cli, argsFile := fakeCLI(t, fakeCodeQLScript)

	err := cli.Analyze(context.Background(), AnalyzeRequest{DatabasePath: t.TempDir(), OutputPath: filepath.Join(t.TempDir(), "o.sarif")})
	assert.Error(t, err)
	assert.NoFileExists(t, argsFile)
}

func TestSubcommand(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"version"}, []string{"version"}},
		{[]string{"database", "create", "/db", "--language=js"}, []string{"database", "create"}},
		{[]string{"database", "--help"}, []string{"database"}},
		{[]string{"resolve", "queries"}, []string{"resolve"}},
		{nil, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subcommand(tt.args), "%v", tt.args)
	}
}
