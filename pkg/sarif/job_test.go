// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbtest "github.com/kraklabs/mbscanner/internal/testing"
)

type jobDirs struct {
	sarif, repos, out string
}

func newJobDirs(t *testing.T) jobDirs {
	root := t.TempDir()
	return jobDirs{
		sarif: filepath.Join(root, "queries"),
		repos: filepath.Join(root, "repositories"),
		out:   filepath.Join(root, "extracted"),
	}
}

func (d jobDirs) spec(project string) JobSpec {
	return JobSpec{QueryID: "id_10", Project: project, SarifDir: d.sarif, ReposDir: d.repos, OutputDir: d.out}
}

func TestJobSpec_Paths(t *testing.T) {
	spec := JobSpec{QueryID: "id_10", Project: "facebook/react", SarifDir: "/s", ReposDir: "/r", OutputDir: "/o"}

	assert.Equal(t, filepath.Join("/s", "id_10", "facebook-react.sarif"), spec.SarifPath())
	assert.Equal(t, filepath.Join("/r", "facebook-react"), spec.RepositoryPath())
	assert.Equal(t, filepath.Join("/o", "id_10", "facebook-react_code.json"), spec.OutputPath())
}

func TestExtractProject_Success(t *testing.T) {
	d := newJobDirs(t)
	spec := d.spec("facebook/react")

	mbtest.WriteFile(t, filepath.Join(spec.RepositoryPath(), "src", "index.js"), "a\nb\nc\n")
	mbtest.WriteSARIF(t, spec.SarifPath(),
		mbtest.SARIFResult{URI: "src/index.js", StartLine: 2, Message: "m"},
		mbtest.SARIFResult{URI: "src/index.js", StartLine: 1, EndLine: 3, Message: "n"},
	)

	res := ExtractProject(context.Background(), spec, nil)

	success, ok := res.(Success)
	require.True(t, ok, "got %#v", res)
	assert.Equal(t, StatusSuccess, res.Status())
	assert.Equal(t, "facebook/react", success.Project)
	assert.Equal(t, 2, success.Count)
	assert.Equal(t, spec.OutputPath(), success.OutputPath)

	data, err := os.ReadFile(spec.OutputPath())
	require.NoError(t, err)

	var written Extraction
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, 2, written.Metadata.TotalResults)
	require.Len(t, written.Results, 2)
	assert.Equal(t, "b", written.Results[0].CodeSnippet)
	assert.Equal(t, "a\nb\nc", written.Results[1].CodeSnippet)
}

func TestExtractProject_Skipped(t *testing.T) {
	d := newJobDirs(t)

	t.Run("missing sarif", func(t *testing.T) {
		spec := d.spec("owner/no-sarif")
		require.NoError(t, os.MkdirAll(spec.RepositoryPath(), 0o755))

		res := ExtractProject(context.Background(), spec, nil)
		skipped, ok := res.(Skipped)
		require.True(t, ok, "got %#v", res)
		assert.Equal(t, "SARIF file not found: "+spec.SarifPath(), skipped.Reason)
		assert.NoFileExists(t, spec.OutputPath())
	})

	t.Run("missing repository", func(t *testing.T) {
		spec := d.spec("owner/no-repo")
		mbtest.WriteSARIF(t, spec.SarifPath())

		res := ExtractProject(context.Background(), spec, nil)
		skipped, ok := res.(Skipped)
		require.True(t, ok, "got %#v", res)
		assert.Equal(t, "Repository not found: "+spec.RepositoryPath(), skipped.Reason)
	})
}

func TestExtractProject_Failed(t *testing.T) {
	d := newJobDirs(t)

	t.Run("malformed sarif", func(t *testing.T) {
		spec := d.spec("owner/broken")
		require.NoError(t, os.MkdirAll(spec.RepositoryPath(), 0o755))
		mbtest.WriteFile(t, spec.SarifPath(), "{")

		res := ExtractProject(context.Background(), spec, nil)
		failed, ok := res.(Failed)
		require.True(t, ok, "got %#v", res)
		assert.Equal(t, StatusError, res.Status())
		assert.NotEmpty(t, failed.Message)
	})

	t.Run("unwritable output", func(t *testing.T) {
		spec := d.spec("owner/blocked")
		require.NoError(t, os.MkdirAll(spec.RepositoryPath(), 0o755))
		mbtest.WriteSARIF(t, spec.SarifPath())
		// A regular file where the query output directory should be.
		mbtest.WriteFile(t, filepath.Join(d.out, "id_10"), "")

		res := ExtractProject(context.Background(), spec, nil)
		_, ok := res.(Failed)
		require.True(t, ok, "got %#v", res)
		require.NoError(t, os.Remove(filepath.Join(d.out, "id_10")))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := ExtractProject(ctx, d.spec("owner/late"), nil)
		failed, ok := res.(Failed)
		require.True(t, ok, "got %#v", res)
		assert.True(t, strings.Contains(failed.Message, "canceled"))
	})
}

func TestReport(t *testing.T) {
	tests := []struct {
		name   string
		result JobResult
		want   string
	}{
		{
			name:   "success",
			result: Success{Project: "a/b", OutputPath: "/o/q/a-b_code.json", Count: 4},
			want:   `{"status":"success","project":"a/b","output_path":"/o/q/a-b_code.json","result_count":4,"error":null}`,
		},
		{
			name:   "skipped",
			result: Skipped{Project: "a/b", Reason: "Repository not found: /r/a-b"},
			want:   `{"status":"skipped","project":"a/b","output_path":null,"result_count":null,"error":"Repository not found: /r/a-b"}`,
		},
		{
			name:   "error",
			result: Failed{Project: "a/b", Message: "boom"},
			want:   `{"status":"error","project":"a/b","output_path":null,"result_count":null,"error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Report(tt.result))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
