// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/mbscanner/internal/output"
	"github.com/kraklabs/mbscanner/pkg/layout"
)

// Job status labels as they appear in reports.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// JobSpec identifies one per-project extraction. The concrete SARIF,
// repository and output paths are derived from it with the layout package.
type JobSpec struct {
	QueryID   string
	Project   string
	SarifDir  string
	ReposDir  string
	OutputDir string
}

// SarifPath returns <SarifDir>/<query>/<safe>.sarif.
func (s JobSpec) SarifPath() string { return layout.SarifPath(s.SarifDir, s.QueryID, s.Project) }

// RepositoryPath returns <ReposDir>/<safe>.
func (s JobSpec) RepositoryPath() string { return layout.RepositoryPath(s.ReposDir, s.Project) }

// OutputPath returns <OutputDir>/<query>/<safe>_code.json.
func (s JobSpec) OutputPath() string { return layout.CodePath(s.OutputDir, s.QueryID, s.Project) }

// JobResult is the outcome of one extraction job. It is one of Success,
// Skipped or Failed.
type JobResult interface {
	// Status returns "success", "skipped" or "error".
	Status() string
	// ProjectName returns the project the job ran for.
	ProjectName() string

	isJobResult()
}

// Success reports a written extraction artifact.
type Success struct {
	Project    string
	OutputPath string
	Count      int
}

// Skipped reports a project whose upstream outputs are not there yet.
type Skipped struct {
	Project string
	Reason  string
}

// Failed reports a job that hit an unexpected error.
type Failed struct {
	Project string
	Message string
}

func (Success) Status() string { return StatusSuccess }
func (Skipped) Status() string { return StatusSkipped }
func (Failed) Status() string  { return StatusError }

func (r Success) ProjectName() string { return r.Project }
func (r Skipped) ProjectName() string { return r.Project }
func (r Failed) ProjectName() string  { return r.Project }

func (Success) isJobResult() {}
func (Skipped) isJobResult() {}
func (Failed) isJobResult()  {}

// JobReport is the flat JSON form of a JobResult.
type JobReport struct {
	Status      string  `json:"status"`
	Project     string  `json:"project"`
	OutputPath  *string `json:"output_path"`
	ResultCount *int    `json:"result_count"`
	Error       *string `json:"error"`
}

// Report flattens a JobResult for JSON output.
func Report(r JobResult) JobReport {
	rep := JobReport{Status: r.Status(), Project: r.ProjectName()}
	switch v := r.(type) {
	case Success:
		rep.OutputPath = &v.OutputPath
		rep.ResultCount = &v.Count
	case Skipped:
		rep.Error = &v.Reason
	case Failed:
		rep.Error = &v.Message
	}
	return rep
}

// ExtractProject runs the extraction for one project and writes its
// artifact. Missing upstream outputs yield Skipped; every other problem,
// including a panic, yields Failed. It never returns an error so that one
// project cannot abort a batch.
func ExtractProject(ctx context.Context, spec JobSpec, logger *slog.Logger) (res JobResult) {
	if logger == nil {
		logger = slog.Default()
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("sarif.job.panic", "project", spec.Project, "panic", p)
			res = Failed{Project: spec.Project, Message: fmt.Sprintf("panic: %v", p)}
		}
		metrics.record(res)
	}()

	if err := ctx.Err(); err != nil {
		return Failed{Project: spec.Project, Message: err.Error()}
	}

	sarifPath := spec.SarifPath()
	repoPath := spec.RepositoryPath()
	outPath := spec.OutputPath()

	if ok, err := exists(sarifPath); err != nil {
		return Failed{Project: spec.Project, Message: err.Error()}
	} else if !ok {
		logger.Warn("sarif.job.skip", "project", spec.Project, "missing", sarifPath)
		return Skipped{Project: spec.Project, Reason: "SARIF file not found: " + sarifPath}
	}

	if ok, err := exists(repoPath); err != nil {
		return Failed{Project: spec.Project, Message: err.Error()}
	} else if !ok {
		logger.Warn("sarif.job.skip", "project", spec.Project, "missing", repoPath)
		return Skipped{Project: spec.Project, Reason: "Repository not found: " + repoPath}
	}

	extraction, err := NewExtractor(sarifPath, repoPath, logger).ExtractAll()
	if err != nil {
		logger.Error("sarif.job.error", "project", spec.Project, "err", err)
		return Failed{Project: spec.Project, Message: err.Error()}
	}

	if err := output.WriteFile(outPath, extraction); err != nil {
		logger.Error("sarif.job.error", "project", spec.Project, "err", err)
		return Failed{Project: spec.Project, Message: err.Error()}
	}

	logger.Info("sarif.job.success",
		"project", spec.Project,
		"results", extraction.Metadata.TotalResults,
		"output", outPath,
	)
	return Success{Project: spec.Project, OutputPath: outPath, Count: extraction.Metadata.TotalResults}
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
