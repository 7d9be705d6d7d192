// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/sarif"
	"github.com/kraklabs/mbscanner/pkg/summary"
)

// DefaultExtractDir is where extracted code artifacts go by default.
const DefaultExtractDir = "outputs/extracted_code"

// runExtractCode dispatches the 'extract-code' subcommands.
func runExtractCode(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "extract-code", args, map[string]handler{
		"single": runExtractSingle,
		"batch":  runExtractBatch,
	})
}

type extractDirs struct {
	sarifDir, reposDir, outputDir string
}

func registerExtractDirs(fs *flag.FlagSet, a *app) *extractDirs {
	d := &extractDirs{}
	fs.StringVar(&d.sarifDir, "sarif-dir", a.cfg.QueryOutputDir(), "Directory holding <query-id>/<owner-repo>.sarif")
	fs.StringVar(&d.reposDir, "repos-dir", a.cfg.RepositoriesDir(), "Directory holding cloned repositories")
	fs.StringVar(&d.outputDir, "output-dir", DefaultExtractDir, "Directory for <query-id>/<owner-repo>_code.json")
	return d
}

func (d *extractDirs) spec(queryID, project string) sarif.JobSpec {
	return sarif.JobSpec{
		QueryID:   queryID,
		Project:   project,
		SarifDir:  d.sarifDir,
		ReposDir:  d.reposDir,
		OutputDir: d.outputDir,
	}
}

// runExtractSingle extracts the code snippets of one project's findings.
//
//	mbscanner extract-code single id_10 facebook/react
func runExtractSingle(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("single", "Usage: mbscanner extract-code single <query-id> <owner/repo> [options]\n\nExtracts the source snippet of every finding of one project.\n")
	dirs := registerExtractDirs(fs, a)
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if fs.NArg() != 2 {
		return errors.NewInputError(
			"Expected a query ID and a project name",
			fmt.Sprintf("got %d arguments", fs.NArg()),
			"Example: mbscanner extract-code single id_10 facebook/react",
		)
	}

	res := sarif.ExtractProject(ctx, dirs.spec(fs.Arg(0), fs.Arg(1)), a.logger)
	if done, err := a.emit(sarif.Report(res)); done {
		if err == nil {
			return extractFailure(res)
		}
		return err
	}

	switch v := res.(type) {
	case sarif.Success:
		ui.Successf("Extracted %d findings: %s", v.Count, v.OutputPath)
	case sarif.Skipped:
		ui.Warningf("Skipped %s: %s", v.Project, v.Reason)
	}
	return extractFailure(res)
}

func extractFailure(res sarif.JobResult) error {
	f, ok := res.(sarif.Failed)
	if !ok {
		return nil
	}
	return errors.NewToolError(fmt.Sprintf("Extraction failed for %s", f.Project), f.Message, "Rerun with -v for details", nil)
}

// runExtractBatch extracts snippets for many projects on a worker pool.
//
//	mbscanner extract-code batch id_10
//	mbscanner extract-code batch id_10 --summary outputs/queries/id_10/limit_10_summary.json -j 8
//	mbscanner extract-code batch id_10 --projects facebook/react,vuejs/core
func runExtractBatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("batch", "Usage: mbscanner extract-code batch <query-id> [options]\n\nExtracts snippets for every project of a query in parallel.\n")
	dirs := registerExtractDirs(fs, a)
	summaryPath := fs.String("summary", "", "Take the projects from this summary JSON")
	projects := fs.StringSlice("projects", nil, "Comma separated list of projects")
	workers := fs.IntP("workers", "j", 0, "Parallel workers (0 = number of CPUs)")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if fs.NArg() != 1 {
		return errors.NewInputError("Expected exactly one query ID", fmt.Sprintf("got %d arguments", fs.NArg()), "Example: mbscanner extract-code batch id_10")
	}
	if *summaryPath != "" && len(*projects) > 0 {
		return errors.NewInputError("--summary and --projects are mutually exclusive", "", "")
	}
	queryID := fs.Arg(0)

	names, err := batchProjects(dirs.sarifDir, queryID, *summaryPath, *projects)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.Info("No projects to extract")
		return nil
	}

	specs := make([]sarif.JobSpec, len(names))
	for i, name := range names {
		specs[i] = dirs.spec(queryID, name)
	}

	if !a.globals.JSON {
		ui.KeyValue("Query:", queryID)
		ui.KeyValue("Projects:", len(specs))
		ui.KeyValue("Workers:", sarif.NewPool(*workers, a.logger).EffectiveWorkers(len(specs)))
		ui.KeyValue("Output:", ui.DimText(filepath.Join(dirs.outputDir, queryID)))
	}

	bar := NewProgressBar(a.progress, int64(len(specs)), "Extracting")
	results := sarif.RunPool(ctx, specs, *workers, extractProgress(bar), a.logger)
	finishBar(bar)
	tally := sarif.Summarize(results)

	if a.globals.JSON {
		reports := make([]sarif.JobReport, len(results))
		for i, r := range results {
			reports[i] = sarif.Report(r)
		}
		if _, err := a.emit(struct {
			QueryID string            `json:"query_id"`
			Summary sarif.Tally       `json:"summary"`
			Results []sarif.JobReport `json:"results"`
		}{queryID, tally, reports}); err != nil {
			return err
		}
		return checkInterrupted(ctx)
	}

	ui.Stats("Extraction summary:", []ui.Stat{
		{Label: "total", Value: tally.Total},
		{Label: "success", Value: tally.Success},
		{Label: "skipped", Value: tally.Skipped},
		{Label: "error", Value: tally.Error},
		{Label: "findings", Value: tally.Results},
	})
	printJobProblems(results)
	return checkInterrupted(ctx)
}

// batchProjects resolves the project list of a batch: an explicit list, the
// projects of a summary file, or every SARIF file of the query.
func batchProjects(sarifDir, queryID, summaryPath string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		names := make([]string, 0, len(explicit))
		for _, p := range explicit {
			if p = strings.TrimSpace(p); p != "" {
				names = append(names, p)
			}
		}
		return names, nil
	}

	if summaryPath != "" {
		s, err := summary.Load(summaryPath)
		if err != nil {
			return nil, userError("Cannot read summary", err)
		}
		names := make([]string, 0, len(s.Results))
		for name := range s.Results {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	dir := layout.QueryDir(sarifDir, queryID)
	files, err := filepath.Glob(filepath.Join(dir, "*.sarif"))
	if err != nil {
		return nil, errors.NewInternalError("Cannot list SARIF files", err.Error(), "", err)
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return nil, errors.NewNotFoundError(
				fmt.Sprintf("Query directory does not exist: %s", dir),
				"",
				"Run 'mbscanner codeql query-batch' first or pass --sarif-dir",
			)
		}
	}
	sort.Strings(files)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = layout.ProjectFromSarifFile(f)
	}
	return names, nil
}

// printJobProblems lists skipped and failed extraction jobs.
func printJobProblems(results []sarif.JobResult) {
	var lines []string
	for _, r := range results {
		switch v := r.(type) {
		case sarif.Skipped:
			lines = append(lines, fmt.Sprintf("  %s %s: %s", ui.Yellow.Sprint("-"), v.Project, ui.DimText(v.Reason)))
		case sarif.Failed:
			lines = append(lines, fmt.Sprintf("  %s %s: %s", ui.Red.Sprint("✗"), v.Project, ui.DimText(v.Message)))
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(ui.Output)
	ui.SubHeader("Not extracted:")
	for _, l := range lines {
		fmt.Fprintln(ui.Output, l)
	}
}
