// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/layout"
	"github.com/kraklabs/mbscanner/pkg/storage"
	"github.com/kraklabs/mbscanner/pkg/summary"
	"github.com/kraklabs/mbscanner/pkg/workflow"
)

// runCodeQL dispatches the 'codeql' subcommands.
func runCodeQL(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "codeql", args, map[string]handler{
		"version":         runCodeQLVersion,
		"create-db":       runCreateDB,
		"create-db-batch": runCreateDBBatch,
		"query":           runQuery,
		"query-batch":     runQueryBatch,
		"summary":         runSummary,
	})
}

func runCodeQLVersion(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("version", "Usage: mbscanner codeql version\n\nPrints the CodeQL CLI version.\n")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	v, err := a.codeqlCLI().Version(ctx)
	if err != nil {
		return userError("Cannot run the CodeQL CLI", err)
	}
	if done, err := a.emit(map[string]string{"cli_path": a.cfg.CodeQL.CLIPath, "version": v}); done {
		return err
	}
	fmt.Fprintln(ui.Output, v)
	return nil
}

// resourceFlags registers --threads and --ram.
func resourceFlags(fs *flag.FlagSet) *codeql.Resources {
	var res codeql.Resources
	fs.IntVar(&res.Threads, "threads", 0, "CodeQL worker threads (0 = CodeQL default)")
	fs.IntVar(&res.RAM, "ram", 0, "CodeQL memory budget in MB (0 = CodeQL default)")
	return &res
}

func (a *app) databaseCreation() *workflow.DatabaseCreation {
	return &workflow.DatabaseCreation{
		Cloner:   a.cloner(),
		Manager:  a.codeqlManager(),
		ReposDir: a.cfg.RepositoriesDir(),
		Logger:   a.logger,
	}
}

// runCreateDB builds the CodeQL database of one stored project, cloning it
// first when needed.
//
//	mbscanner codeql create-db facebook/react
//	mbscanner codeql create-db facebook/react --language=javascript --force
func runCreateDB(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-db", "Usage: mbscanner codeql create-db <owner/repo> [options]\n\nCreates the CodeQL database for one project.\n")
	language := fs.StringP("language", "l", a.cfg.CodeQL.DefaultLanguage, "Analysis language")
	force := fs.BoolP("force", "f", false, "Overwrite an existing database")
	res := resourceFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	name, err := projectArg(fs)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	project, err := store.GetProjectByFullName(ctx, name)
	if err != nil {
		return userError(fmt.Sprintf("Project not found: %s", name), err)
	}

	if !a.globals.JSON {
		ui.Infof("Creating CodeQL database for %s (%s)", name, *language)
	}
	spinner := NewSpinner(a.progress, "codeql database create")
	out := a.databaseCreation().CreateForProject(ctx, project.FullName, project.URL, workflow.DatabaseOptions{
		Language:     *language,
		Resources:    *res,
		SkipExisting: !*force,
		Force:        *force,
	})
	finishBar(spinner)

	if done, err := a.emit(out); done {
		if err == nil && out.Status == workflow.StatusError {
			return outcomeError("Database creation failed", name, out.Error)
		}
		return err
	}

	switch out.Status {
	case workflow.StatusCreated:
		ui.Successf("Created database: %s", out.DBPath)
	case workflow.StatusSkipped:
		ui.Warningf("Database already exists: %s", out.DBPath)
		fmt.Fprintln(ui.Output, "  Use --force to overwrite")
	default:
		if err := checkInterrupted(ctx); err != nil {
			return err
		}
		return outcomeError("Database creation failed", name, out.Error)
	}
	return nil
}

// runCreateDBBatch builds databases for every stored project.
//
//	mbscanner codeql create-db-batch --max-projects=10
//	mbscanner codeql create-db-batch --force
//	mbscanner codeql create-db-batch --topic=react --min-stars=1000
func runCreateDBBatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-db-batch", "Usage: mbscanner codeql create-db-batch [options]\n\nCreates CodeQL databases for every project in the metadata database.\n")
	language := fs.StringP("language", "l", a.cfg.CodeQL.DefaultLanguage, "Analysis language")
	maxProjects := fs.Int("max-projects", 0, "Maximum projects to process (0 = all)")
	skipExisting := fs.Bool("skip-existing", true, "Skip projects that already have a database")
	force := fs.BoolP("force", "f", false, "Overwrite existing databases")
	var filter storage.ProjectFilter
	fs.StringVar(&filter.Topic, "topic", "", "Only projects tagged with this topic")
	fs.StringVar(&filter.Language, "project-language", "", "Only projects whose GitHub primary language matches exactly")
	fs.IntVar(&filter.MinStars, "min-stars", 0, "Only projects with at least this many stars")
	res := resourceFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.FilterProjectURLs(ctx, filter)
	if err != nil {
		return userError("Cannot list projects", err)
	}
	if len(projects) == 0 {
		if filter.IsZero() {
			ui.Info("No projects found in database")
		} else {
			ui.Info("No projects match the filter")
		}
		return nil
	}

	if !a.globals.JSON {
		ui.KeyValue("Language:", *language)
		ui.KeyValue("Projects:", len(projects))
		ui.KeyValue("Max:", unlimited(*maxProjects))
		ui.KeyValue("Skip:", *skipExisting && !*force)
	}

	bar := NewProgressBar(a.progress, int64(capped(len(projects), *maxProjects)), "Creating databases")
	wf := a.databaseCreation()
	wf.Progress = batchProgress(bar)
	stats := wf.CreateBatch(ctx, projects, workflow.DatabaseOptions{
		Language:     *language,
		Resources:    *res,
		SkipExisting: *skipExisting,
		Force:        *force,
		MaxProjects:  *maxProjects,
	})
	finishBar(bar)

	if done, err := a.emit(stats); done {
		return err
	}
	ui.Stats("Batch creation summary:", []ui.Stat{
		{Label: "total", Value: stats.Total},
		{Label: "created", Value: stats.Created},
		{Label: "skipped", Value: stats.Skipped},
		{Label: "failed", Value: stats.Failed},
	})
	printFailures(stats.Failures)
	return checkInterrupted(ctx)
}

type queryFlags struct {
	files         []string
	format        string
	res           *codeql.Resources
	sarifCategory string
	noSnippets    bool
}

func registerQueryFlags(fs *flag.FlagSet, a *app) *queryFlags {
	q := &queryFlags{}
	fs.StringArrayVarP(&q.files, "query-files", "q", nil, "Query file (repeatable)")
	fs.StringVar(&q.format, "format", a.cfg.CodeQL.DefaultOutputFormat, "Output format")
	fs.StringVar(&q.sarifCategory, "sarif-category", "", "SARIF run category")
	fs.BoolVar(&q.noSnippets, "no-snippets", false, "Do not embed code snippets in SARIF output")
	q.res = resourceFlags(fs)
	return q
}

func (q *queryFlags) options(maxProjects int) (workflow.QueryOptions, error) {
	if len(q.files) == 0 {
		return workflow.QueryOptions{}, errors.NewInputError("No query files given", "", "Pass at least one -q <file.ql>")
	}
	return workflow.QueryOptions{
		Format:        q.format,
		Resources:     *q.res,
		SarifCategory: q.sarifCategory,
		AddSnippets:   !q.noSnippets,
		MaxProjects:   maxProjects,
	}, nil
}

// runQuery runs query files against one project's database. Each query
// writes outputs/queries/<query-id>/<owner-repo>.sarif.
//
//	mbscanner codeql query facebook/react -q codeql/queries/id_10.ql
//	mbscanner codeql query facebook/react -q q1.ql -q q2.ql
func runQuery(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("query", "Usage: mbscanner codeql query <owner/repo> -q <file.ql>... [options]\n\nRuns CodeQL queries against one project's database.\n")
	qf := registerQueryFlags(fs, a)
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	name, err := projectArg(fs)
	if err != nil {
		return err
	}
	opts, err := qf.options(0)
	if err != nil {
		return err
	}

	outDir := a.cfg.QueryOutputDir()
	if !a.globals.JSON {
		ui.Infof("Executing %d queries for %s", len(qf.files), name)
		ui.KeyValue("Output:", ui.DimText(outDir))
	}

	spinner := NewSpinner(a.progress, "codeql database analyze")
	wf := &workflow.QueryExecution{Manager: a.codeqlManager(), Logger: a.logger}
	out := wf.ExecuteForProject(ctx, name, qf.files, outDir, opts)
	finishBar(spinner)

	if done, err := a.emit(out); done {
		if err == nil && out.Status == workflow.StatusError {
			return outcomeError("Query execution failed", name, out.Error)
		}
		return err
	}

	if out.Status != workflow.StatusSuccess {
		if err := checkInterrupted(ctx); err != nil {
			return err
		}
		return outcomeError("Query execution failed", name, out.Error)
	}
	ui.Successf("Executed %d queries", len(out.Results))
	for _, r := range out.Results {
		fmt.Fprintf(ui.Output, "  - %s: %s results\n", r.QueryFile, ui.CountText(r.ResultCount))
		fmt.Fprintf(ui.Output, "    Output: %s\n", ui.DimText(r.OutputPath))
	}
	return nil
}

// runQueryBatch runs query files against every stored project.
//
//	mbscanner codeql query-batch -q codeql/queries/id_10.ql --max-projects 10
func runQueryBatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("query-batch", "Usage: mbscanner codeql query-batch -q <file.ql>... [options]\n\nRuns CodeQL queries against every project in the metadata database.\n")
	qf := registerQueryFlags(fs, a)
	maxProjects := fs.Int("max-projects", 0, "Maximum projects to process (0 = all)")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	opts, err := qf.options(*maxProjects)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.ListProjects(ctx)
	if err != nil {
		return userError("Cannot list projects", err)
	}
	if len(all) == 0 {
		ui.Info("No projects found in database")
		return nil
	}
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.FullName
	}

	outDir := a.cfg.QueryOutputDir()
	if !a.globals.JSON {
		ui.KeyValue("Queries:", strings.Join(qf.files, ", "))
		ui.KeyValue("Projects:", len(names))
		ui.KeyValue("Max:", unlimited(*maxProjects))
		ui.KeyValue("Output:", ui.DimText(outDir))
	}

	bar := NewProgressBar(a.progress, int64(capped(len(names), *maxProjects)), "Running queries")
	wf := &workflow.QueryExecution{Manager: a.codeqlManager(), Logger: a.logger, Progress: batchProgress(bar)}
	stats := wf.ExecuteBatch(ctx, names, qf.files, outDir, opts)
	finishBar(bar)

	if done, err := a.emit(stats); done {
		return err
	}
	ui.Stats("Batch execution summary:", []ui.Stat{
		{Label: "total", Value: stats.Total},
		{Label: "success", Value: stats.Success},
		{Label: "failed", Value: stats.Failed},
	})
	printFailures(stats.Failures)
	return checkInterrupted(ctx)
}

// runSummary aggregates the SARIF files of one query into summary.json or
// limit_<T>_summary.json.
//
//	mbscanner codeql summary id_10
//	mbscanner codeql summary id_10 -t 10 --output-dir custom/output
func runSummary(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("summary", "Usage: mbscanner codeql summary <query-id> [options]\n\nCounts results per project for one query and writes a summary JSON.\n")
	threshold := fs.IntP("threshold", "t", 0, "Keep only projects with at least this many results")
	outputDir := fs.String("output-dir", a.cfg.QueryOutputDir(), "Query output base directory")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if fs.NArg() != 1 {
		return errors.NewInputError("Expected exactly one query ID", fmt.Sprintf("got %d arguments", fs.NArg()), "Example: mbscanner codeql summary id_10")
	}
	queryID := fs.Arg(0)

	var limit *int
	if fs.Changed("threshold") {
		limit = threshold
	}

	queryDir := layout.QueryDir(*outputDir, queryID)
	if st, err := os.Stat(queryDir); err != nil || !st.IsDir() {
		return errors.NewNotFoundError(
			fmt.Sprintf("Query directory does not exist: %s", queryDir),
			"",
			fmt.Sprintf("Run 'mbscanner codeql query-batch -q <%s.ql>' first", queryID),
		)
	}

	results, err := summary.FromDirectory(queryDir, limit, a.logger)
	if err != nil {
		return userError("Cannot aggregate results", err)
	}
	s := summary.New(queryID, results, limit)
	path := layout.SummaryPath(*outputDir, queryID, limit)
	if err := s.Save(path); err != nil {
		return userError("Cannot save summary", err)
	}

	if done, err := a.emit(s); done {
		return err
	}

	ui.Successf("Generated summary: %s", path)
	ui.KeyValue("Projects:", s.TotalProjects)
	if len(results) > 0 {
		ui.SubHeader("Results:")
		for _, e := range s.Entries() {
			fmt.Fprintf(ui.Output, "  - %s: %s results\n", e.Project, ui.CountText(e.Count))
		}
	}
	return nil
}

// projectArg returns the single owner/repo positional argument.
func projectArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", errors.NewInputError(
			"Expected exactly one project name",
			fmt.Sprintf("got %d arguments", fs.NArg()),
			fmt.Sprintf("Example: mbscanner codeql %s facebook/react", fs.Name()),
		)
	}
	name := fs.Arg(0)
	if strings.Count(name, "/") != 1 || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return "", errors.NewInputError(
			fmt.Sprintf("Invalid project name: %s", name),
			"project names have the form owner/repo",
			"",
		)
	}
	return name, nil
}

// outcomeError reports a failed single-project outcome.
func outcomeError(msg, project, cause string) error {
	return errors.NewToolError(fmt.Sprintf("%s for %s", msg, project), cause, "Rerun with -v for the tool output", nil)
}

// capped returns n limited to limit when limit is positive.
func capped(n, limit int) int {
	if limit > 0 && limit < n {
		return limit
	}
	return n
}
