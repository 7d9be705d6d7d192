// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the mbscanner CLI, which drives the research
// pipeline from GitHub search to plots.
//
// Usage:
//
//	mbscanner init                          Create config and workspace
//	mbscanner search [-l -s -d -n -u]       Search GitHub and store projects
//	mbscanner github clone                  Clone every stored project
//	mbscanner codeql create-db-batch        Build CodeQL databases
//	mbscanner codeql query-batch -q x.ql    Run queries into SARIF files
//	mbscanner codeql summary <query-id>     Aggregate result counts
//	mbscanner extract-code batch <query-id> Extract flagged code snippets
//	mbscanner count-lines                   Record JavaScript line counts
//	mbscanner visualize scatter|boxplot     Plot the results
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds the flags accepted before the command name.
type GlobalFlags struct {
	ConfigPath  string
	JSON        bool
	Quiet       bool
	NoColor     bool
	Verbose     int
	MetricsAddr string
}

// handler runs one command. It returns nil, a *errors.UserError, or any
// other error, which is reported as internal.
type handler func(ctx context.Context, a *app, args []string) error

type command struct {
	run     handler
	summary string
	// bare commands run before a configuration file exists.
	bare bool
}

var commands = map[string]command{
	"init":         {run: runInit, summary: "Create .mbscanner/config.yaml and the workspace", bare: true},
	"search":       {run: runSearch, summary: "Search GitHub and store matching projects"},
	"github":       {run: runGitHub, summary: "GitHub commands (rate-limit, clone)"},
	"codeql":       {run: runCodeQL, summary: "CodeQL commands (version, create-db, query, summary, ...)"},
	"extract-code": {run: runExtractCode, summary: "Extract code snippets for SARIF findings (single, batch)"},
	"count-lines":  {run: runCountLines, summary: "Count JavaScript lines of cloned projects"},
	"migrate":      {run: runMigrate, summary: "Apply metadata database migrations"},
	"visualize":    {run: runVisualize, summary: "Plot query results (scatter, boxplot)"},
	"completion":   {run: runCompletion, summary: "Generate shell completion script (bash|zsh|fish)", bare: true},
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	code := run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

// run parses the global flags, dispatches to a command and returns the
// process exit code.
func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("mbscanner", flag.ContinueOnError)
	fs.SetInterspersed(false)

	var g GlobalFlags
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.StringVar(&g.ConfigPath, "config", "", "Path to config YAML (default: .mbscanner/config.yaml when present)")
	fs.BoolVar(&g.JSON, "json", false, "Print machine-readable JSON on stdout")
	fs.BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress progress bars")
	fs.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&g.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	fs.StringVar(&g.MetricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return errors.ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return errors.ExitFailure
	}

	if *showVersion {
		fmt.Printf("mbscanner version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		return errors.ExitSuccess
	}

	if g.JSON {
		g.Quiet = true
		ui.Output = os.Stderr
	} else {
		ui.Output = os.Stdout
	}
	ui.InitColors(g.NoColor)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.ExitFailure
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return errors.Report(errors.NewInputError(
			fmt.Sprintf("Unknown command: %s", rest[0]),
			"",
			"Run 'mbscanner --help' for the list of commands",
		), g.JSON, g.NoColor)
	}

	a, err := newApp(ctx, g, !cmd.bare)
	if err != nil {
		return errors.Report(err, g.JSON, g.NoColor)
	}
	defer a.Close()

	err = cmd.run(ctx, a, rest[1:])
	if err != nil {
		a.logger.Debug("command.error", "command", rest[0], "err", err)
	}
	return errors.Report(err, g.JSON, g.NoColor)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `mbscanner - mining GitHub projects with CodeQL

Usage:
  mbscanner [global options] <command> [options]

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, `
Global Options:
%s
Getting Started:
  1. Initialize the workspace:     mbscanner init
  2. Find projects:                mbscanner search -l JavaScript -s 500 -n 100
  3. Build databases:              mbscanner codeql create-db-batch
  4. Run a query:                  mbscanner codeql query-batch -q queries/id_10.ql
  5. Summarize:                    mbscanner codeql summary id_10 -t 1

Environment Variables:
  GITHUB_TOKEN                     GitHub token (or MB_SCANNER_GITHUB_TOKEN)
  MB_SCANNER_*                     Override any config value, e.g. MB_SCANNER_LOG_LEVEL

For detailed command help: mbscanner <command> --help
`, fs.FlagUsages())
}
