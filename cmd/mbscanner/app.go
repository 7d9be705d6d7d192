// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/mbscanner/internal/bootstrap"
	"github.com/kraklabs/mbscanner/internal/config"
	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/output"
	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

// app carries everything a command needs: the loaded configuration, the
// run-scoped logger and the output settings. Nothing here is global.
type app struct {
	globals  GlobalFlags
	cfg      *config.Config
	logger   *slog.Logger
	progress ProgressConfig
	runID    string

	closeLog func() error
	metrics  *http.Server
}

// newApp loads the configuration (unless load is false, in which case the
// defaults are used), builds the logger and starts the metrics endpoint.
func newApp(ctx context.Context, g GlobalFlags, load bool) (*app, error) {
	cfg := config.Default()
	if load {
		path := g.ConfigPath
		if path == "" {
			path = config.DefaultPath
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, errors.NewConfigError(
				"Cannot load configuration",
				err.Error(),
				"Check the config file and MB_SCANNER_* environment variables",
				err,
			)
		}
		cfg = loaded
	}

	logger, closeLog, err := config.NewLogger(cfg, g.Verbose)
	if err != nil {
		return nil, errors.NewConfigError("Cannot set up logging", err.Error(), "Check logging.level and logging.file", err)
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	slog.SetDefault(logger)

	a := &app{
		globals:  g,
		cfg:      cfg,
		logger:   logger,
		progress: NewProgressConfig(g),
		runID:    runID,
		closeLog: closeLog,
	}
	if g.MetricsAddr != "" {
		a.startMetrics(ctx, g.MetricsAddr)
	}
	return a, nil
}

// startMetrics serves /metrics until the app is closed.
func (a *app) startMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Warn("metrics.http.error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = a.metrics.Close()
	}()
}

// Close stops the metrics server and flushes the log file.
func (a *app) Close() {
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(shutdownCtx)
		cancel()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// openStore opens the metadata database. create lets commands that populate
// the database (search) start from nothing.
func (a *app) openStore(ctx context.Context, create bool) (*storage.Store, error) {
	store, err := bootstrap.OpenStore(ctx, a.cfg, create, a.logger)
	if err != nil {
		return nil, userError("Cannot open metadata database", err)
	}
	return store, nil
}

func (a *app) githubClient(ctx context.Context) (*github.Client, error) {
	client, err := github.NewClient(ctx, a.cfg.GitHubToken, github.WithLogger(a.logger))
	if err != nil {
		return nil, userError("Cannot create GitHub client", err)
	}
	return client, nil
}

func (a *app) cloner() *repo.Cloner {
	return repo.NewCloner(a.cfg.GitHubToken, a.logger)
}

func (a *app) codeqlCLI() *codeql.CLI {
	return codeql.NewCLI(a.cfg.CodeQL.CLIPath, a.logger)
}

func (a *app) codeqlManager() *codeql.Manager {
	return codeql.NewManager(a.codeqlCLI(), a.cfg.DatabaseDir(), a.logger)
}

// emit prints v as JSON on stdout when --json is set and reports whether it
// did, so callers can skip their human-readable rendering.
func (a *app) emit(v any) (bool, error) {
	if !a.globals.JSON {
		return false, nil
	}
	if err := output.JSON(v); err != nil {
		return true, errors.NewInternalError("Cannot encode JSON output", err.Error(), "", err)
	}
	return true, nil
}

// parseFlags parses a command's flags. Help requests surface as
// flag.ErrHelp so the caller can return nil.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return err
		}
		return errors.NewInputError(
			fmt.Sprintf("Invalid arguments for '%s'", fs.Name()),
			err.Error(),
			fmt.Sprintf("Run 'mbscanner %s --help'", fs.Name()),
		)
	}
	return nil
}

// helpOrErr turns flag.ErrHelp into a clean exit.
func helpOrErr(err error) error {
	if stderrors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// newFlagSet creates a command flag set whose usage text is header
// followed by the flag defaults.
func newFlagSet(name, header string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, header)
		fmt.Fprintln(os.Stderr, "\nOptions:")
		fs.PrintDefaults()
	}
	return fs
}

// checkInterrupted converts a cancelled context into errors.ErrInterrupted
// after a batch returned partial results.
func checkInterrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.ErrInterrupted
	}
	return nil
}

// dispatch runs the subcommand named by args[0] of a command group.
func dispatch(ctx context.Context, a *app, group string, args []string, subs map[string]handler) error {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintf(os.Stderr, "Usage: mbscanner %s <%s> [options]\n", group, strings.Join(names, "|"))
		if len(args) == 0 {
			return errors.NewInputError(
				fmt.Sprintf("Missing %s subcommand", group),
				"",
				fmt.Sprintf("Use one of: %s", strings.Join(names, ", ")),
			)
		}
		return nil
	}

	sub, ok := subs[args[0]]
	if !ok {
		return errors.NewInputError(
			fmt.Sprintf("Unknown %s subcommand: %s", group, args[0]),
			"",
			fmt.Sprintf("Use one of: %s", strings.Join(names, ", ")),
		)
	}
	return sub(ctx, a, args[1:])
}
