// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codeql drives the CodeQL command-line tool: building databases
// from source trees and running queries against them.
package codeql

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrCLINotFound is returned when the codeql binary cannot be executed.
	ErrCLINotFound = errors.New("CodeQL CLI not found")

	// ErrDatabaseExists is returned when a database path is already taken.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrDatabaseNotFound is returned when analyzing a database that was
	// never created.
	ErrDatabaseNotFound = errors.New("database does not exist")

	// ErrSourceNotFound is returned when the source root is missing.
	ErrSourceNotFound = errors.New("source root does not exist")

	// ErrTimeout is returned when a CodeQL invocation exceeds its timeout.
	ErrTimeout = errors.New("CodeQL command timed out")
)

const (
	// DefaultFormat is the result format passed to database analyze.
	DefaultFormat = "sarifv2.1.0"

	// DefaultTimeout bounds database create and database analyze.
	DefaultTimeout = time.Hour

	versionTimeout = 10 * time.Second
)

// ToolError reports a CodeQL invocation that exited non-zero.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	cmd := "codeql " + strings.Join(subcommand(e.Args), " ")
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed with exit code %d", cmd, e.ExitCode)
	}
	return fmt.Sprintf("%s failed with exit code %d: %s", cmd, e.ExitCode, msg)
}

// Resources caps what CodeQL may use. Zero leaves the choice to CodeQL.
type Resources struct {
	Threads int
	// RAM is in megabytes.
	RAM int
}

func (r Resources) args() []string {
	var args []string
	if r.Threads != 0 {
		args = append(args, fmt.Sprintf("--threads=%d", r.Threads))
	}
	if r.RAM != 0 {
		args = append(args, fmt.Sprintf("--ram=%d", r.RAM))
	}
	return args
}

// CLI runs codeql subcommands.
type CLI struct {
	// Path is the codeql binary. Defaults to "codeql" on $PATH.
	Path   string
	Logger *slog.Logger
}

// NewCLI creates a CLI for the binary at path.
func NewCLI(path string, logger *slog.Logger) *CLI {
	if path == "" {
		path = "codeql"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{Path: path, Logger: logger}
}

// Version returns the trimmed output of "codeql version".
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, versionTimeout, "version")
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(out)
	c.logger().Debug("codeql.version", "version", version)
	return version, nil
}

// CreateDatabase builds a database at dbPath from the sources in
// sourceRoot. dbPath must not exist; its parent is created. A zero timeout
// means DefaultTimeout.
func (c *CLI) CreateDatabase(ctx context.Context, dbPath, sourceRoot, language string, res Resources, timeout time.Duration) error {
	logger := c.logger()

	if _, err := os.Stat(dbPath); err == nil {
		return errors.Wrapf(ErrDatabaseExists, "database path %s", dbPath)
	}
	if _, err := os.Stat(sourceRoot); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrSourceNotFound, "source root %s", sourceRoot)
		}
		return errors.Wrapf(err, "stat source root %s", sourceRoot)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return errors.Wrapf(err, "create parent of %s", dbPath)
	}

	args := []string{
		"database", "create", dbPath,
		"--language=" + language,
		"--source-root=" + sourceRoot,
	}
	args = append(args, res.args()...)

	logger.Info("codeql.database.create.start", "db", dbPath, "language", language, "source", sourceRoot)
	out, err := c.run(ctx, orDefault(timeout), args...)
	if err != nil {
		return err
	}
	logger.Info("codeql.database.create.success", "db", dbPath)
	logger.Debug("codeql.database.create.output", "stdout", out)
	return nil
}

// AnalyzeRequest describes one "codeql database analyze" invocation.
type AnalyzeRequest struct {
	DatabasePath string
	OutputPath   string
	Queries      []string

	// Format defaults to DefaultFormat.
	Format        string
	Resources     Resources
	SarifCategory string
	AddSnippets   bool

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Analyze runs queries against a database and writes the results to
// req.OutputPath, creating its parent directory.
func (c *CLI) Analyze(ctx context.Context, req AnalyzeRequest) error {
	if len(req.Queries) == 0 {
		return errors.New("at least one query is required")
	}
	format := req.Format
	if format == "" {
		format = DefaultFormat
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return errors.Wrapf(err, "create parent of %s", req.OutputPath)
	}

	args := []string{"database", "analyze", req.DatabasePath}
	args = append(args, req.Queries...)
	args = append(args, "--format="+format, "--output="+req.OutputPath)
	args = append(args, req.Resources.args()...)
	if req.SarifCategory != "" {
		args = append(args, "--sarif-category="+req.SarifCategory)
	}
	if req.AddSnippets {
		args = append(args, "--sarif-add-snippets")
	}

	logger := c.logger()
	logger.Info("codeql.analyze.start", "db", req.DatabasePath, "queries", len(req.Queries), "output", req.OutputPath)
	if _, err := c.run(ctx, orDefault(req.Timeout), args...); err != nil {
		return err
	}
	logger.Info("codeql.analyze.success", "db", req.DatabasePath, "output", req.OutputPath)
	return nil
}

// run executes codeql with args and returns stdout.
func (c *CLI) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	logger := c.logger()
	path := c.Path
	if path == "" {
		path = "codeql"
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - arguments are passed without a shell
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("codeql.exec", "cmd", path+" "+strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	metrics.observe(strings.Join(subcommand(args), "_"), err, time.Since(start))

	switch {
	case err == nil:
		return stdout.String(), nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Error("codeql.timeout", "args", args, "timeout", timeout)
		return "", errors.Wrapf(ErrTimeout, "codeql %s after %s", strings.Join(subcommand(args), " "), timeout)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		logger.Error("codeql.not_found", "path", path)
		return "", errors.Wrapf(ErrCLINotFound, "at %s", path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr := &ToolError{Args: args, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		logger.Error("codeql.error", "args", args, "exit_code", toolErr.ExitCode, "stderr", strings.TrimSpace(toolErr.Stderr))
		return "", toolErr
	}
	return "", errors.Wrapf(err, "run %s", path)
}

func (c *CLI) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// subcommand returns the leading non-flag words of args, at most two.
func subcommand(args []string) []string {
	n := 0
	for n < len(args) && n < 2 && !strings.HasPrefix(args[n], "-") {
		n++
	}
	if n == 2 && args[0] != "database" {
		n = 1
	}
	return args[:n]
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
