// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repo clones repositories and measures their JavaScript source
// size.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrDestinationExists is returned when the clone target already exists
	// and the caller did not ask to skip it.
	ErrDestinationExists = errors.New("destination directory already exists")

	// ErrTimeout is returned when git does not finish within the timeout.
	ErrTimeout = errors.New("git clone timed out")
)

// ToolError reports a git invocation that exited non-zero.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s failed with exit code %d", e.Args[0], e.ExitCode)
	}
	return fmt.Sprintf("git %s failed with exit code %d: %s", e.Args[0], e.ExitCode, msg)
}

const (
	defaultDepth   = 1
	defaultTimeout = 600 * time.Second
)

// Cloner runs shallow git clones.
type Cloner struct {
	// GitPath is the git binary. Defaults to "git" on $PATH.
	GitPath string
	// Depth is the clone depth. Defaults to 1.
	Depth int
	// Token, when set, authenticates HTTPS clones from github.com.
	Token string
	// Timeout bounds one clone. Defaults to 10 minutes.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewCloner creates a cloner with the default depth and timeout.
func NewCloner(token string, logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{
		GitPath: "git",
		Depth:   defaultDepth,
		Token:   token,
		Timeout: defaultTimeout,
		Logger:  logger,
	}
}

// CloneOptions tunes a single clone.
type CloneOptions struct {
	// SkipIfExists returns early when dest already exists instead of
	// failing with ErrDestinationExists.
	SkipIfExists bool
}

// Clone clones gitURL into dest and returns dest. The parent of dest is
// created. A failed or timed-out clone leaves no directory behind.
func (c *Cloner) Clone(ctx context.Context, gitURL, dest string, opts CloneOptions) (string, error) {
	logger := c.logger()

	if err := ValidateGitURL(gitURL); err != nil {
		return "", errors.Wrap(err, "invalid git URL")
	}

	if _, err := os.Stat(dest); err == nil {
		if opts.SkipIfExists {
			logger.Info("repo.clone.skip", "dest", dest, "reason", "exists")
			return dest, nil
		}
		return "", errors.Wrapf(ErrDestinationExists, "clone %s", dest)
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "stat %s", dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrapf(err, "create parent of %s", dest)
	}

	depth := c.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	gitPath := c.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"clone", fmt.Sprintf("--depth=%d", depth), authenticatedURL(gitURL, c.Token), dest}
	// #nosec G204 - gitURL is validated above to prevent command injection
	cmd := exec.CommandContext(runCtx, gitPath, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.WaitDelay = 5 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logURL := sanitizeURL(gitURL)
	logger.Info("repo.clone.start", "url", logURL, "dest", dest, "depth", depth)
	start := time.Now()

	err := cmd.Run()
	metrics.observe(err, time.Since(start))
	if err == nil {
		logger.Info("repo.clone.success", "url", logURL, "dest", dest, "duration", time.Since(start))
		return dest, nil
	}

	_ = os.RemoveAll(dest) // a partial clone must not pass for a finished one

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logger.Error("repo.clone.timeout", "url", logURL, "timeout", timeout)
		return "", errors.Wrapf(ErrTimeout, "clone %s after %s", logURL, timeout)
	}

	toolErr := &ToolError{Args: []string{"clone", fmt.Sprintf("--depth=%d", depth), logURL, dest}, ExitCode: -1, Stderr: redact(stderr.String(), c.Token)}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	} else {
		toolErr.Stderr = redact(err.Error(), c.Token)
	}
	logger.Error("repo.clone.error", "url", logURL, "exit_code", toolErr.ExitCode, "stderr", toolErr.Stderr)
	return "", toolErr
}

func (c *Cloner) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
