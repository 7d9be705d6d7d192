// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// parseLevel accepts the usual level names, case-insensitively. WARNING and
// CRITICAL are accepted as aliases of WARN and ERROR.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "CRITICAL":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the process logger from cfg.Logging. Records go to
// stderr when logging.console is set and to logging.file when it is
// non-empty. Any verbose count above zero forces debug level.
//
// The returned close function releases the log file; it is never nil.
func NewLogger(cfg *Config, verbose int) (*slog.Logger, func() error, error) {
	return newLogger(cfg, verbose, os.Stderr)
}

func newLogger(cfg *Config, verbose int, console io.Writer) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, noop, err
	}
	if verbose > 0 {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	closeFn := noop
	if cfg.Logging.ToConsole {
		writers = append(writers, console)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o750); err != nil {
			return nil, noop, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: configured log path
		if err != nil {
			return nil, noop, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}
