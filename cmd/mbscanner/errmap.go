// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	stderrors "errors"

	"github.com/kraklabs/mbscanner/internal/bootstrap"
	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/pkg/codeql"
	"github.com/kraklabs/mbscanner/pkg/github"
	"github.com/kraklabs/mbscanner/pkg/repo"
	"github.com/kraklabs/mbscanner/pkg/sarif"
	"github.com/kraklabs/mbscanner/pkg/storage"
	"github.com/kraklabs/mbscanner/pkg/summary"
)

// userError maps library errors onto the CLI taxonomy. msg describes the
// failed operation; the library error becomes the cause.
func userError(msg string, err error) error {
	if err == nil {
		return nil
	}

	var ue *errors.UserError
	if stderrors.As(err, &ue) {
		return ue
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.ErrInterrupted
	}

	cause := err.Error()
	var (
		codeqlTool *codeql.ToolError
		gitTool    *repo.ToolError
	)
	switch {
	case stderrors.Is(err, bootstrap.ErrNotInitialized):
		return errors.NewConfigError(msg, cause, "Run 'mbscanner init' first", err)
	case stderrors.Is(err, github.ErrNoToken):
		return errors.NewConfigError(msg, cause, "Set GITHUB_TOKEN (or MB_SCANNER_GITHUB_TOKEN) or github_token in the config file", err)
	case stderrors.Is(err, github.ErrRateLimited):
		return errors.NewNetworkError(msg, cause, "Check 'mbscanner github rate-limit' and retry after the reset time", err)
	case stderrors.Is(err, codeql.ErrCLINotFound):
		return errors.NewConfigError(msg, cause, "Install the CodeQL CLI or set codeql.cli_path", err)
	case stderrors.Is(err, codeql.ErrDatabaseNotFound):
		return notFound(msg, cause, "Run 'mbscanner codeql create-db <owner/repo>' first", err)
	case stderrors.Is(err, codeql.ErrSourceNotFound):
		return notFound(msg, cause, "Run 'mbscanner github clone' first", err)
	case stderrors.Is(err, codeql.ErrTimeout), stderrors.Is(err, repo.ErrTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError(msg, cause, "Retry, or raise the timeout for very large repositories", err)
	case stderrors.As(err, &codeqlTool), stderrors.As(err, &gitTool):
		return errors.NewToolError(msg, cause, "Inspect the tool output above; rerun with -v for details", err)
	case stderrors.Is(err, storage.ErrNotFound), stderrors.Is(err, summary.ErrNotFound), stderrors.Is(err, sarif.ErrNotFound):
		return notFound(msg, cause, "", err)
	case stderrors.Is(err, summary.ErrFormat):
		return errors.NewFormatError(msg, cause, "Regenerate the file with 'mbscanner codeql query'", err)
	}
	return errors.NewInternalError(msg, cause, "", err)
}

func notFound(msg, cause, fix string, err error) *errors.UserError {
	ue := errors.NewNotFoundError(msg, cause, fix)
	ue.Err = err
	return ue
}
