// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the mbscanner CLI.
//
// UserError carries what went wrong, why it happened and how to fix it,
// together with a Kind that places the failure in the pipeline's error
// taxonomy (not-found, format, external tool, timeout, ...).
//
// # Usage Example
//
//	err := errors.NewNotFoundError(
//	    "Query directory does not exist",
//	    "outputs/queries/id_10 was not found",
//	    "Run 'mbscanner codeql query-batch' for this query first",
//	)
//	os.Exit(errors.Report(err, false, false))
//
// # Formatted Output
//
//	Error: Query directory does not exist
//	Cause: outputs/queries/id_10 was not found
//	Fix:   Run 'mbscanner codeql query-batch' for this query first
//
// # Exit Codes
//
// The CLI keeps a deliberately small exit code surface:
//   - ExitSuccess (0): the command completed
//   - ExitFailure (1): any handled error, whatever its Kind
//   - ExitInterrupt (130): the run was interrupted by SIGINT/SIGTERM
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitFailure indicates a handled error.
	ExitFailure = 1

	// ExitInterrupt indicates the process was interrupted (128 + SIGINT).
	ExitInterrupt = 130
)

// ErrInterrupted is returned by commands that stop because the operator
// interrupted them.
var ErrInterrupted = stderrors.New("interrupted")

// Kind classifies a UserError.
type Kind string

// Error kinds.
const (
	KindConfig   Kind = "config"
	KindDatabase Kind = "database"
	KindNetwork  Kind = "network"
	KindInput    Kind = "input"
	KindNotFound Kind = "not_found"
	KindFormat   Kind = "format"
	KindTool     Kind = "external_tool"
	KindTimeout  Kind = "timeout"
	KindInternal Kind = "internal"
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred.
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// Kind places the error in the taxonomy.
	Kind Kind

	// ExitCode is the process exit code for this error.
	ExitCode int

	// Err is the underlying error (optional).
	Err error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(kind Kind, msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		Kind:     kind,
		ExitCode: ExitFailure,
		Err:      err,
	}
}

// NewConfigError creates a configuration error.
//
// Use this for missing, invalid or malformed configuration, including a
// missing GitHub token.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindConfig, msg, cause, fix, err)
}

// NewDatabaseError creates a metadata store error.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindDatabase, msg, cause, fix, err)
}

// NewNetworkError creates an error for failed GitHub API calls.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindNetwork, msg, cause, fix, err)
}

// NewInputError creates an input validation error. Input errors do not wrap
// an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(KindInput, msg, cause, fix, nil)
}

// NewNotFoundError creates an error for a missing file, directory, database
// or project.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newUserError(KindNotFound, msg, cause, fix, nil)
}

// NewFormatError creates an error for malformed SARIF or summary JSON.
func NewFormatError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindFormat, msg, cause, fix, err)
}

// NewToolError creates an error for a failed git or codeql invocation.
func NewToolError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindTool, msg, cause, fix, err)
}

// NewTimeoutError creates an error for an external tool that exceeded its
// time budget.
func NewTimeoutError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindTimeout, msg, cause, fix, err)
}

// NewInternalError creates an error for unexpected conditions that indicate
// a bug.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(KindInternal, msg, cause, fix, err)
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// Empty Cause or Fix fields are omitted. Color output respects NO_COLOR and
// the noColor parameter; the global color.NoColor state is restored before
// returning.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Kind     Kind   `json:"kind,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Kind:     e.Kind,
		ExitCode: e.ExitCode,
	}
}

// IsInterrupted reports whether err stems from an operator interrupt.
func IsInterrupted(err error) bool {
	return stderrors.Is(err, ErrInterrupted) || stderrors.Is(err, context.Canceled)
}

// ExitCodeFor maps an error returned by a command to a process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case IsInterrupted(err):
		return ExitInterrupt
	}
	var ue *UserError
	if stderrors.As(err, &ue) && ue.ExitCode != 0 {
		return ue.ExitCode
	}
	return ExitFailure
}

// Report writes err to stderr, either as colored text or as JSON, and
// returns the exit code the process should use.
func Report(err error, jsonOutput, noColor bool) int {
	code := ExitCodeFor(err)
	if err == nil {
		return code
	}

	if code == ExitInterrupt {
		fmt.Fprintln(os.Stderr, "Interrupted")
		return code
	}

	var ue *UserError
	if !stderrors.As(err, &ue) {
		ue = NewInternalError(err.Error(), "", "", nil)
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else {
		fmt.Fprint(os.Stderr, ue.Format(noColor))
	}
	return code
}
