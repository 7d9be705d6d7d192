// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout holds the on-disk naming convention shared by every stage
// of the pipeline. Clones, CodeQL databases, SARIF outputs, extraction
// artifacts and summaries are all located through these helpers so the
// conventions cannot drift between stages:
//
//	<repos>/<safe>                         cloned working copy
//	<dbs>/<safe>                           CodeQL database
//	<outputs>/<query-id>/<safe>.sarif      query results
//	<outputs>/<query-id>/<safe>_code.json  extracted snippets
//	<outputs>/<query-id>/summary.json      (or limit_<T>_summary.json)
//
// where <safe> is the project full name with "/" replaced by "-".
package layout

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// SarifExt is the extension of query result files.
	SarifExt = ".sarif"

	// CodeSuffix is appended to the safe name of extraction artifacts.
	CodeSuffix = "_code.json"
)

// SafeName maps an "owner/repo" full name to a filesystem-safe name.
func SafeName(fullName string) string {
	return strings.ReplaceAll(fullName, "/", "-")
}

// ProjectNameFromStem recovers a full name from a safe-name file stem by
// replacing only the first "-" with "/".
//
// The mapping is lossy: "my-org-repo" becomes "my/org-repo" even when the
// project was "my-org/repo".
func ProjectNameFromStem(stem string) string {
	return strings.Replace(stem, "-", "/", 1)
}

// RepositoryPath returns the clone directory for a project.
func RepositoryPath(reposDir, fullName string) string {
	return filepath.Join(reposDir, SafeName(fullName))
}

// DatabasePath returns the CodeQL database directory for a project.
func DatabasePath(dbDir, fullName string) string {
	return filepath.Join(dbDir, SafeName(fullName))
}

// QueryDir returns the per-query output directory.
func QueryDir(outputDir, queryID string) string {
	return filepath.Join(outputDir, queryID)
}

// SarifPath returns the SARIF result path for a project under a query.
func SarifPath(outputDir, queryID, fullName string) string {
	return filepath.Join(outputDir, queryID, SafeName(fullName)+SarifExt)
}

// CodePath returns the extraction artifact path for a project under a query.
func CodePath(outputDir, queryID, fullName string) string {
	return filepath.Join(outputDir, queryID, SafeName(fullName)+CodeSuffix)
}

// SummaryFileName returns "summary.json", or "limit_<T>_summary.json" when
// a threshold was applied.
func SummaryFileName(threshold *int) string {
	if threshold == nil {
		return "summary.json"
	}
	return fmt.Sprintf("limit_%d_summary.json", *threshold)
}

// SummaryPath returns the summary file path inside a query directory.
func SummaryPath(outputDir, queryID string, threshold *int) string {
	return filepath.Join(outputDir, queryID, SummaryFileName(threshold))
}

// QueryID derives the query identifier from a query file path
// ("queries/id_10.ql" becomes "id_10").
func QueryID(queryFile string) string {
	base := filepath.Base(queryFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProjectFromSarifFile recovers the project full name from a SARIF file path.
func ProjectFromSarifFile(path string) string {
	return ProjectNameFromStem(strings.TrimSuffix(filepath.Base(path), SarifExt))
}
