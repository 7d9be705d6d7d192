// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/workflow"
)

// printFailures lists per-project failures of a batch under its stats.
func printFailures(failures []workflow.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(ui.Output)
	ui.SubHeader("Failures:")
	for _, f := range failures {
		fmt.Fprintf(ui.Output, "  %s %s: %s\n", ui.Red.Sprint("✗"), f.Project, ui.DimText(f.Error))
	}
}

// unlimited renders a positive cap, or "unlimited".
func unlimited(n int) any {
	if n > 0 {
		return n
	}
	return "unlimited"
}
