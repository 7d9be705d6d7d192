// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/storage"
)

type migrateReport struct {
	Database   string          `json:"database"`
	DryRun     bool            `json:"dry_run"`
	Migrations map[string]bool `json:"migrations"`
}

// runMigrate applies pending schema migrations to the metadata database.
//
//	mbscanner migrate
//	mbscanner migrate --dry-run
func runMigrate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("migrate", "Usage: mbscanner migrate [options]\n\nApplies pending metadata database migrations.\n")
	dryRun := fs.BoolP("dry-run", "d", false, "Report what would change without changing it")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	dbPath := a.cfg.DBPath()
	if _, err := os.Stat(dbPath); err != nil {
		return errors.NewNotFoundError(
			fmt.Sprintf("Database file does not exist: %s", dbPath),
			"",
			"Run 'mbscanner init' first",
		)
	}

	results, err := storage.RunAllMigrations(ctx, dbPath, *dryRun, a.logger)
	if err != nil {
		return errors.NewDatabaseError("Migration failed", err.Error(), "Restore the database from a backup before retrying", err)
	}

	if done, err := a.emit(migrateReport{Database: dbPath, DryRun: *dryRun, Migrations: results}); done {
		return err
	}

	if *dryRun {
		ui.Info("Dry run: no changes were made")
	}
	applied := 0
	for _, m := range storage.Migrations {
		status := "skipped"
		if results[m.Name] {
			status = "executed"
			if *dryRun {
				status = "pending"
			}
			applied++
		}
		fmt.Fprintf(ui.Output, "  %-28s %s\n", m.Name, ui.StatusText(status))
	}
	if applied == 0 {
		ui.Success("Database is up to date")
	} else if !*dryRun {
		ui.Successf("Applied %d migration(s)", applied)
	}
	return nil
}
