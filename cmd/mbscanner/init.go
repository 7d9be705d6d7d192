// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kraklabs/mbscanner/internal/bootstrap"
	"github.com/kraklabs/mbscanner/internal/config"
	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive bool
	dataDir, language     string
	minStars              int
	codeqlPath            string
}

// runInit executes the 'init' CLI command. It writes the configuration file
// (default .mbscanner/config.yaml), creates the workspace directories and
// the metadata database, and applies pending migrations.
//
// Examples:
//
//	mbscanner init                      Interactive setup
//	mbscanner init -y                   Use all defaults
//	mbscanner init -y --data-dir /srv   Non-interactive with a custom data dir
func runInit(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("init", `Usage: mbscanner init [options]

Creates the configuration file and the workspace (data directory,
metadata database, repository, database and output directories).
`)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite an existing configuration file")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.dataDir, "data-dir", "", "Data directory (default: ./data)")
	fs.StringVarP(&f.language, "language", "l", "", "Default GitHub search language")
	fs.IntVarP(&f.minStars, "min-stars", "s", -1, "Default minimum stars")
	fs.StringVar(&f.codeqlPath, "codeql-path", "", "Path to the codeql executable")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	path := a.globals.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := configForInit(path, f)
	if err != nil {
		return err
	}

	if !f.nonInteractive && isatty.IsTerminal(os.Stdin.Fd()) {
		runInteractiveConfig(bufio.NewReader(os.Stdin), ui.Output, cfg)
	}

	if err := config.Save(cfg, path); err != nil {
		return errors.NewConfigError("Cannot save configuration", err.Error(), "Check write permissions for "+filepath.Dir(path), err)
	}
	ui.Successf("Wrote %s", path)
	if path == config.DefaultPath {
		addToGitignore(".")
	}

	// Reload so that MB_SCANNER_* overrides apply to the workspace paths.
	loaded, err := config.Load(path)
	if err != nil {
		return errors.NewConfigError("Cannot load configuration", err.Error(), "", err)
	}

	info, err := bootstrap.InitWorkspace(ctx, loaded, a.logger)
	if err != nil {
		return userError("Cannot initialize workspace", err)
	}

	if done, err := a.emit(info); done {
		return err
	}

	ui.KeyValue("Data:", ui.DimText(info.DataDir))
	ui.KeyValue("Database:", ui.DimText(info.DBPath))
	ui.KeyValue("Clones:", ui.DimText(info.RepositoriesDir))
	ui.KeyValue("CodeQL DBs:", ui.DimText(info.DatabaseDir))
	ui.KeyValue("Results:", ui.DimText(info.QueryOutputDir))
	printNextSteps()
	return nil
}

// configForInit starts from the existing file when one is present and
// --force is not set, then applies the flags.
func configForInit(path string, f initFlags) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if !f.force {
			return nil, errors.NewInputError(
				fmt.Sprintf("%s already exists", path),
				"",
				"Use --force to overwrite it",
			)
		}
	}

	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.language != "" {
		cfg.Search.Language = f.language
	}
	if f.minStars >= 0 {
		cfg.Search.MinStars = f.minStars
	}
	if f.codeqlPath != "" {
		cfg.CodeQL.CLIPath = f.codeqlPath
	}
	return cfg, nil
}

func runInteractiveConfig(reader *bufio.Reader, w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "mbscanner Configuration")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w)

	cfg.DataDir = prompt(reader, w, "Data directory", cfg.DataPath())
	cfg.Search.Language = prompt(reader, w, "Search language", cfg.Search.Language)
	if n, err := strconv.Atoi(prompt(reader, w, "Minimum stars", strconv.Itoa(cfg.Search.MinStars))); err == nil && n >= 0 {
		cfg.Search.MinStars = n
	}
	if n, err := strconv.Atoi(prompt(reader, w, "Max days since last push", strconv.Itoa(cfg.Search.MaxDaysSinceCommit))); err == nil && n >= 1 {
		cfg.Search.MaxDaysSinceCommit = n
	}
	cfg.CodeQL.CLIPath = prompt(reader, w, "CodeQL executable", cfg.CodeQL.CLIPath)
	fmt.Fprintln(w)
}

func printNextSteps() {
	fmt.Fprintln(ui.Output)
	fmt.Fprintln(ui.Output, "Next steps:")
	fmt.Fprintln(ui.Output, "  1. Export GITHUB_TOKEN (or add it to .env)")
	fmt.Fprintln(ui.Output, "  2. Run 'mbscanner search' to collect projects")
	fmt.Fprintln(ui.Output, "  3. Run 'mbscanner codeql create-db-batch' to build databases")
}

// prompt displays an interactive prompt and reads one line. An empty answer
// yields defaultValue.
func prompt(reader *bufio.Reader, w io.Writer, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .mbscanner/ and .env to the .gitignore in dir when
// the file exists and lacks them.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from working dir
	if err != nil {
		return
	}

	present := map[string]bool{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(line), "/"), "/")
		present[line] = true
	}

	var missing []string
	for _, entry := range []string{".mbscanner", ".env"} {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: gitignorePath built from working dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# mbscanner\n")
	for _, entry := range missing {
		if entry == ".mbscanner" {
			entry += "/"
		}
		_, _ = f.WriteString(entry + "\n")
	}
	ui.Infof("Added %s to .gitignore", strings.Join(missing, ", "))
}
