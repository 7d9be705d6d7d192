// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads mbscanner settings.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults
//  2. the YAML file passed to Load (usually .mbscanner/config.yaml)
//  3. a .env file in the working directory (never overrides the real env)
//  4. MB_SCANNER_* environment variables, plus an unprefixed GITHUB_TOKEN
//
// The result is a plain value. Nothing in this package is global; the CLI
// passes the *Config it loaded to every constructor that needs it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable Load reads.
const EnvPrefix = "MB_SCANNER"

// DefaultPath is where `mbscanner init` writes the configuration file.
var DefaultPath = filepath.Join(".mbscanner", "config.yaml")

// Config is the full mbscanner configuration.
type Config struct {
	DataDir            string  `yaml:"data_dir,omitempty" split_words:"true"`
	DBFile             string  `yaml:"db_file,omitempty" split_words:"true"`
	GitHubToken        string  `yaml:"github_token,omitempty" envconfig:"github_token"`
	Search             Search  `yaml:"search" envconfig:"github_search_default"`
	Logging            Logging `yaml:"logging" envconfig:"log"`
	CodeQL             CodeQL  `yaml:"codeql" envconfig:"codeql"`
	TotalProjectsCount int     `yaml:"total_projects_count" split_words:"true"`
}

// Search holds the default GitHub search criteria.
type Search struct {
	Language           string `yaml:"language"`
	MinStars           int    `yaml:"min_stars" split_words:"true"`
	MaxDaysSinceCommit int    `yaml:"max_days_since_commit" split_words:"true"`
}

// Logging configures the slog handler built by NewLogger.
type Logging struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file,omitempty"`
	ToConsole bool   `yaml:"console" split_words:"true"`
}

// CodeQL configures the CodeQL CLI driver and its directories.
type CodeQL struct {
	CLIPath             string `yaml:"cli_path" split_words:"true"`
	DBBaseDir           string `yaml:"db_dir,omitempty" split_words:"true"`
	CloneBaseDir        string `yaml:"clone_dir,omitempty" split_words:"true"`
	OutputBaseDir       string `yaml:"output_dir,omitempty" split_words:"true"`
	DefaultLanguage     string `yaml:"default_language" split_words:"true"`
	DefaultOutputFormat string `yaml:"format" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: Search{
			Language:           "JavaScript",
			MinStars:           100,
			MaxDaysSinceCommit: 365,
		},
		Logging: Logging{
			Level:     "INFO",
			ToConsole: true,
		},
		CodeQL: CodeQL{
			CLIPath:             "codeql",
			DefaultLanguage:     "javascript",
			DefaultOutputFormat: "sarifv2.1.0",
		},
		TotalProjectsCount: 1000,
	}
}

// Load builds the configuration from defaults, the YAML file at path, a
// .env file and the environment. An empty path skips the YAML layer; a path
// that does not exist is an error only when it is not DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if !os.IsNotExist(err) || path != DefaultPath {
				return nil, err
			}
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: path is the operator's config file
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadDotEnv applies a .env file without overriding variables that are
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks the numeric bounds and the log level.
func (c *Config) Validate() error {
	if c.Search.MinStars < 0 {
		return fmt.Errorf("search.min_stars must be >= 0, got %d", c.Search.MinStars)
	}
	if c.Search.MaxDaysSinceCommit < 1 {
		return fmt.Errorf("search.max_days_since_commit must be >= 1, got %d", c.Search.MaxDaysSinceCommit)
	}
	if c.TotalProjectsCount < 1 {
		return fmt.Errorf("total_projects_count must be >= 1, got %d", c.TotalProjectsCount)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DataPath returns data_dir, defaulting to ./data.
func (c *Config) DataPath() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return "data"
}

// DBPath returns db_file, defaulting to <data>/mb_scanner.db.
func (c *Config) DBPath() string {
	if c.DBFile != "" {
		return c.DBFile
	}
	return filepath.Join(c.DataPath(), "mb_scanner.db")
}

// LogPath returns logging.file, defaulting to <data>/mb_scanner.log.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.DataPath(), "mb_scanner.log")
}

// DatabaseDir returns where CodeQL databases live (<data>/codeql-dbs).
func (c *Config) DatabaseDir() string {
	if c.CodeQL.DBBaseDir != "" {
		return c.CodeQL.DBBaseDir
	}
	return filepath.Join(c.DataPath(), "codeql-dbs")
}

// RepositoriesDir returns where clones live (<data>/repositories).
func (c *Config) RepositoriesDir() string {
	if c.CodeQL.CloneBaseDir != "" {
		return c.CodeQL.CloneBaseDir
	}
	return filepath.Join(c.DataPath(), "repositories")
}

// QueryOutputDir returns where SARIF results live (outputs/queries).
func (c *Config) QueryOutputDir() string {
	if c.CodeQL.OutputBaseDir != "" {
		return c.CodeQL.OutputBaseDir
	}
	return filepath.Join("outputs", "queries")
}

// Redacted returns a copy safe to print, with the token masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.GitHubToken != "" {
		out.GitHubToken = strings.Repeat("*", 8)
	}
	return out
}
