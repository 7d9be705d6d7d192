// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package summary

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kraklabs/mbscanner/internal/output"
)

// TimeFormat is the layout of GeneratedAt: ISO 8601 with microseconds and
// an explicit UTC offset.
const TimeFormat = "2006-01-02T15:04:05.000000-07:00"

// Summary is the persisted result of one query across all projects.
type Summary struct {
	QueryID       string         `json:"query_id"`
	TotalProjects int            `json:"total_projects"`
	Results       map[string]int `json:"results"`
	GeneratedAt   string         `json:"generated_at"`
	Threshold     *int           `json:"threshold,omitempty"`
}

// New builds a summary stamped with the current UTC time.
func New(queryID string, results map[string]int, threshold *int) *Summary {
	if results == nil {
		results = map[string]int{}
	}
	return &Summary{
		QueryID:       queryID,
		TotalProjects: len(results),
		Results:       results,
		GeneratedAt:   time.Now().UTC().Format(TimeFormat),
		Threshold:     threshold,
	}
}

// Save writes the summary as indented JSON, creating parent directories.
func (s *Summary) Save(path string) error {
	if err := output.WriteFile(path, s); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Load reads a summary file.
func Load(path string) (*Summary, error) {
	var s Summary
	if err := output.ReadFile(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("summary file %w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if s.Results == nil {
		s.Results = map[string]int{}
	}
	return &s, nil
}

// Entries returns the results ordered by count, highest first.
func (s *Summary) Entries() []Entry {
	return Sorted(s.Results, true)
}
