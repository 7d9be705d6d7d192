// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package github searches GitHub for candidate repositories and reports the
// API rate limit.
package github

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SearchCriteria selects repositories by primary language, popularity and
// recent activity.
type SearchCriteria struct {
	Language           string `json:"language"`
	MinStars           int    `json:"min_stars"`
	MaxDaysSinceCommit int    `json:"max_days_since_commit"`
}

// DefaultCriteria returns JavaScript repositories with at least 100 stars
// pushed within the last year.
func DefaultCriteria() SearchCriteria {
	return SearchCriteria{Language: "JavaScript", MinStars: 100, MaxDaysSinceCommit: 365}
}

// Validate checks the criteria bounds.
func (c SearchCriteria) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Language) == "" {
		errs = append(errs, errors.New("language is required"))
	}
	if c.MinStars < 0 {
		errs = append(errs, fmt.Errorf("min stars must be >= 0, got %d", c.MinStars))
	}
	if c.MaxDaysSinceCommit < 1 {
		errs = append(errs, fmt.Errorf("max days since commit must be >= 1, got %d", c.MaxDaysSinceCommit))
	}
	return errors.Join(errs...)
}

// Query renders the criteria as a GitHub search query, e.g.
// "language:javascript stars:>=100 pushed:>2024-01-01". The cutoff date is
// computed from now in UTC.
func (c SearchCriteria) Query(now time.Time) string {
	cutoff := now.UTC().AddDate(0, 0, -c.MaxDaysSinceCommit)
	return fmt.Sprintf("language:%s stars:>=%d pushed:>%s",
		strings.ToLower(c.Language), c.MinStars, cutoff.Format("2006-01-02"))
}
