// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

var (
	// ErrNoToken is returned by NewClient when no token is configured.
	ErrNoToken = errors.New("GitHub token is not configured")

	// ErrRateLimited wraps primary and secondary rate-limit responses.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")
)

const perPage = 100

// Repository is a search hit reduced to the fields the store keeps.
type Repository struct {
	FullName    string     `json:"full_name"`
	URL         string     `json:"html_url"`
	Stars       int        `json:"stargazers_count"`
	PushedAt    *time.Time `json:"pushed_at"`
	Language    *string    `json:"language"`
	Description *string    `json:"description"`
	Topics      []string   `json:"topics"`
}

// Client wraps the GitHub REST API with token authentication.
type Client struct {
	api    *gh.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise server or a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse base URL: %w", err)
		}
		c.api.BaseURL = u
		return nil
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// NewClient creates a client authenticated with token.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			AccessToken: token,
		},
	)
	tc := oauth2.NewClient(ctx, ts)

	c := &Client{
		api:    gh.NewClient(tc),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SearchRepositories returns the repositories matching criteria, most
// starred first. maxResults <= 0 fetches every page GitHub serves (the
// search API stops at 1000 hits).
func (c *Client) SearchRepositories(ctx context.Context, criteria SearchCriteria, maxResults int) ([]Repository, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search criteria: %w", err)
	}

	query := criteria.Query(c.now())
	c.logger.Info("github.search.start", "query", query, "max_results", maxResults)

	opts := &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	if maxResults > 0 && maxResults < perPage {
		opts.PerPage = maxResults
	}

	results := []Repository{}
	for {
		start := time.Now()
		page, resp, err := c.api.Search.Repositories(ctx, query, opts)
		metrics.observe("search", err, time.Since(start))
		if err != nil {
			return nil, c.unwrapError(err, "search repositories")
		}

		for _, r := range page.Repositories {
			repo, err := convertRepository(r)
			if err != nil {
				c.logger.Warn("github.search.skip", "repo", r.GetFullName(), "err", err)
				continue
			}
			results = append(results, repo)
			c.logger.Debug("github.search.repo", "repo", repo.FullName, "stars", repo.Stars)

			if maxResults > 0 && len(results) >= maxResults {
				c.logger.Info("github.search.done", "count", len(results))
				return results, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Info("github.search.done", "count", len(results))
	return results, nil
}

func convertRepository(r *gh.Repository) (Repository, error) {
	if r == nil {
		return Repository{}, errors.New("empty repository")
	}
	if r.GetFullName() == "" {
		return Repository{}, errors.New("missing full_name")
	}
	if r.GetHTMLURL() == "" {
		return Repository{}, errors.New("missing html_url")
	}
	if r.GetStargazersCount() < 0 {
		return Repository{}, fmt.Errorf("negative stargazers_count %d", r.GetStargazersCount())
	}

	repo := Repository{
		FullName:    r.GetFullName(),
		URL:         r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Language:    r.Language,
		Description: r.Description,
		Topics:      append([]string{}, r.Topics...),
	}
	if r.PushedAt != nil {
		t := r.PushedAt.Time.UTC()
		repo.PushedAt = &t
	}
	return repo, nil
}

// unwrapError maps rate-limit responses to ErrRateLimited and labels the
// rest with the failed operation.
func (c *Client) unwrapError(err error, op string) error {
	var rle *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rle):
		c.logger.Error("github.rate_limited", "op", op, "reset", rle.Rate.Reset.Time)
		return fmt.Errorf("%s: %w (resets at %s)", op, ErrRateLimited, rle.Rate.Reset.Time.UTC().Format(time.RFC3339))
	case errors.As(err, &abuse):
		c.logger.Error("github.rate_limited", "op", op, "secondary", true)
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	default:
		c.logger.Error("github.error", "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
}
