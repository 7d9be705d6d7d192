// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"context"
	"errors"
	"time"
)

// Rate limit states reported by RateLimitInfo.Status.
const (
	RateOK      = "ok"
	RateWarning = "warning"
	RateLimited = "limited"
)

// RateLimitInfo is the core API quota.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset_time"`

	// WaitSeconds is the time until Reset, and only set once the quota is
	// exhausted.
	WaitSeconds float64 `json:"wait_seconds"`
}

// Status classifies the quota: limited when nothing is left, warning below
// 20% of the limit.
func (r RateLimitInfo) Status() string {
	switch {
	case r.Remaining == 0:
		return RateLimited
	case float64(r.Remaining) < float64(r.Limit)*0.2:
		return RateWarning
	default:
		return RateOK
	}
}

// RateLimit fetches the core rate limit.
func (c *Client) RateLimit(ctx context.Context) (RateLimitInfo, error) {
	start := time.Now()
	limits, _, err := c.api.RateLimit.Get(ctx)
	metrics.observe("rate_limit", err, time.Since(start))
	if err != nil {
		return RateLimitInfo{}, c.unwrapError(err, "get rate limit")
	}
	if limits == nil || limits.Core == nil {
		return RateLimitInfo{}, errors.New("get rate limit: response has no core quota")
	}

	core := limits.Core
	info := RateLimitInfo{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time.UTC(),
	}
	if info.Remaining == 0 {
		wait := info.Reset.Sub(c.now()).Seconds()
		if wait < 0 {
			wait = 0
		}
		info.WaitSeconds = wait
	}
	return info, nil
}
