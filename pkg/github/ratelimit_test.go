// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitHandler(limit, remaining int, reset time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"resources":{"core":{"limit":%d,"remaining":%d,"reset":%d}}}`, limit, remaining, reset.Unix())
	}
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		remaining  int
		reset      time.Time
		wantStatus string
		wantWait   float64
	}{
		{"plenty left", 4999, fixedNow.Add(time.Hour), RateOK, 0},
		{"exactly 20 percent", 1000, fixedNow.Add(time.Hour), RateOK, 0},
		{"below 20 percent", 999, fixedNow.Add(time.Hour), RateWarning, 0},
		{"exhausted", 0, fixedNow.Add(30 * time.Minute), RateLimited, 1800},
		{"exhausted, reset passed", 0, fixedNow.Add(-time.Minute), RateLimited, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, rateLimitHandler(5000, tt.remaining, tt.reset))

			info, err := c.RateLimit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 5000, info.Limit)
			assert.Equal(t, tt.remaining, info.Remaining)
			assert.True(t, tt.reset.Truncate(time.Second).Equal(info.Reset))
			assert.Equal(t, tt.wantStatus, info.Status())
			assert.InDelta(t, tt.wantWait, info.WaitSeconds, 0.001)
		})
	}
}

func TestRateLimit_Error(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	}))

	_, err := c.RateLimit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get rate limit")
}
