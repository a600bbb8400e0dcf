// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the provider backends.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// RetryBaseDelay is the backoff base used when a policy leaves BaseDelay
// unset. Tests override this to avoid real sleeps.
var RetryBaseDelay = time.Second

const defaultMaxRetries = 2

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff. The delay starts at the policy's
// BaseDelay (RetryBaseDelay when unset) and doubles each attempt: 1 s, 2 s.
//
// When policy.MaxRetries is 0 the default (2) is used. Any status other than
// 429 is returned to the caller on the first attempt. On each 429 the
// response body is drained and closed before sleeping. If the context is
// cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting retries the last 429 response is returned so the caller can
// inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy types.RetryConfig) (*http.Response, error) {
	maxRetries := policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := policy.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		slog.Debug("rate limited, backing off",
			"host", req.URL.Host, "backoff", backoff,
			"attempt", attempt+1, "max_retries", maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
