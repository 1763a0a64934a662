// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil checks that remote diagram renderers are reachable.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff after a busy response. It doubles on
// each further attempt. Tests override it to avoid real sleeps.
var RetryBaseDelay = time.Second

const defaultMaxRetries = 3

// ErrUnreachable is returned by Probe when the server never answered
// with a usable status.
var ErrUnreachable = errors.New("renderer server unreachable")

// retryable reports whether status means the server is temporarily busy.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries on 429 and 503 with exponential
// backoff starting at RetryBaseDelay. When maxRetries is 0 the default (3)
// is used. Busy responses are drained and closed before sleeping. After
// the retries are spent the last busy response is returned as is.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Probe checks that the PlantUML server at url answers. Any status below
// 500 other than 429 counts as reachable, since the server root may
// legitimately redirect or 404.
func Probe(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s answered %d", ErrUnreachable, url, resp.StatusCode)
	}
	return nil
}
