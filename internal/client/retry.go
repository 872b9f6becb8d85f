// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package client

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff after an HTTP 429. Tests override it
// to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// maxRetryAfter caps a server-supplied Retry-After.
const maxRetryAfter = 30 * time.Second

const defaultMaxRetries = 5

// doWithRetry sends the request built by newReq and retries on HTTP 429 with
// exponential backoff starting at RetryBaseDelay. A Retry-After header in
// seconds takes precedence over the computed delay. The request is rebuilt
// for every attempt so its body can be re-read.
//
// After exhausting retries the last 429 response is returned so the caller
// can inspect it. A cancelled context during a wait returns ctx.Err().
func doWithRetry(ctx context.Context, hc *http.Client, newReq func(context.Context) (*http.Request, error), maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff <= 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a Retry-After value given in whole seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
