// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client calls a running concept-engine service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to one service base URL.
type Client struct {
	baseURL    string
	http       *http.Client
	token      string
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithMaxRetries bounds the retries on HTTP 429 (default 5).
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New returns a Client for baseURL, e.g. "http://localhost:8787".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Match scores a concept against an observation.
func (c *Client) Match(ctx context.Context, req types.MatchRequest) (*types.MatchResponse, error) {
	var out types.MatchResponse
	if err := c.do(ctx, http.MethodPost, "/cpms/match", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Explain scores a concept against an observation with a full trace.
func (c *Client) Explain(ctx context.Context, req types.MatchRequest) (*types.ExplainResponse, error) {
	var out types.ExplainResponse
	if err := c.do(ctx, http.MethodPost, "/cpms/match_explain", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchPattern resolves a pattern against an observation.
func (c *Client) MatchPattern(ctx context.Context, req types.PatternRequest) (*types.PatternResponse, error) {
	var out types.PatternResponse
	if err := c.do(ctx, http.MethodPost, "/cpms/match_pattern", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluators lists the service's registered evaluator names.
func (c *Client) Evaluators(ctx context.Context) ([]string, error) {
	var out types.EvaluatorsResponse
	if err := c.do(ctx, http.MethodGet, "/cpms/evaluators", nil, &out); err != nil {
		return nil, err
	}
	return out.Evaluators, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	newReq := func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return req, nil
	}

	resp, err := doWithRetry(ctx, c.http, newReq, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er types.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Details = er.Details
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
