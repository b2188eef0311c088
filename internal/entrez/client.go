// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package entrez is a minimal client for the NCBI Entrez E-utilities,
// covering the efetch calls needed to resolve nucleotide accessions to
// GenBank records.
//
// NCBI usage policy requires a tool name and contact e-mail on every
// request and limits clients to 3 requests per second (10 with an API key);
// the client enforces the limit with a local token bucket and retries
// throttled or failed requests with exponential backoff.
package entrez

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/allista/GetIsolationSource/internal/genbank"
)

// DefaultBaseURL is the production E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// toolName identifies this client to NCBI, per their usage policy.
const toolName = "GetIsolationSources"

// NotFoundError reports accessions that efetch did not return records for.
type NotFoundError struct {
	IDs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%d accession(s) not found: %s", len(e.IDs), strings.Join(e.IDs, ", "))
}

// Options configures a Client.
type Options struct {
	// BaseURL overrides DefaultBaseURL; used by tests.
	BaseURL string
	// Email is the contact e-mail sent with every request. Required.
	Email string
	// APIKey is the optional NCBI API key; raises the rate limit.
	APIKey string
	// Timeout is the per-request timeout. Defaults to 60s.
	Timeout time.Duration
	// MaxRetries bounds retry attempts per request. Defaults to 3.
	MaxRetries int
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client fetches GenBank records from Entrez.
type Client struct {
	httpc      *http.Client
	base       string
	email      string
	apiKey     string
	maxRetries int
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient builds a Client. The rate limit follows NCBI policy: 3 requests
// per second without an API key, 10 with one.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rps := rate.Limit(3)
	if opts.APIKey != "" {
		rps = rate.Limit(10)
	}

	return &Client{
		httpc: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		base:       strings.TrimSuffix(opts.BaseURL, "/"),
		email:      opts.Email,
		apiKey:     opts.APIKey,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(rps, 1),
		log:        opts.Logger,
	}
}

// FetchGenBank retrieves the GenBank records for the given accession ids
// (versioned or bare) from the nuccore database. Records come back in
// server order. When some ids yield no record the parsed records are
// returned together with a *NotFoundError naming the missing ones.
func (c *Client) FetchGenBank(ctx context.Context, ids []string) ([]genbank.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	form := url.Values{
		"db":      {"nuccore"},
		"rettype": {"gb"},
		"retmode": {"text"},
		"id":      {strings.Join(ids, ",")},
	}

	body, err := c.post(ctx, "efetch.fcgi", form)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	records, err := genbank.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("efetch response: %w", err)
	}

	if missing := missingIDs(ids, records); len(missing) > 0 {
		return records, &NotFoundError{IDs: missing}
	}
	return records, nil
}

// post issues a rate-limited POST with retries. The caller owns the body.
func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (io.ReadCloser, error) {
	form.Set("tool", toolName)
	form.Set("email", c.email)
	if c.apiKey != "" {
		form.Set("api_key", c.apiKey)
	}
	encoded := form.Encode()
	target := c.base + "/" + endpoint

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			c.log.Debug("retrying entrez request",
				"endpoint", endpoint, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			drainClose(resp.Body)
			lastErr = fmt.Errorf("entrez %s: %s", endpoint, resp.Status)
			if wait := retryAfter(resp); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		default:
			drainClose(resp.Body)
			return nil, fmt.Errorf("entrez %s: %s", endpoint, resp.Status)
		}
	}
	return nil, fmt.Errorf("entrez %s: giving up after %d attempts: %w",
		endpoint, c.maxRetries+1, lastErr)
}

// missingIDs compares requested ids against returned records, matching on
// either the versioned or the bare accession.
func missingIDs(ids []string, records []genbank.Record) []string {
	got := make(map[string]bool, len(records)*2)
	for _, r := range records {
		got[r.Accession] = true
		got[r.Key()] = true
	}
	var missing []string
	for _, id := range ids {
		if got[id] {
			continue
		}
		// A bare request may come back versioned and vice versa.
		if i := strings.LastIndexByte(id, '.'); i > 0 && got[id[:i]] {
			continue
		}
		missing = append(missing, id)
	}
	return missing
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
