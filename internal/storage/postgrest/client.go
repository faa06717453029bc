// Package postgrest implements the relational-store port against a
// Supabase/PostgREST endpoint. All access goes over HTTP; there is no SQL
// connection anywhere in the service.
package postgrest

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"chileadicto/internal/adapters/observability"
	"chileadicto/internal/domain"
)

// Client is a minimal PostgREST client with two credential tiers: the anon
// key for reads and the service-role key for writes. A client without a base
// URL is "unconfigured": reads report empty results, writes fail hard.
type Client struct {
	base       string // e.g. https://xyz.supabase.co/rest/v1
	hc         *http.Client
	anonKey    string
	serviceKey string
	rl         *rate.Limiter
}

func New(base, anonKey, serviceKey string, rps int) *Client {
	if rps <= 0 {
		rps = 10
	}
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasSuffix(base, "/rest/v1") {
		base += "/rest/v1"
	}
	return &Client{
		base:       base,
		hc:         &http.Client{Timeout: 20 * time.Second},
		anonKey:    anonKey,
		serviceKey: serviceKey,
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) Configured() bool      { return c.base != "" }
func (c *Client) WriteConfigured() bool { return c.base != "" && c.serviceKey != "" }

// RemoteError preserves the PostgREST error body; the repo pattern-matches
// Message to detect schema drift.
type RemoteError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("postgrest %d %s: %s", e.Status, e.Code, e.Message)
}

// Get issues an anon-tier read. out may be nil.
func (c *Client) Get(ctx context.Context, table string, q url.Values, out any) error {
	key := c.anonKey
	if key == "" {
		key = c.serviceKey
	}
	return c.do(ctx, http.MethodGet, table, q, nil, out, key, "")
}

// Write issues a service-tier mutation. prefer is passed as the Prefer header
// ("return=representation" to read generated columns back).
func (c *Client) Write(ctx context.Context, method, table string, q url.Values, body, out any, prefer string) error {
	if !c.WriteConfigured() {
		return domain.ErrBackendUnconfigured
	}
	return c.do(ctx, method, table, q, body, out, c.serviceKey, prefer)
}

// do performs one call with client-side rate limiting and bounded retries on
// 429/transient 5xx, honoring Retry-After. 4xx responses are not retried; the
// decoded error body is returned for the caller to interpret.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, body, out any, key, prefer string) error {
	if !c.Configured() {
		return domain.ErrBackendUnconfigured
	}
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	u := c.base + "/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", key)
		req.Header.Set("Authorization", "Bearer "+key)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("postgrest", table, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil || resp.StatusCode == http.StatusNoContent {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			re := &RemoteError{Status: resp.StatusCode}
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if err := json.Unmarshal(b, re); err != nil || re.Message == "" {
				re.Message = strings.TrimSpace(string(b))
			}
			return re
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns exponential delay (200ms, 400ms, 800ms...) with up to +50%
// jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
