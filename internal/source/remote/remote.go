// Package remote pages records from an HTTP endpoint that serves a JSON
// array of records per request.
//
// Requests look like GET {endpoint}?offset=N&limit=M. A page shorter than
// the limit ends the input.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/source"
)

const (
	defaultPageSize = 100
	maxRetries      = 3
	maxErrorBody    = 512
)

func init() {
	source.Register("remote", func() source.Source {
		return New()
	})
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Source implements source.Source over paged HTTP.
type Source struct {
	client  *http.Client
	backoff time.Duration
}

// Option configures a remote Source.
type Option func(*Source)

// WithTimeout sets the per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.client.Timeout = d }
}

// WithBackoff sets the base retry delay; attempt n waits base<<(n-1).
// Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(s *Source) { s.backoff = d }
}

// New returns a remote Source.
func New(opts ...Option) *Source {
	s := &Source{
		client:  &http.Client{Timeout: 30 * time.Second},
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream pages through the endpoint in the background. Records that fail
// validation are logged and skipped; a request failure ends the stream.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.Record, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote source: endpoint is required")
	}
	size := pageSize(cfg)

	ch := make(chan model.Record, size)
	go func() {
		defer close(ch)
		offset := 0
		for {
			page, err := s.fetch(ctx, cfg, offset, size)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("remote source: fetch failed", "offset", offset, "error", err)
				}
				return
			}
			for i, in := range page {
				if err := in.Validate(); err != nil {
					slog.Warn("remote source: skipping record", "index", offset+i, "error", err)
					continue
				}
				select {
				case ch <- in.Record():
				case <-ctx.Done():
					return
				}
			}
			if len(page) < size {
				return
			}
			offset += size
		}
	}()
	return ch, nil
}

// Query fetches the window described by params. Limit 0 pages until the
// endpoint runs out.
func (s *Source) Query(ctx context.Context, cfg source.Config, params source.QueryParams) ([]model.Record, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote source: endpoint is required")
	}
	size := pageSize(cfg)
	if params.Limit > 0 && params.Limit < size {
		size = params.Limit
	}

	var out []model.Record
	offset := params.Offset
	for {
		page, err := s.fetch(ctx, cfg, offset, size)
		if err != nil {
			return nil, fmt.Errorf("remote source: %w", err)
		}
		for i, in := range page {
			if err := in.Validate(); err != nil {
				return nil, fmt.Errorf("remote source: record %d: %w", offset+i, err)
			}
			out = append(out, in.Record())
			if params.Limit > 0 && len(out) == params.Limit {
				return out, nil
			}
		}
		if len(page) < size {
			return out, nil
		}
		offset += size
	}
}

func pageSize(cfg source.Config) int {
	if v, err := strconv.Atoi(cfg.Extra["page_size"]); err == nil && v > 0 {
		return v
	}
	return defaultPageSize
}

// fetch GETs one page. It retries on 429 (honouring Retry-After) and 5xx.
func (s *Source) fetch(ctx context.Context, cfg source.Config, offset, limit int) ([]model.Input, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(s.delay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.Token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var page []model.Input
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, fmt.Errorf("decode page at offset %d: %w", offset, err)
			}
			return page, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
		case resp.StatusCode >= 500:
			lastErr = apiErr
		default:
			return nil, apiErr
		}
	}
	return nil, lastErr
}

func (s *Source) delay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return s.backoff << (attempt - 1)
}

// truncateBody keeps at most maxErrorBody bytes of a response body, ending
// on a rune boundary.
func truncateBody(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}
