// Package ndjson reads records from newline-delimited JSON, one object per
// line, from a file or stdin. Every record field is required.
package ndjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/source"
)

const maxLineBytes = 1 << 20

func init() {
	source.Register("ndjson", func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source over NDJSON input. Endpoint is a file
// path; "-" or empty reads stdin.
type Source struct {
	// Stdin replaces os.Stdin when set. If it is an io.Closer, Stream closes
	// it on cancellation to unblock a pending read.
	Stdin io.Reader
}

func (s *Source) open(cfg source.Config) (io.ReadCloser, error) {
	if cfg.Endpoint == "" || cfg.Endpoint == "-" {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		if rc, ok := in.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(in), nil
	}
	f, err := os.Open(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("ndjson source: %w", err)
	}
	return f, nil
}

// Stream decodes lines in the background. Lines that are not valid records
// are logged and skipped. Cancelling ctx closes the input, so a follow on
// stdin returns without waiting for another line.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.Record, error) {
	rc, err := s.open(cfg)
	if err != nil {
		return nil, err
	}
	closeInput := sync.OnceValue(rc.Close)
	stop := context.AfterFunc(ctx, func() { closeInput() })

	ch := make(chan model.Record, 64)
	go func() {
		defer close(ch)
		defer closeInput()
		defer stop()

		err := scan(rc, func(line int, r model.Record, err error) bool {
			if err != nil {
				slog.Warn("ndjson source: skipping line", "line", line, "error", err)
				return true
			}
			select {
			case ch <- r:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			slog.Warn("ndjson source: read error", "error", err)
		}
	}()
	return ch, nil
}

// Query reads the requested window. A malformed line inside the window
// fails the call.
func (s *Source) Query(_ context.Context, cfg source.Config, params source.QueryParams) ([]model.Record, error) {
	rc, err := s.open(cfg)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		out     []model.Record
		seen    int
		lineErr error
	)
	err = scan(rc, func(line int, r model.Record, err error) bool {
		seen++
		if seen <= params.Offset {
			return true
		}
		if err != nil {
			lineErr = fmt.Errorf("ndjson source: line %d: %w", line, err)
			return false
		}
		out = append(out, r)
		return params.Limit == 0 || len(out) < params.Limit
	})
	if lineErr != nil {
		return nil, lineErr
	}
	if err != nil {
		return nil, fmt.Errorf("ndjson source: %w", err)
	}
	return out, nil
}

// scan calls fn for every non-blank line until fn returns false.
func scan(r io.Reader, fn func(line int, rec model.Record, err error) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var in model.Input
		err := json.Unmarshal([]byte(text), &in)
		if err == nil {
			err = in.Validate()
		}
		var rec model.Record
		if err == nil {
			rec = in.Record()
		}
		if !fn(line, rec, err) {
			return nil
		}
	}
	return sc.Err()
}
