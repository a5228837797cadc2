// Package source defines where batch-scored records come from.
package source

import (
	"context"

	"github.com/crimson-sun/cardio/internal/model"
)

// Source reads raw records from outside the process.
type Source interface {
	// Stream sends records as they are read and closes the channel when the
	// input is exhausted or ctx is cancelled. Unreadable records are logged
	// and skipped.
	Stream(ctx context.Context, cfg Config) (<-chan model.Record, error)

	// Query reads one window of records. Any unreadable record fails the call.
	Query(ctx context.Context, cfg Config, params QueryParams) ([]model.Record, error)
}

// Config holds provider-specific settings.
type Config struct {
	Provider string
	Endpoint string // file path ("-" for stdin) or URL
	Token    string
	Extra    map[string]string
}

// QueryParams selects a window of records. Limit 0 means no limit.
type QueryParams struct {
	Offset int
	Limit  int
}
