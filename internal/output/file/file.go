package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithDaily partitions the audit trail by scoring date. Each prediction is
// appended to a file named after the UTC day of its timestamp, so
// "audit.ndjson" becomes "audit-2026-02-19.ndjson".
func WithDaily() Option {
	return func(o *Output) { o.daily = true }
}

// Output appends predictions as NDJSON with buffered I/O.
type Output struct {
	mu      sync.Mutex
	path    string
	detail  output.Detail
	daily   bool
	bufSize int

	day string // scoring date of the open file in daily mode
	f   *os.File
	w   *bufio.Writer
}

// New creates a file output. Without WithDaily the file at path is opened
// immediately; in daily mode only the directory is checked and each day's
// file is opened on its first prediction.
func New(path string, detail output.Detail, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		detail:  detail,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.daily {
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("file output: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("file output: %s is not a directory", dir)
		}
		return o, nil
	}
	if err := o.open(path); err != nil {
		return nil, err
	}
	return o, nil
}

// Write JSON-encodes the prediction and appends it as a line.
func (o *Output) Write(_ context.Context, p model.Prediction) error {
	data, err := json.Marshal(output.FormatPrediction(p, o.detail))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.daily {
		if day := scoringDay(p.Timestamp); day != o.day || o.f == nil {
			if err := o.closeCurrent(); err != nil {
				return fmt.Errorf("file output: %w", err)
			}
			if err := o.open(DatedPath(o.path, day)); err != nil {
				return err
			}
			o.day = day
		}
	}

	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer and closes the open file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.closeCurrent(); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	return nil
}

// DatedPath inserts the day before the extension of path.
func DatedPath(path, day string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + day + ext
}

func scoringDay(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.DateOnly)
}

func (o *Output) open(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	return nil
}

func (o *Output) closeCurrent() error {
	if o.f == nil {
		return nil
	}
	f, w := o.f, o.w
	o.f, o.w = nil, nil
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	return f.Close()
}
