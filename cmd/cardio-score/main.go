// Command cardio-score reads records from a source and writes one
// prediction per record as NDJSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/engine/artifacts"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/logging"
	"github.com/crimson-sun/cardio/internal/output"
	"github.com/crimson-sun/cardio/internal/output/file"
	"github.com/crimson-sun/cardio/internal/output/stdout"
	"github.com/crimson-sun/cardio/internal/pipeline"
	"github.com/crimson-sun/cardio/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/cardio/internal/source/ndjson"
	_ "github.com/crimson-sun/cardio/internal/source/remote"
)

func main() {
	provider := flag.String("source", "ndjson", "record source: "+strings.Join(source.Providers(), ", "))
	endpoint := flag.String("in", "-", "file path (ndjson, - for stdin) or URL (remote)")
	token := flag.String("token", os.Getenv("CARDIO_SOURCE_TOKEN"), "bearer token for the remote source")
	pageSize := flag.Int("page-size", 0, "records per request for the remote source")
	offset := flag.Int("offset", 0, "skip this many records (one-shot mode)")
	limit := flag.Int("limit", 0, "score at most this many records (one-shot mode); 0 means all")
	follow := flag.Bool("follow", false, "stream records as they arrive instead of reading one window")
	out := flag.String("out", "", "write predictions to this file instead of stdout")
	daily := flag.Bool("daily", false, "split -out into one file per scoring date")
	detail := flag.String("detail", "standard", "prediction detail: minimal, standard or full")
	batch := flag.Int("batch", 256, "records scored per engine call")
	window := flag.Duration("window", 500*time.Millisecond, "max wait before a partial batch is scored (follow mode)")
	models := flag.String("models", "models", "directory holding the scaler and classifier artifacts")
	backend := flag.String("backend", artifacts.BackendLinear, "classifier backend: linear or onnx")
	onnxLib := flag.String("onnx-lib", "", "path to the ONNX Runtime shared library")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Init("text", logging.ParseLevel(*logLevel))

	if *batch <= 0 {
		fmt.Fprintln(os.Stderr, "batch must be > 0")
		os.Exit(2)
	}
	ctor, err := source.Get(*provider)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	schema := features.DefaultSchema()
	arts, err := artifacts.Load(*models, schema, artifacts.Options{Backend: *backend, ONNXLibrary: *onnxLib})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading artifacts:", err)
		os.Exit(1)
	}
	defer arts.Close()

	eng, err := engine.New(schema, arts.Scaler, arts.Classifier)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error building engine:", err)
		os.Exit(1)
	}

	var sink output.Output
	if *out == "" {
		sink = stdout.New(output.ParseDetail(*detail), false)
	} else {
		var fopts []file.Option
		if *daily {
			fopts = append(fopts, file.WithDaily())
		}
		sink, err = file.New(*out, output.ParseDetail(*detail), fopts...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error opening output:", err)
			os.Exit(1)
		}
	}

	p := pipeline.New(ctor(), eng, sink, pipeline.WithBatchSize(*batch), pipeline.WithWindow(*window))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := source.Config{
		Provider: *provider,
		Endpoint: *endpoint,
		Token:    *token,
		Extra:    map[string]string{},
	}
	if *pageSize > 0 {
		cfg.Extra["page_size"] = fmt.Sprint(*pageSize)
	}

	if *follow {
		err = p.Stream(ctx, cfg)
	} else {
		err = p.Query(ctx, cfg, source.QueryParams{Offset: *offset, Limit: *limit})
	}
	closeErr := p.Close()

	stats := p.Stats()
	slog.Info("scoring finished",
		"scored", stats.Scored,
		"positive", stats.Positive,
		"skipped", stats.Skipped,
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if closeErr != nil {
		fmt.Fprintln(os.Stderr, "error closing output:", closeErr)
		os.Exit(1)
	}
}
