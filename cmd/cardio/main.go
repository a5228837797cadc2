package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/cardio/internal/config"
	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/engine/artifacts"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/logging"
	"github.com/crimson-sun/cardio/internal/output"
	"github.com/crimson-sun/cardio/internal/output/async"
	"github.com/crimson-sun/cardio/internal/output/file"
	"github.com/crimson-sun/cardio/internal/output/multi"
	"github.com/crimson-sun/cardio/internal/output/stdout"
	"github.com/crimson-sun/cardio/internal/output/webhook"
	"github.com/crimson-sun/cardio/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "optional KEY=value file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "cardio: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	schema := features.DefaultSchema()
	arts, err := artifacts.Load(cfg.Engine.ModelDir, schema, artifacts.Options{
		Backend:     cfg.Engine.Backend,
		ONNXLibrary: cfg.Engine.ONNXLibrary,
	})
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	defer arts.Close()

	eng, err := engine.New(schema, arts.Scaler, arts.Classifier)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	var opts []server.Option
	audit, err := buildAudit(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if audit != nil {
		defer audit.Close()
		opts = append(opts, server.WithAudit(audit))
	}

	srv := server.New(eng, cfg.Server, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// buildAudit assembles the configured sinks behind one async writer.
// It returns nil when the audit trail is disabled.
func buildAudit(cfg config.AuditConfig) (output.Output, error) {
	if len(cfg.Sinks) == 0 {
		return nil, nil
	}
	detail := output.ParseDetail(cfg.Detail)

	var routes []multi.Route
	for _, name := range cfg.Sinks {
		switch name {
		case "stdout":
			routes = append(routes, multi.All(stdout.New(detail, cfg.Pretty)))
		case "file":
			var fopts []file.Option
			if cfg.Daily {
				fopts = append(fopts, file.WithDaily())
			}
			f, err := file.New(cfg.Path, detail, fopts...)
			if err != nil {
				multi.New(routes...).Close()
				return nil, err
			}
			routes = append(routes, multi.All(f))
		case "webhook":
			hook := webhook.New(cfg.URL, webhook.WithDetail(detail))
			if cfg.PositiveOnly {
				routes = append(routes, multi.Positive(hook))
			} else {
				routes = append(routes, multi.All(hook))
			}
		default:
			multi.New(routes...).Close()
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}

	var out output.Output = multi.New(routes...)
	if len(routes) == 1 && len(routes[0].Labels) == 0 {
		out = routes[0].Output
	}

	aopts := []async.Option{async.WithBufferSize(cfg.BufferSize)}
	if cfg.Shed {
		aopts = append(aopts, async.WithShedNegatives())
	}
	slog.Info("audit trail enabled",
		"sinks", cfg.Sinks,
		"detail", detail.String(),
		"daily", cfg.Daily,
		"webhook_positive_only", cfg.PositiveOnly,
		"shed", cfg.Shed,
	)
	return async.New(out, aopts...), nil
}
