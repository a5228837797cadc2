// Package server exposes the prediction engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/cardio/internal/config"
	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
)

const maxBodyBytes = 1 << 20

// Predictor turns validated records into predictions.
type Predictor interface {
	Process(r model.Record) (model.Prediction, error)
	ProcessBatch(records []model.Record) ([]model.Prediction, error)
}

// Option configures a Server.
type Option func(*Server)

// WithAudit writes every successful prediction to out. Write failures are
// logged and do not fail the request.
func WithAudit(out output.Output) Option {
	return func(s *Server) { s.audit = out }
}

// Server serves the health, prediction and metrics endpoints.
type Server struct {
	cfg      config.ServerConfig
	engine   Predictor
	audit    output.Output
	validate *validator.Validate
	metrics  *metrics
	router   chi.Router
	http     *http.Server
}

// New builds a Server around engine. Nothing listens until Start.
func New(engine Predictor, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		validate: model.NewValidator(),
		metrics:  newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/predict/batch", s.handlePredictBatch)
	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server stops.
// A clean Shutdown returns nil.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.cfg.Addr, "metrics", s.cfg.Metrics)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var in model.Input
	if !s.decode(w, r, &in) {
		return
	}

	start := time.Now()
	pred, err := s.engine.Process(in.Record())
	s.metrics.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	s.metrics.observe(pred.HeartDisease)
	s.record(r.Context(), pred)
	writeJSON(w, http.StatusOK, predictResponse{HeartDisease: pred.HeartDisease})
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	records := make([]model.Record, len(req.Records))
	for i, rec := range req.Records {
		records[i] = rec.Record()
	}

	start := time.Now()
	preds, err := s.engine.ProcessBatch(records)
	s.metrics.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	labels := make([]int, len(preds))
	for i, p := range preds {
		labels[i] = p.HeartDisease
		s.record(r.Context(), p)
	}
	s.metrics.observe(labels...)
	writeJSON(w, http.StatusOK, batchResponse{HeartDisease: labels})
}

// decode reads and validates the body into dst. On failure it writes the
// error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.metrics.fail("decode")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}

	err := s.validate.Struct(dst)
	if err == nil {
		return true
	}
	s.metrics.fail("validation")
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = rule(fe)
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
	return false
}

func (s *Server) engineError(w http.ResponseWriter, r *http.Request, err error) {
	s.metrics.fail("engine")
	slog.Error("prediction failed",
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
}

func (s *Server) record(ctx context.Context, p model.Prediction) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Write(ctx, p); err != nil {
		slog.Warn("audit write failed", "id", p.ID, "error", err)
	}
}

// fieldPath drops the top-level struct name: "Input.age" -> "age".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "status", status, "error", err)
	}
}
