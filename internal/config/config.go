package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/crimson-sun/cardio/internal/engine/artifacts"
)

// Config holds all cardio configuration.
type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Audit  AuditConfig
	Log    LogConfig
}

// ServerConfig holds HTTP serving settings.
type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Metrics         bool
}

// EngineConfig holds model artifact settings.
type EngineConfig struct {
	ModelDir    string
	Backend     string // "linear" or "onnx"
	ONNXLibrary string
}

// AuditConfig controls the prediction audit trail.
type AuditConfig struct {
	Sinks        []string // any of "stdout", "file", "webhook"; empty disables
	Detail       string   // "minimal", "standard" or "full"
	Path         string
	Daily        bool // one file per scoring date
	URL          string
	PositiveOnly bool // webhook receives heart_disease=1 only
	Pretty       bool
	BufferSize   int
	Shed         bool // drop negatives instead of blocking when the buffer is full
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getenv("CARDIO_ADDR", ":8000"),
			CORSOrigins:     getenvList("CARDIO_CORS_ORIGINS", []string{"*"}),
			ReadTimeout:     getenvDuration("CARDIO_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getenvDuration("CARDIO_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getenvDuration("CARDIO_SHUTDOWN_TIMEOUT", 10*time.Second),
			Metrics:         getenvBool("CARDIO_METRICS", true),
		},
		Engine: EngineConfig{
			ModelDir:    getenv("CARDIO_MODEL_DIR", "models"),
			Backend:     getenv("CARDIO_BACKEND", artifacts.BackendLinear),
			ONNXLibrary: os.Getenv("CARDIO_ONNX_LIBRARY"),
		},
		Audit: AuditConfig{
			Sinks:        auditSinks(os.Getenv("CARDIO_AUDIT")),
			Detail:       getenv("CARDIO_AUDIT_DETAIL", "standard"),
			Path:         os.Getenv("CARDIO_AUDIT_PATH"),
			Daily:        getenvBool("CARDIO_AUDIT_DAILY", false),
			URL:          os.Getenv("CARDIO_AUDIT_URL"),
			PositiveOnly: getenvBool("CARDIO_AUDIT_WEBHOOK_POSITIVE_ONLY", false),
			Pretty:       getenvBool("CARDIO_AUDIT_PRETTY", false),
			BufferSize:   getenvInt("CARDIO_AUDIT_BUFFER", 1024),
			Shed:         getenvBool("CARDIO_AUDIT_SHED", false),
		},
		Log: LogConfig{
			Level:  getenv("CARDIO_LOG_LEVEL", "info"),
			Format: getenv("CARDIO_LOG_FORMAT", "text"),
		},
	}
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("CARDIO_ADDR must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"read timeout":     c.Server.ReadTimeout,
		"write timeout":    c.Server.WriteTimeout,
		"shutdown timeout": c.Server.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, d))
		}
	}

	switch c.Engine.Backend {
	case artifacts.BackendLinear, artifacts.BackendONNX:
		scalerPath, modelPath := artifacts.Paths(c.Engine.ModelDir, c.Engine.Backend)
		for _, p := range []string{scalerPath, modelPath} {
			if _, err := os.Stat(p); err != nil {
				errs = append(errs, fmt.Errorf("model artifact not found: %s", p))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be linear or onnx, got %q", c.Engine.Backend))
	}

	for _, sink := range c.Audit.Sinks {
		switch sink {
		case "stdout":
		case "file":
			if c.Audit.Path == "" {
				errs = append(errs, errors.New("CARDIO_AUDIT_PATH is required for the file audit sink"))
			}
		case "webhook":
			if c.Audit.URL == "" {
				errs = append(errs, errors.New("CARDIO_AUDIT_URL is required for the webhook audit sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("audit sink must be stdout, file or webhook, got %q", sink))
		}
	}
	switch c.Audit.Detail {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("audit detail must be minimal, standard or full, got %q", c.Audit.Detail))
	}
	if c.Audit.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("audit buffer must be > 0, got %d", c.Audit.BufferSize))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// auditSinks parses CARDIO_AUDIT. "none" or an empty value disables the trail.
func auditSinks(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" || p == "none" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// getenvList splits a comma-separated value, dropping empty entries.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
