package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/cardio/internal/engine/testdata"
)

var allKeys = []string{
	"CARDIO_ADDR", "CARDIO_CORS_ORIGINS", "CARDIO_READ_TIMEOUT", "CARDIO_WRITE_TIMEOUT",
	"CARDIO_SHUTDOWN_TIMEOUT", "CARDIO_METRICS", "CARDIO_MODEL_DIR", "CARDIO_BACKEND",
	"CARDIO_ONNX_LIBRARY", "CARDIO_AUDIT", "CARDIO_AUDIT_PATH", "CARDIO_AUDIT_PRETTY",
	"CARDIO_AUDIT_BUFFER", "CARDIO_AUDIT_DAILY", "CARDIO_AUDIT_URL", "CARDIO_AUDIT_DETAIL",
	"CARDIO_AUDIT_WEBHOOK_POSITIVE_ONLY", "CARDIO_AUDIT_SHED",
	"CARDIO_LOG_LEVEL", "CARDIO_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.Metrics, "metrics enabled by default")

	assert.Equal(t, "models", cfg.Engine.ModelDir)
	assert.Equal(t, "linear", cfg.Engine.Backend)

	assert.Empty(t, cfg.Audit.Sinks)
	assert.Equal(t, "standard", cfg.Audit.Detail)
	assert.Equal(t, 1024, cfg.Audit.BufferSize)
	assert.False(t, cfg.Audit.Daily)
	assert.False(t, cfg.Audit.PositiveOnly)
	assert.False(t, cfg.Audit.Shed)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARDIO_ADDR", ":9090")
	t.Setenv("CARDIO_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CARDIO_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CARDIO_METRICS", "false")
	t.Setenv("CARDIO_BACKEND", "onnx")
	t.Setenv("CARDIO_AUDIT", "File, webhook")
	t.Setenv("CARDIO_AUDIT_URL", "https://audit.example/hook")
	t.Setenv("CARDIO_AUDIT_PATH", "/tmp/audit.ndjson")
	t.Setenv("CARDIO_AUDIT_DAILY", "true")
	t.Setenv("CARDIO_AUDIT_WEBHOOK_POSITIVE_ONLY", "1")
	t.Setenv("CARDIO_AUDIT_SHED", "true")
	t.Setenv("CARDIO_LOG_FORMAT", "json")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.Metrics)
	assert.Equal(t, "onnx", cfg.Engine.Backend)

	assert.Equal(t, []string{"file", "webhook"}, cfg.Audit.Sinks)
	assert.Equal(t, "https://audit.example/hook", cfg.Audit.URL)
	assert.Equal(t, "/tmp/audit.ndjson", cfg.Audit.Path)
	assert.True(t, cfg.Audit.Daily)
	assert.True(t, cfg.Audit.PositiveOnly)
	assert.True(t, cfg.Audit.Shed)

	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARDIO_READ_TIMEOUT", "soon")
	t.Setenv("CARDIO_METRICS", "maybe")
	t.Setenv("CARDIO_AUDIT_BUFFER", "lots")
	t.Setenv("CARDIO_CORS_ORIGINS", " , ")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.Metrics, "metrics should fall back to true")
	assert.Equal(t, 1024, cfg.Audit.BufferSize)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func validConfig(t *testing.T) Config {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, testdata.WriteArtifacts(dir))
	cfg := Load()
	cfg.Engine.ModelDir = dir
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "CARDIO_ADDR"},
		{"negative timeout", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "shutdown timeout"},
		{"bad backend", func(c *Config) { c.Engine.Backend = "tensorflow" }, "backend"},
		{"missing artifacts", func(c *Config) { c.Engine.ModelDir = "/nonexistent" }, "model artifact"},
		{"onnx without model", func(c *Config) { c.Engine.Backend = "onnx" }, "model.onnx"},
		{"bad sink", func(c *Config) { c.Audit.Sinks = []string{"kafka"} }, "audit sink"},
		{"file without path", func(c *Config) { c.Audit.Sinks = []string{"file"} }, "CARDIO_AUDIT_PATH"},
		{"webhook without url", func(c *Config) { c.Audit.Sinks = []string{"webhook"} }, "CARDIO_AUDIT_URL"},
		{"bad detail", func(c *Config) { c.Audit.Detail = "verbose" }, "audit detail"},
		{"zero buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "audit buffer"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Engine.Backend = "nope"
	cfg.Audit.Sinks = []string{"nope"}
	cfg.Log.Format = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"backend", "audit sink", "log format"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoad_AuditNone(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARDIO_AUDIT", "none")
	assert.Empty(t, Load().Audit.Sinks)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	body := "CARDIO_ADDR=:7070\nCARDIO_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	// godotenv does not override variables that already exist, and clearEnv
	// set them to "", so unset the ones under test.
	os.Unsetenv("CARDIO_ADDR")
	os.Unsetenv("CARDIO_LOG_LEVEL")

	require.NoError(t, LoadEnvFile(path))
	cfg := Load()
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}
