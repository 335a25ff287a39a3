package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ProviderGemini, cfg.Oracle.Provider)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 1, cfg.Oracle.MaxAttempts)
	assert.True(t, cfg.Review.AllowReopen)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
oracle:
  provider: openai
  timeout: 5s
  max_attempts: 3
resume:
  upload_dir: /tmp/resumes
`)
	t.Setenv("ORACLE_MAX_ATTEMPTS", "2")
	t.Setenv("REVIEW_ALLOW_REOPEN", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, ProviderOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 2, cfg.Oracle.MaxAttempts)
	assert.Equal(t, "/tmp/resumes", cfg.Resume.UploadDir)
	assert.False(t, cfg.Review.AllowReopen)
}

func TestLoadConfig_GeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-secret", cfg.Oracle.Key())

	cfg.Oracle.APIKey = "explicit"
	assert.Equal(t, "explicit", cfg.Oracle.Key())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{MaxUploadBytes: 1024},
			Database: DatabaseConfig{Driver: DriverSQLite, SQLitePath: "referrals.db"},
			Oracle:   OracleConfig{Provider: ProviderGemini, Timeout: time.Second, MaxAttempts: 1},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"mysql without dsn", func(c *Config) { c.Database.Driver = DriverMySQL }, "DB_DSN"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "unknown database driver"},
		{"unknown provider", func(c *Config) { c.Oracle.Provider = "llama" }, "unknown oracle provider"},
		{"vertex without project", func(c *Config) { c.Oracle.Provider = ProviderVertex }, "VERTEX_PROJECT"},
		{"zero attempts", func(c *Config) { c.Oracle.MaxAttempts = 0 }, "max_attempts"},
		{"zero timeout", func(c *Config) { c.Oracle.Timeout = 0 }, "timeout"},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
