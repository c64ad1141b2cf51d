package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// chdirTemp keeps a developer's .env from leaking into the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "GEMINI_API_KEY", "GEMINI_MODEL", "PROMPT_FILE",
		"DATABASE_URL", "PGHOST", "PGPORT", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"POSTGRES_DB", "PGSSLMODE", "CACHE_MAX_AGE", "TELEGRAM_BOT_TOKEN",
		"ANALYZE_TIMEOUT", "MAX_VIDEO_MB", "WEBHOOK_URL", "ANALYSIS_RETENTION",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 180*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, int64(20<<20), cfg.MaxVideoBytes)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention)
	assert.Equal(t, 24*time.Hour, cfg.CacheMaxAge)
}

func TestLoad_Overrides(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("ANALYZE_TIMEOUT", "45s")
	t.Setenv("MAX_VIDEO_MB", "5")
	t.Setenv("PGHOST", "db")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "k", cfg.GeminiAPIKey)
	assert.Equal(t, 45*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, int64(5<<20), cfg.MaxVideoBytes)
	assert.Equal(t, "postgres://coach:secret@db:5432/coach?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "host=db port=5432 db=coach user=coach", SafeDSNSummary(cfg.DatabaseURL))
}

func TestLoad_DotEnv(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	os.Unsetenv("GEMINI_MODEL")
	require.NoError(t, os.WriteFile(".env", []byte("GEMINI_MODEL=gemini-test\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.GeminiModel)
}

func TestLoad_BadValues(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("ANALYZE_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "ANALYZE_TIMEOUT")

	t.Setenv("ANALYZE_TIMEOUT", "")
	t.Setenv("MAX_VIDEO_MB", "-1")
	_, err = Load()
	assert.ErrorContains(t, err, "MAX_VIDEO_MB")
}

func TestConfig_Logger(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	log, err := cfg.Logger()
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	cfg.LogLevel = "warn"
	log, err = cfg.Logger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	cfg.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
