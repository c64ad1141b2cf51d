package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Port     string
	LogLevel string

	GeminiAPIKey string
	GeminiModel  string
	PromptFile   string

	DatabaseURL string
	CacheMaxAge time.Duration
	Retention   time.Duration

	TelegramBotToken string
	WebhookURL       string

	AnalyzeTimeout time.Duration
	MaxVideoBytes  int64
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("bad %s=%q: want a positive duration like 90s", k, v)
	}
	return d, nil
}

func getInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad %s=%q: want a positive integer", k, v)
	}
	return n, nil
}

// Load reads the environment, after merging a .env file when one exists.
// The Gemini key is optional here; callers report its absence per request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := getDuration("ANALYZE_TIMEOUT", 180*time.Second)
	if err != nil {
		return nil, err
	}
	cacheAge, err := getDuration("CACHE_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	retention, err := getDuration("ANALYSIS_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	maxMB, err := getInt("MAX_VIDEO_MB", 20)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PromptFile:   getEnv("PROMPT_FILE", ""),

		DatabaseURL: resolveDSN(),
		CacheMaxAge: cacheAge,
		Retention:   retention,

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		AnalyzeTimeout: timeout,
		MaxVideoBytes:  int64(maxMB) << 20,
	}, nil
}

// resolveDSN prefers DATABASE_URL and otherwise builds a DSN from POSTGRES_*/PG* vars.
// It returns "" when no database is configured at all.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	host := getEnv("PGHOST", "")
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "coach"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "coach"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "disable"),
	}
	return u.String()
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

// Logger builds the production JSON logger at LOG_LEVEL.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bad LOG_LEVEL=%q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
