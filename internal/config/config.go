// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the Telegram bot token, catalog API access, database path, logging,
// pagination, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "cinema-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// OpsConfig defines the internal operations HTTP listener (health, metrics).
type OpsConfig struct {
	Enabled bool   // OPS_ENABLED
	Port    string // OPS_PORT, just the number
	GinMode string // GIN_MODE: debug|release|test
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken      string        // BOT_TOKEN (required)
	UpdateTimeout time.Duration // long-poll timeout, e.g. 30s

	// Catalog
	KinopoiskToken   string // KINOPOISK_API_TOKEN (required)
	KinopoiskBaseURL string // KINOPOISK_BASE_URL

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath      string // SQLite path
	TextsDir    string // directory with static reply texts
	PerPage     int    // items per history/stats page
	SearchLimit int    // max catalog candidates shown per search

	// Ops / Observability
	Ops  OpsConfig
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Telegram
		BotToken:      getenv("BOT_TOKEN", ""),
		UpdateTimeout: getdur("UPDATE_TIMEOUT", 30*time.Second),

		// Catalog
		KinopoiskToken:   getenv("KINOPOISK_API_TOKEN", ""),
		KinopoiskBaseURL: strings.TrimRight(getenv("KINOPOISK_BASE_URL", "https://api.kinopoisk.dev/v1.4"), "/"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:      getenv("DB_PATH", "cinema_bot.db"),
		TextsDir:    getenv("TEXTS_DIR", "texts"),
		PerPage:     getint("PER_PAGE", 5),
		SearchLimit: getint("SEARCH_LIMIT", 5),

		// Ops
		Ops: OpsConfig{
			Enabled: getbool("OPS_ENABLED", false),
			Port:    getenv("OPS_PORT", "8081"),
			GinMode: strings.ToLower(getenv("GIN_MODE", "release")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "cinema-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.Ops.GinMode {
	case "debug", "release", "test":
	default:
		cfg.Ops.GinMode = "release"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.KinopoiskToken) == "" {
		return cfg, errors.New("KINOPOISK_API_TOKEN must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.UpdateTimeout <= 0 {
		return cfg, errors.New("UPDATE_TIMEOUT must be a positive duration")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.TextsDir) == "" {
		return cfg, errors.New("TEXTS_DIR must not be empty")
	}
	if cfg.PerPage < 1 {
		return cfg, errors.New("PER_PAGE must be >= 1")
	}
	if cfg.SearchLimit < 1 || cfg.SearchLimit > 10 {
		return cfg, errors.New("SEARCH_LIMIT must be between 1 and 10")
	}
	if cfg.Ops.Enabled && strings.TrimSpace(cfg.Ops.Port) == "" {
		return cfg, errors.New("OPS_PORT must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
