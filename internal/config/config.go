// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, webhook ingestion, the AI backend,
// quota limits, session verification, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported values for DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported values for QUOTA_BACKEND.
const (
	QuotaBackendSQL   = "sql"
	QuotaBackendRedis = "redis"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-job-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WebhookConfig holds the crawler webhook and dataset fetch settings.
type WebhookConfig struct {
	Secret         string        // WEBHOOK_SECRET, compared with ?token=
	APIFYBaseURL   string        // APIFY_BASE_URL
	APIFYToken     string        // APIFY_TOKEN, dataset read token
	DatasetTimeout time.Duration // DATASET_TIMEOUT
	DefaultSource  string        // DEFAULT_SOURCE
	SourcesFile    string        // SOURCES_FILE, optional actor → source mapping
}

// AIConfig holds the external compute backend settings.
type AIConfig struct {
	BaseURL string        // AI_BACKEND_URL
	Timeout time.Duration // AI_BACKEND_TIMEOUT
}

// QuotaConfig holds the per-user daily quota settings.
type QuotaConfig struct {
	DailyLimit      int           // QUOTA_DAILY_LIMIT
	Backend         string        // sql|redis
	RedisURL        string        // REDIS_URL
	Retention       time.Duration // QUOTA_RETENTION, janitor horizon
	JanitorSchedule string        // JANITOR_SCHEDULE, cron spec
}

// AuthConfig holds session verification settings.
type AuthConfig struct {
	URL           string        // AUTH_URL
	APIKey        string        // AUTH_API_KEY
	SessionCookie string        // SESSION_COOKIE
	Timeout       time.Duration // AUTH_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed AI backend timeout
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN
	DBMaxConns  int    // pool size (postgres)

	Webhook WebhookConfig
	AI      AIConfig
	Quota   QuotaConfig
	Auth    AuthConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
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
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 150*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 2<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		DBPath:      getenv("DB_PATH", "app.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		DBMaxConns:  getint("DB_MAX_CONNS", 10),

		Webhook: WebhookConfig{
			Secret:         getenv("WEBHOOK_SECRET", ""),
			APIFYBaseURL:   strings.TrimRight(getenv("APIFY_BASE_URL", "https://api.apify.com/v2"), "/"),
			APIFYToken:     getenv("APIFY_TOKEN", ""),
			DatasetTimeout: getdur("DATASET_TIMEOUT", 60*time.Second),
			DefaultSource:  strings.ToLower(getenv("DEFAULT_SOURCE", "linkedin")),
			SourcesFile:    getenv("SOURCES_FILE", ""),
		},
		AI: AIConfig{
			BaseURL: strings.TrimRight(getenv("AI_BACKEND_URL", ""), "/"),
			Timeout: getdur("AI_BACKEND_TIMEOUT", 120*time.Second),
		},
		Quota: QuotaConfig{
			DailyLimit:      getint("QUOTA_DAILY_LIMIT", 3),
			Backend:         strings.ToLower(getenv("QUOTA_BACKEND", QuotaBackendSQL)),
			RedisURL:        getenv("REDIS_URL", ""),
			Retention:       getdur("QUOTA_RETENTION", 30*24*time.Hour),
			JanitorSchedule: getenv("JANITOR_SCHEDULE", "@every 6h"),
		},
		Auth: AuthConfig{
			URL:           strings.TrimRight(getenv("AUTH_URL", ""), "/"),
			APIKey:        getenv("AUTH_API_KEY", ""),
			SessionCookie: getenv("SESSION_COOKIE", "sb-access-token"),
			Timeout:       getdur("AUTH_TIMEOUT", 10*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-job-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = DriverPostgres
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.DBMaxConns < 1 {
		return cfg, errors.New("DB_MAX_CONNS must be >= 1")
	}
	if strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return cfg, errors.New("WEBHOOK_SECRET must not be empty")
	}
	if cfg.Webhook.DatasetTimeout <= 0 || cfg.AI.Timeout <= 0 || cfg.Auth.Timeout <= 0 {
		return cfg, errors.New("DATASET_TIMEOUT, AI_BACKEND_TIMEOUT and AUTH_TIMEOUT must be positive durations")
	}
	if cfg.WriteTimeout <= cfg.AI.Timeout {
		return cfg, errors.New("WRITE_TIMEOUT must be longer than AI_BACKEND_TIMEOUT")
	}
	if !isHTTPURL(cfg.AI.BaseURL) {
		return cfg, errors.New("AI_BACKEND_URL must be an http(s) URL")
	}
	if !isHTTPURL(cfg.Auth.URL) {
		return cfg, errors.New("AUTH_URL must be an http(s) URL")
	}
	if cfg.Quota.DailyLimit < 0 {
		return cfg, errors.New("QUOTA_DAILY_LIMIT must be >= 0")
	}
	switch cfg.Quota.Backend {
	case QuotaBackendSQL:
	case QuotaBackendRedis:
		if strings.TrimSpace(cfg.Quota.RedisURL) == "" {
			return cfg, errors.New("REDIS_URL is required when QUOTA_BACKEND=redis")
		}
	default:
		return cfg, errors.New("QUOTA_BACKEND must be one of: sql, redis")
	}
	if cfg.Quota.Retention < 48*time.Hour {
		return cfg, errors.New("QUOTA_RETENTION must be >= 48h")
	}
	if strings.TrimSpace(cfg.Auth.SessionCookie) == "" {
		return cfg, errors.New("SESSION_COOKIE must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
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

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
