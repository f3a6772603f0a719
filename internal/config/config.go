// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage selection, token verification, per-bucket rate limits
// and observability settings.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "hospitality-backoffice")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines bearer token verification and role lookup settings.
type AuthConfig struct {
	JWTSecret         string        // AUTH_JWT_SECRET (required)
	Issuer            string        // AUTH_JWT_ISSUER (optional)
	Audience          string        // AUTH_JWT_AUDIENCE (optional)
	Leeway            time.Duration // AUTH_JWT_LEEWAY
	RoleClaim         string        // AUTH_ROLE_CLAIM
	VerifyTimeout     time.Duration // AUTH_VERIFY_TIMEOUT
	RoleLookupTimeout time.Duration // ROLE_LOOKUP_TIMEOUT
	BootstrapAdminID  string        // BOOTSTRAP_ADMIN_ID (optional)
}

// DBConfig selects the relational database.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite path
	URL    string // Postgres DSN
}

// RedisConfig defines the Redis connection used by the redis rate store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateRule is one bucket's budget: Limit requests per Window.
type RateRule struct {
	Limit  int
	Window time.Duration
}

// RateConfig defines the rate limit store and per-bucket budgets.
type RateConfig struct {
	Store         string        // db|redis|memory
	StoreTimeout  time.Duration // bound on a single store call
	KeyBy         string        // principal|address for the read and write buckets
	SweepInterval time.Duration // expired record sweeping period
	SweepBatch    int           // rows deleted per sweep statement

	Read  RateRule
	Write RateRule
	Admin RateRule
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful drain on SIGINT/SIGTERM
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test
	TrustedProxies    []string      // peers allowed to set X-Forwarded-For; empty trusts none

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB    DBConfig
	Redis RedisConfig

	// Gatekeeping
	Auth AuthConfig
	Rate RateConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		TrustedProxies:    splitCSV(getenv("TRUSTED_PROXIES", "")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "app.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		// Gatekeeping
		Auth: AuthConfig{
			JWTSecret:         getenv("AUTH_JWT_SECRET", ""),
			Issuer:            getenv("AUTH_JWT_ISSUER", ""),
			Audience:          getenv("AUTH_JWT_AUDIENCE", ""),
			Leeway:            getdur("AUTH_JWT_LEEWAY", 30*time.Second),
			RoleClaim:         getenv("AUTH_ROLE_CLAIM", "role"),
			VerifyTimeout:     getdur("AUTH_VERIFY_TIMEOUT", 3*time.Second),
			RoleLookupTimeout: getdur("ROLE_LOOKUP_TIMEOUT", 2*time.Second),
			BootstrapAdminID:  strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_ID", "")),
		},
		Rate: RateConfig{
			Store:         strings.ToLower(getenv("RATE_STORE", "db")),
			StoreTimeout:  getdur("RATE_STORE_TIMEOUT", 2*time.Second),
			KeyBy:         strings.ToLower(getenv("RATE_KEY_BY", "principal")),
			SweepInterval: getdur("RATE_SWEEP_INTERVAL", time.Minute),
			SweepBatch:    getint("RATE_SWEEP_BATCH", 500),
			Read: RateRule{
				Limit:  getint("RATE_READ_LIMIT", 120),
				Window: getdur("RATE_READ_WINDOW", time.Minute),
			},
			Write: RateRule{
				Limit:  getint("RATE_WRITE_LIMIT", 30),
				Window: getdur("RATE_WRITE_WINDOW", time.Minute),
			},
			Admin: RateRule{
				Limit:  getint("RATE_ADMIN_LIMIT", 10),
				Window: getdur("RATE_ADMIN_WINDOW", time.Minute),
			},
		},

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
			ServiceName: getenv("OTEL_SERVICE_NAME", "hospitality-backoffice"),
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
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.Rate.KeyBy == "ip" {
		cfg.Rate.KeyBy = "address"
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
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			return cfg, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
		}
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return cfg, errors.New("AUTH_JWT_SECRET is required")
	}
	if strings.TrimSpace(cfg.Auth.RoleClaim) == "" {
		return cfg, errors.New("AUTH_ROLE_CLAIM must not be empty")
	}
	if cfg.Auth.VerifyTimeout <= 0 || cfg.Auth.RoleLookupTimeout <= 0 {
		return cfg, errors.New("AUTH_VERIFY_TIMEOUT and ROLE_LOOKUP_TIMEOUT must be positive durations")
	}
	if cfg.Auth.Leeway < 0 {
		return cfg, errors.New("AUTH_JWT_LEEWAY must be >= 0")
	}

	switch cfg.Rate.Store {
	case "db", "memory":
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return cfg, errors.New("REDIS_ADDR is required when RATE_STORE=redis")
		}
	default:
		return cfg, errors.New("RATE_STORE must be one of: db, redis, memory")
	}
	switch cfg.Rate.KeyBy {
	case "principal", "address":
	default:
		return cfg, errors.New("RATE_KEY_BY must be one of: principal, address")
	}
	if cfg.Rate.StoreTimeout <= 0 {
		return cfg, errors.New("RATE_STORE_TIMEOUT must be a positive duration")
	}
	if cfg.Rate.SweepInterval <= 0 || cfg.Rate.SweepBatch < 1 {
		return cfg, errors.New("RATE_SWEEP_INTERVAL must be positive and RATE_SWEEP_BATCH >= 1")
	}
	for name, r := range map[string]RateRule{"READ": cfg.Rate.Read, "WRITE": cfg.Rate.Write, "ADMIN": cfg.Rate.Admin} {
		if r.Limit < 1 {
			return cfg, fmt.Errorf("RATE_%s_LIMIT must be >= 1", name)
		}
		if r.Window <= 0 {
			return cfg, fmt.Errorf("RATE_%s_WINDOW must be a positive duration", name)
		}
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

// validProxy accepts the forms gin.Engine.SetTrustedProxies accepts.
func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
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
