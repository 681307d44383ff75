// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the
// Telegram bot, the approval workflow, and observability.
package config

import (
	"errors"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "invitegate")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BotConfig defines the Telegram bot settings.
type BotConfig struct {
	Enabled     bool          // BOT_ENABLED, defaults to true when BOT_TOKEN is set
	Token       string        // BOT_TOKEN
	Debug       bool          // BOT_DEBUG, logs raw Bot API traffic
	Workers     int           // BOT_WORKERS, concurrent update handlers
	PollTimeout time.Duration // POLL_TIMEOUT, long-poll timeout
	SessionTTL  time.Duration // SESSION_TTL, idle time before a menu mode is forgotten
	UserRPS     float64       // USER_RPS, per-user message rate (0 disables)
	UserBurst   int           // USER_BURST
}

// WorkflowConfig defines the approval workflow settings.
type WorkflowConfig struct {
	AdminChatID      int64         // ADMIN_CHAT_ID, operators' chat
	TargetGroupID    int64         // TARGET_GROUP_ID, group invites lead into
	InviteTTL        time.Duration // INVITE_TTL
	InviteUsageLimit int           // INVITE_USAGE_LIMIT
	CallTimeout      time.Duration // CALL_TIMEOUT, bound on each Telegram call
	ClaimStaleAfter  time.Duration // CLAIM_STALE_AFTER, age after which a claim may be taken over
	DispatchQueue    int           // DISPATCH_QUEUE, best-effort notification buffer
	DispatchWorkers  int           // DISPATCH_WORKERS, 0 runs notifications inline
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / API
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIEnabled  bool   // mount the admin API, defaults to true when ADMIN_API_KEY is set
	APIBasePath string // base path for API routes
	AdminAPIKey string // X-API-Key expected by the admin API

	// App
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Telegram + workflow
	Bot      BotConfig
	Workflow WorkflowConfig

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
	token := strings.TrimSpace(getenv("BOT_TOKEN", ""))
	apiKey := strings.TrimSpace(getenv("ADMIN_API_KEY", ""))

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / API
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIEnabled:  getbool("API_ENABLED", apiKey != ""),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		AdminAPIKey: apiKey,

		// App
		DBPath: getenv("DB_PATH", "invitegate.db"),

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

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Telegram
		Bot: BotConfig{
			Enabled:     getbool("BOT_ENABLED", token != ""),
			Token:       token,
			Debug:       getbool("BOT_DEBUG", false),
			Workers:     getint("BOT_WORKERS", 8),
			PollTimeout: getdur("POLL_TIMEOUT", 60*time.Second),
			SessionTTL:  getdur("SESSION_TTL", 30*time.Minute),
			UserRPS:     getfloat("USER_RPS", 1.0),
			UserBurst:   getint("USER_BURST", 5),
		},
		Workflow: WorkflowConfig{
			AdminChatID:      getint64("ADMIN_CHAT_ID", 0),
			TargetGroupID:    getint64("TARGET_GROUP_ID", 0),
			InviteTTL:        getdur("INVITE_TTL", 30*time.Minute),
			InviteUsageLimit: getint("INVITE_USAGE_LIMIT", 1),
			CallTimeout:      getdur("CALL_TIMEOUT", 10*time.Second),
			ClaimStaleAfter:  getdur("CLAIM_STALE_AFTER", 2*time.Minute),
			DispatchQueue:    getint("DISPATCH_QUEUE", 256),
			DispatchWorkers:  getint("DISPATCH_WORKERS", 4),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "invitegate"),
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
	if cfg.APIEnabled && cfg.AdminAPIKey == "" {
		return cfg, errors.New("ADMIN_API_KEY is required when API_ENABLED is set")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Bot.Enabled {
		if cfg.Bot.Token == "" {
			return cfg, errors.New("BOT_TOKEN is required when BOT_ENABLED is set")
		}
		if cfg.Workflow.AdminChatID == 0 {
			return cfg, errors.New("ADMIN_CHAT_ID is required when the bot is enabled")
		}
		if cfg.Workflow.TargetGroupID == 0 {
			return cfg, errors.New("TARGET_GROUP_ID is required when the bot is enabled")
		}
	}
	if cfg.Bot.Workers < 1 {
		return cfg, errors.New("BOT_WORKERS must be >= 1")
	}
	if cfg.Bot.PollTimeout < time.Second {
		return cfg, errors.New("POLL_TIMEOUT must be >= 1s")
	}
	if cfg.Bot.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.Bot.UserRPS < 0 {
		return cfg, errors.New("USER_RPS must be >= 0")
	}
	if cfg.Workflow.InviteTTL <= 0 {
		return cfg, errors.New("INVITE_TTL must be > 0")
	}
	if cfg.Workflow.InviteUsageLimit < 1 || cfg.Workflow.InviteUsageLimit > 99999 {
		return cfg, errors.New("INVITE_USAGE_LIMIT must be in [1,99999]")
	}
	if cfg.Workflow.CallTimeout <= 0 {
		return cfg, errors.New("CALL_TIMEOUT must be > 0")
	}
	if cfg.Workflow.ClaimStaleAfter <= cfg.Workflow.CallTimeout*2 {
		return cfg, errors.New("CLAIM_STALE_AFTER must exceed twice CALL_TIMEOUT")
	}
	if cfg.Workflow.DispatchQueue < 1 {
		return cfg, errors.New("DISPATCH_QUEUE must be >= 1")
	}
	if cfg.Workflow.DispatchWorkers < 0 {
		return cfg, errors.New("DISPATCH_WORKERS must be >= 0")
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

// getint64 parses Telegram chat ids, which are negative for groups and may
// exceed 32 bits.
func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
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
