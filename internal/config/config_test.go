package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / API
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("ADMIN_API_KEY", " s3cret ")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "db.sqlite")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Idempotency
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// Telegram + workflow
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BOT_WORKERS", "3")
	t.Setenv("POLL_TIMEOUT", "30s")
	t.Setenv("USER_RPS", "0.5")
	t.Setenv("ADMIN_CHAT_ID", "-1003893914544")
	t.Setenv("TARGET_GROUP_ID", " -1002000000001 ")
	t.Setenv("INVITE_TTL", "15m")
	t.Setenv("CALL_TIMEOUT", "5s")
	t.Setenv("DISPATCH_WORKERS", "0")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / API
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging unexpected: %+v", cfg)
	}
	if !cfg.APIEnabled || cfg.AdminAPIKey != "s3cret" {
		t.Fatalf("api key should enable the API and be trimmed: %+v", cfg)
	}

	// App
	if cfg.DBPath != "db.sqlite" {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// Idempotency
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}

	// Telegram
	if !cfg.Bot.Enabled || cfg.Bot.Token != "123:abc" || cfg.Bot.Workers != 3 ||
		cfg.Bot.PollTimeout != 30*time.Second || cfg.Bot.UserRPS != 0.5 || cfg.Bot.SessionTTL != 30*time.Minute {
		t.Fatalf("bot unexpected: %+v", cfg.Bot)
	}

	// Workflow
	w := cfg.Workflow
	if w.AdminChatID != -1003893914544 || w.TargetGroupID != -1002000000001 ||
		w.InviteTTL != 15*time.Minute || w.InviteUsageLimit != 1 ||
		w.CallTimeout != 5*time.Second || w.ClaimStaleAfter != 2*time.Minute ||
		w.DispatchQueue != 256 || w.DispatchWorkers != 0 {
		t.Fatalf("workflow unexpected: %+v", w)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"api without key", map[string]string{"API_ENABLED": "true"}, "ADMIN_API_KEY"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"bot without token", map[string]string{"BOT_ENABLED": "1"}, "BOT_TOKEN"},
		{"bot without admin chat", map[string]string{"BOT_TOKEN": "t", "TARGET_GROUP_ID": "-2"}, "ADMIN_CHAT_ID"},
		{"bot without target group", map[string]string{"BOT_TOKEN": "t", "ADMIN_CHAT_ID": "-1"}, "TARGET_GROUP_ID"},
		{"bot workers < 1", map[string]string{"BOT_WORKERS": "0"}, "BOT_WORKERS"},
		{"poll timeout too short", map[string]string{"POLL_TIMEOUT": "500ms"}, "POLL_TIMEOUT"},
		{"session ttl non-positive", map[string]string{"SESSION_TTL": "0s"}, "SESSION_TTL"},
		{"user rps negative", map[string]string{"USER_RPS": "-2"}, "USER_RPS"},
		{"invite ttl non-positive", map[string]string{"INVITE_TTL": "0s"}, "INVITE_TTL"},
		{"usage limit zero", map[string]string{"INVITE_USAGE_LIMIT": "0"}, "INVITE_USAGE_LIMIT"},
		{"usage limit too high", map[string]string{"INVITE_USAGE_LIMIT": "100000"}, "INVITE_USAGE_LIMIT"},
		{"call timeout non-positive", map[string]string{"CALL_TIMEOUT": "0s"}, "CALL_TIMEOUT"},
		{"stale window too short", map[string]string{"CALL_TIMEOUT": "30s", "CLAIM_STALE_AFTER": "1m"}, "CLAIM_STALE_AFTER"},
		{"dispatch queue < 1", map[string]string{"DISPATCH_QUEUE": "0"}, "DISPATCH_QUEUE"},
		{"dispatch workers negative", map[string]string{"DISPATCH_WORKERS": "-1"}, "DISPATCH_WORKERS"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearBotEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	// Note: API_BASE_PATH validation is effectively unreachable due to normalizeBasePath
	// always ensuring a leading '/' and returning "/" for empty input.
}

func TestLoad_BotAndAPIDisabledByDefault(t *testing.T) {
	clearBotEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Bot.Enabled || cfg.APIEnabled {
		t.Fatalf("bot/api should be off without credentials: bot=%v api=%v", cfg.Bot.Enabled, cfg.APIEnabled)
	}

	t.Setenv("BOT_TOKEN", "t")
	t.Setenv("BOT_ENABLED", "false")
	if cfg, err = Load(); err != nil || cfg.Bot.Enabled {
		t.Fatalf("explicit BOT_ENABLED=false should win: enabled=%v err=%v", cfg.Bot.Enabled, err)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getint64(t *testing.T) {
	t.Setenv("I64_VALID", "-1003893914544")
	if getint64("I64_VALID", 0) != -1003893914544 {
		t.Fatalf("getint64 parse failed")
	}
	t.Setenv("I64_BAD", "-100x")
	if getint64("I64_BAD", 9) != 9 {
		t.Fatalf("getint64 default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	// normalizeBasePath
	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

// clearBotEnv blanks credentials that may leak in from the host environment.
func clearBotEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BOT_TOKEN", "BOT_ENABLED", "ADMIN_API_KEY", "API_ENABLED", "ADMIN_CHAT_ID", "TARGET_GROUP_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults_APIBasePathAndWorkflow(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("API_BASE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	// default per code is "/api/v1"
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.Workflow.InviteTTL != 30*time.Minute || cfg.Workflow.InviteUsageLimit != 1 || cfg.Workflow.CallTimeout != 10*time.Second {
		t.Fatalf("invite defaults unexpected: %+v", cfg.Workflow)
	}
	if cfg.OTEL.ServiceName != "invitegate" || cfg.DBPath != "invitegate.db" {
		t.Fatalf("naming defaults unexpected: %q %q", cfg.OTEL.ServiceName, cfg.DBPath)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	clearBotEnv(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
