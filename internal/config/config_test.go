package config

import (
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so defaults are exercised even
// when the test host has them exported.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH",
		"DATABASE_URL", "DB_PATH",
		"QUESTION_ENDPOINT", "ANSWER_ENDPOINT", "CLIENT_ENDPOINT",
		"RULES_ENDPOINT", "PRODUCTS_ENDPOINT", "WS_ENDPOINT", "PUBLIC_PORT",
		"WEBHOOK_TIMEOUT", "PRODUCT_TIMEOUT",
		"RATE_RPS", "RATE_BURST",
		"FRONTEND_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8001" {
		t.Fatalf("Port: %q", cfg.Port)
	}
	if cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("mode/level: %q %q", cfg.GinMode, cfg.LogLevel)
	}
	if cfg.DBPath != "agent.db" || cfg.DatabaseURL != "" {
		t.Fatalf("db defaults: %q %q", cfg.DBPath, cfg.DatabaseURL)
	}
	if cfg.APIBasePath != "/api" {
		t.Fatalf("APIBasePath: %q", cfg.APIBasePath)
	}
	if cfg.Bridge.QuestionPath != "/question" || cfg.Bridge.WSPath != "/ws" {
		t.Fatalf("bridge paths: %+v", cfg.Bridge)
	}
	if cfg.Bridge.PublicPort != cfg.Port {
		t.Fatalf("PublicPort must default to Port, got %q", cfg.Bridge.PublicPort)
	}
	if cfg.WebhookTimeout != 10*time.Second || cfg.ProductTimeout != 10*time.Second {
		t.Fatalf("outbound timeouts: %v %v", cfg.WebhookTimeout, cfg.ProductTimeout)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate defaults: %v %v", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1.0 {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_NormalizesPathsAndAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUESTION_ENDPOINT", "ask/")
	t.Setenv("API_BASE_PATH", "api/v1/")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bridge.QuestionPath != "/ask" {
		t.Fatalf("QuestionPath: %q", cfg.Bridge.QuestionPath)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath: %q", cfg.APIBasePath)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel: %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("unknown GIN_MODE must fall back to release, got %q", cfg.GinMode)
	}
}

func TestLoad_PublicPortOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PUBLIC_PORT", "443")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.Bridge.PublicPort != "443" {
		t.Fatalf("ports: %q %q", cfg.Port, cfg.Bridge.PublicPort)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}},
		{"negative rate", map[string]string{"RATE_RPS": "-1"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}},
		{"duplicate bridge paths", map[string]string{"ANSWER_ENDPOINT": "/question"}},
		{"root bridge path", map[string]string{"RULES_ENDPOINT": "/"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_CORSOriginsSplit(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTEND_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.CORS.AllowedOrigins
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("origins: %v", got)
	}
}
