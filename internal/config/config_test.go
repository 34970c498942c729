package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"FINNHUB_API_KEY", "FINNHUB_BASE_URL", "REDIS_URL", "CACHE_TTL_SECS",
	"ANALYSIS_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "GEMINI_API_KEY", "GEMINI_MODEL",
	"CHART_TIMEZONE", "HTTP_PORT", "API_KEY", "TELEGRAM_BOT_TOKEN",
	"WARM_SYMBOLS", "WARM_POLL_SECS",
	"MCP_TRANSPORT", "MCP_HTTP_BIND", "MCP_HTTP_PORT", "MCP_AUTH_TOKEN",
	"TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.CacheTTLSecs != 60 || cfg.CacheTTL() != time.Minute {
		t.Fatalf("expected 60s cache ttl, got %d", cfg.CacheTTLSecs)
	}
	if cfg.AnalysisProvider != "auto" || cfg.OpenAIModel != "gpt-4o-mini" || cfg.GeminiModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected analysis defaults: %+v", cfg)
	}
	if cfg.HTTPPort != 8080 || cfg.WarmPollSecs != 60 {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if strings.Join(cfg.WarmSymbols, ",") != "AAPL,MSFT,GOOGL" {
		t.Fatalf("expected default warm symbols, got %v", cfg.WarmSymbols)
	}
	if cfg.MCPTransport != "stdio" || cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected mcp defaults: %+v", cfg)
	}
	if cfg.TracingEnabled || cfg.OTLPEndpoint != "localhost:4317" {
		t.Fatalf("unexpected tracing defaults: %+v", cfg)
	}
	if cfg.Location() != time.Local {
		t.Fatal("expected local time zone by default")
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINNHUB_API_KEY", " fh-key ")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("CACHE_TTL_SECS", "120")
	t.Setenv("ANALYSIS_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CHART_TIMEZONE", "America/New_York")
	t.Setenv("WARM_SYMBOLS", "aapl, msft,,nvda")
	t.Setenv("MCP_TRANSPORT", "HTTP")
	t.Setenv("TRACING_ENABLED", "TRUE")

	cfg := Load()
	if cfg.FinnhubAPIKey != "fh-key" || cfg.RedisURL != "redis:6379" || cfg.CacheTTLSecs != 120 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AnalysisProvider != "gemini" || cfg.GeminiAPIKey != "g-key" {
		t.Fatalf("unexpected analysis config: %+v", cfg)
	}
	if strings.Join(cfg.WarmSymbols, ",") != "AAPL,MSFT,NVDA" {
		t.Fatalf("unexpected warm symbols: %v", cfg.WarmSymbols)
	}
	if cfg.MCPTransport != "http" || !cfg.TracingEnabled {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("unexpected location: %s", cfg.Location())
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL_SECS", "bad")
	t.Setenv("HTTP_PORT", "-1")
	t.Setenv("ANALYSIS_PROVIDER", "claude")
	t.Setenv("MCP_TRANSPORT", "grpc")
	t.Setenv("CHART_TIMEZONE", "Mars/Olympus")

	cfg := Load()
	if cfg.CacheTTLSecs != 60 || cfg.HTTPPort != 8080 {
		t.Fatalf("invalid numbers should fall back to defaults: %+v", cfg)
	}
	if cfg.AnalysisProvider != "auto" || cfg.MCPTransport != "stdio" {
		t.Fatalf("invalid enums should fall back: %+v", cfg)
	}
	if cfg.Location() != time.Local {
		t.Fatal("invalid time zone should fall back to local")
	}
}

func TestLoadWarmSymbolsDisabled(t *testing.T) {
	for _, raw := range []string{"none", " NONE ", ", ,"} {
		clearEnv(t)
		t.Setenv("WARM_SYMBOLS", raw)

		if got := Load().WarmSymbols; len(got) != 0 {
			t.Fatalf("WARM_SYMBOLS=%q: expected warmer disabled, got %v", raw, got)
		}
	}
}
