package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

var defaultWarmSymbols = []string{"AAPL", "MSFT", "GOOGL"}

type Config struct {
	FinnhubAPIKey  string
	FinnhubBaseURL string
	RedisURL       string
	CacheTTLSecs   int

	AnalysisProvider string
	OpenAIAPIKey     string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string

	ChartTimezone string

	HTTPPort         int
	APIKey           string
	TelegramBotToken string

	WarmSymbols  []string
	WarmPollSecs int

	MCPTransport string
	MCPHTTPBind  string
	MCPHTTPPort  int
	MCPAuthToken string

	TracingEnabled bool
	OTLPEndpoint   string
}

func Load() *Config {
	cfg := &Config{
		FinnhubAPIKey:    strings.TrimSpace(os.Getenv("FINNHUB_API_KEY")),
		FinnhubBaseURL:   strings.TrimSpace(os.Getenv("FINNHUB_BASE_URL")),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ChartTimezone:    strings.TrimSpace(os.Getenv("CHART_TIMEZONE")),
		APIKey:           os.Getenv("API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.FinnhubAPIKey == "" {
		log.Println("Warning: FINNHUB_API_KEY not set, every stock request will fail")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	cfg.CacheTTLSecs = positiveInt("CACHE_TTL_SECS", 60)

	cfg.AnalysisProvider = strings.ToLower(strings.TrimSpace(os.Getenv("ANALYSIS_PROVIDER")))
	switch cfg.AnalysisProvider {
	case "":
		cfg.AnalysisProvider = "auto"
	case "auto", "openai", "gemini", "none":
	default:
		log.Printf("Warning: unsupported ANALYSIS_PROVIDER=%q, defaulting to auto", cfg.AnalysisProvider)
		cfg.AnalysisProvider = "auto"
	}
	if cfg.AnalysisProvider != "none" && cfg.OpenAIAPIKey == "" && cfg.GeminiAPIKey == "" {
		log.Println("Warning: neither GEMINI_API_KEY nor OPENAI_API_KEY set, analysis will use the fallback")
	}

	cfg.OpenAIModel = stringOr("OPENAI_MODEL", "gpt-4o-mini")
	cfg.GeminiModel = stringOr("GEMINI_MODEL", "gemini-2.5-flash")

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)

	cfg.WarmSymbols = warmSymbols(os.Getenv("WARM_SYMBOLS"))
	cfg.WarmPollSecs = positiveInt("WARM_POLL_SECS", 60)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPBind = stringOr("MCP_HTTP_BIND", "127.0.0.1")
	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)

	cfg.TracingEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "true")
	cfg.OTLPEndpoint = stringOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	return cfg
}

// Location resolves ChartTimezone, falling back to the process's local zone.
func (c *Config) Location() *time.Location {
	if c.ChartTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.ChartTimezone)
	if err != nil {
		log.Printf("Warning: invalid CHART_TIMEZONE=%q (%v), using local time", c.ChartTimezone, err)
		return time.Local
	}
	return loc
}

// CacheTTL is CacheTTLSecs as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

func positiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// warmSymbols defaults to the dashboard watchlist. "none" disables warming.
func warmSymbols(raw string) []string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return append([]string(nil), defaultWarmSymbols...)
	case strings.EqualFold(raw, "none"):
		return nil
	}
	return splitSymbols(raw)
}

func splitSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
