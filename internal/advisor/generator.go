package advisor

import (
	"context"
	"fmt"
	"strings"
)

// GeneratorConfig selects a generative provider. Provider is one of
// "auto", "openai", "gemini" or "none".
type GeneratorConfig struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

var (
	newOpenAIClientFunc = NewOpenAIClient
	newGeminiClientFunc = NewGeminiClient
)

// NewGenerator builds the configured generator. A nil Generator with a nil
// error means analysis runs on the deterministic fallback only.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "auto" {
		switch {
		case cfg.GeminiAPIKey != "":
			provider = "gemini"
		case cfg.OpenAIAPIKey != "":
			provider = "openai"
		default:
			provider = "none"
		}
	}

	switch provider {
	case "none":
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		return NewOpenAIGenerator(newOpenAIClientFunc(cfg.OpenAIAPIKey), cfg.OpenAIModel), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		models, err := newGeminiClientFunc(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(models, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unsupported analysis provider %q", cfg.Provider)
	}
}
