// Package app assembles the quote service shared by the HTTP server and the
// MCP binary.
package app

import (
	"context"
	"fmt"
	"log"

	"stockpulse/internal/advisor"
	"stockpulse/internal/chart"
	"stockpulse/internal/config"
	"stockpulse/internal/provider"
	"stockpulse/internal/service"

	"go.opentelemetry.io/otel/trace"
)

var newGeneratorFunc = advisor.NewGenerator

type Deps struct {
	Quotes *service.QuoteService
	// AnalysisProvider names the active generator, or "" when analysis
	// always comes from the fallback.
	AnalysisProvider string
}

// Build wires market data, analysis and chart synthesis from cfg.
// responseCache may be nil.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer, responseCache provider.ResponseCache, recorder service.Recorder) (*Deps, error) {
	market := provider.NewFinnhubProvider(tracer, cfg.FinnhubAPIKey, cfg.FinnhubBaseURL, responseCache, cfg.CacheTTL())

	generator, err := newGeneratorFunc(ctx, advisor.GeneratorConfig{
		Provider:     cfg.AnalysisProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	})
	if err != nil {
		return nil, fmt.Errorf("configure analysis provider: %w", err)
	}

	deps := &Deps{}
	if generator != nil {
		deps.AnalysisProvider = generator.Name()
		log.Printf("analysis provider: %s", deps.AnalysisProvider)
	} else {
		log.Println("analysis provider: none, using fallback analysis")
	}

	loc := cfg.Location()
	deps.Quotes = service.NewQuoteService(
		tracer,
		market,
		advisor.NewService(tracer, generator),
		chart.NewSynthesizer(loc),
		recorder,
		loc,
	)
	return deps, nil
}
