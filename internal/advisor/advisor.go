package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpulse/internal/domain"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxNewsInPrompt = 3
	minInsights     = 3
	maxInsights     = 4
)

// Generator turns a prompt into JSON text using a generative-text provider.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Request is what the generative provider is told about a stock.
type Request struct {
	Symbol        string
	Price         float64
	ChangePercent float64
	News          []domain.NewsItem
}

// Service produces AI commentary for a stock. A Service without a generator
// is valid and always reports no result.
type Service struct {
	tracer    trace.Tracer
	generator Generator
	breaker   *gobreaker.CircuitBreaker[string]
}

func NewService(tracer trace.Tracer, generator Generator) *Service {
	s := &Service{tracer: tracer, generator: generator}
	if generator != nil {
		s.breaker = newBreaker(generator.Name())
	}
	return s
}

// Enabled reports whether a generative provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.generator != nil
}

// Analyze asks the generative provider for an analysis. It never fails: any
// problem, including no provider at all, is logged and reported as ok=false so
// the caller can fall back.
func (s *Service) Analyze(ctx context.Context, req Request) (*domain.Analysis, bool) {
	if !s.Enabled() {
		return nil, false
	}

	ctx, span := s.tracer.Start(ctx, "advisor.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("llm.provider", s.generator.Name()),
	)

	prompt := BuildAnalysisPrompt(req.Symbol, req.Price, req.ChangePercent, headlines(req.News))

	text, err := s.breaker.Execute(func() (string, error) {
		return s.generator.GenerateJSON(ctx, prompt)
	})
	if err != nil {
		span.RecordError(err)
		logGeneratorError(s.generator.Name(), req.Symbol, err)
		return nil, false
	}

	analysis, err := ParseAnalysis(req.Symbol, text)
	if err != nil {
		span.RecordError(err)
		log.Printf("%s analysis for %s unusable: %v", s.generator.Name(), req.Symbol, err)
		return nil, false
	}
	return analysis, true
}

type generatedAnalysis struct {
	Summary   string   `json:"summary"`
	Sentiment string   `json:"sentiment"`
	Score     float64  `json:"score"`
	Insights  []string `json:"insights"`
}

// ParseAnalysis validates generated JSON against the Analysis contract.
// Code fences around the JSON are tolerated; more than four insights are truncated.
func ParseAnalysis(symbol, text string) (*domain.Analysis, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, errors.New("empty response")
	}

	var raw generatedAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse analysis JSON: %w", err)
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		return nil, errors.New("missing summary")
	}
	sentiment := domain.Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment)))
	if !sentiment.IsValid() {
		return nil, fmt.Errorf("invalid sentiment %q", raw.Sentiment)
	}
	if raw.Score < 1 || raw.Score > 10 {
		return nil, fmt.Errorf("score %v outside 1-10", raw.Score)
	}

	insights := make([]string, 0, len(raw.Insights))
	for _, in := range raw.Insights {
		if in = strings.TrimSpace(in); in != "" {
			insights = append(insights, in)
		}
	}
	if len(insights) < minInsights {
		return nil, fmt.Errorf("expected at least %d insights, got %d", minInsights, len(insights))
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}

	return &domain.Analysis{
		Symbol:    strings.ToUpper(symbol),
		Summary:   summary,
		Sentiment: sentiment,
		Score:     raw.Score,
		Insights:  insights,
	}, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func headlines(news []domain.NewsItem) []domain.NewsItem {
	if len(news) > maxNewsInPrompt {
		return news[:maxNewsInPrompt]
	}
	return news
}

// logGeneratorError keeps credential problems to one quiet line; they repeat
// on every request until someone fixes the key.
func logGeneratorError(provider, symbol string, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		log.Printf("%s circuit open, using fallback analysis for %s", provider, symbol)
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "leaked"):
		log.Printf("%s API key rejected, using fallback analysis for %s", provider, symbol)
	default:
		log.Printf("%s analysis error for %s: %v", provider, symbol, err)
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[string] {
	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}
