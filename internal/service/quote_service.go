package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"stockpulse/internal/advisor"
	"stockpulse/internal/chart"
	"stockpulse/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	maxNewsItems       = 5
	newsLookback       = 2 * 24 * time.Hour
	candleLookbackDays = 30
	newsDateLayout     = "1/2/2006"
)

// ErrStockNotFound is returned when the provider has no current price for a symbol.
var ErrStockNotFound = errors.New("stock not found")

// MarketDataProvider is the subset of the market-data client the service uses.
type MarketDataProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	FetchProfile(ctx context.Context, symbol string) (*domain.Profile, error)
	FetchCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.Article, error)
	FetchDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]*domain.Candle, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req advisor.Request) (*domain.Analysis, bool)
}

type ChartSynthesizer interface {
	Synthesize(q domain.Quote) []domain.ChartPoint
}

// Recorder receives aggregation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveAggregation(outcome string)
	ObserveChart(synthetic bool)
	ObserveAnalysis(source string)
	ObserveUpstreamError(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAggregation(string)   {}
func (nopRecorder) ObserveChart(bool)           {}
func (nopRecorder) ObserveAnalysis(string)      {}
func (nopRecorder) ObserveUpstreamError(string) {}

// QuoteService assembles the per-ticker view: quote, chart, news and analysis.
type QuoteService struct {
	tracer   trace.Tracer
	market   MarketDataProvider
	analyzer Analyzer
	synth    ChartSynthesizer
	metrics  Recorder
	location *time.Location

	now   func() time.Time
	newID func() string
}

func NewQuoteService(
	tracer trace.Tracer,
	market MarketDataProvider,
	analyzer Analyzer,
	synth ChartSynthesizer,
	recorder Recorder,
	loc *time.Location,
) *QuoteService {
	if loc == nil {
		loc = time.Local
	}
	if synth == nil {
		synth = chart.NewSynthesizer(loc)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &QuoteService{
		tracer:   tracer,
		market:   market,
		analyzer: analyzer,
		synth:    synth,
		metrics:  recorder,
		location: loc,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NormalizeTicker upper-cases and trims a user-supplied symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Aggregate builds the full response for one ticker. Only the quote is
// mandatory; profile, news, candles and analysis degrade to defaults.
func (s *QuoteService) Aggregate(ctx context.Context, ticker string) (*domain.AggregatedResponse, error) {
	ctx, span := s.tracer.Start(ctx, "quote-service.aggregate")
	defer span.End()

	symbol := NormalizeTicker(ticker)
	span.SetAttributes(attribute.String("symbol", symbol))

	quote, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveAggregation("failed")
		return nil, err
	}

	profile, articles := s.fetchCompanyData(ctx, symbol)

	points, synthetic := s.chartData(ctx, quote)
	span.SetAttributes(attribute.Bool("chart.synthetic", synthetic))

	news := s.shapeNews(articles)
	analysis := s.analyze(ctx, quote, news)

	s.metrics.ObserveAggregation("ok")
	return &domain.AggregatedResponse{
		Stock:       Summarize(*quote, profile),
		Chart:       points,
		IsSynthetic: synthetic,
		News:        news,
		Analysis:    analysis,
	}, nil
}

// Summaries returns quote-only summaries for a watchlist. Symbols that fail
// are logged and left out.
func (s *QuoteService) Summaries(ctx context.Context, symbols []string) []domain.StockSummary {
	ctx, span := s.tracer.Start(ctx, "quote-service.summaries")
	defer span.End()
	span.SetAttributes(attribute.Int("symbols", len(symbols)))

	out := make([]domain.StockSummary, 0, len(symbols))
	for _, raw := range symbols {
		symbol := NormalizeTicker(raw)
		if symbol == "" {
			continue
		}
		quote, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			log.Printf("watchlist: skipping %s: %v", symbol, err)
			continue
		}
		out = append(out, Summarize(*quote, nil))
	}
	return out
}

// RefreshQuote fetches a quote for its side effect on the response cache.
func (s *QuoteService) RefreshQuote(ctx context.Context, symbol string) error {
	ctx, span := s.tracer.Start(ctx, "quote-service.refresh-quote")
	defer span.End()

	_, err := s.fetchQuote(ctx, NormalizeTicker(symbol))
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *QuoteService) fetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrStockNotFound)
	}
	quote, err := s.market.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if quote == nil || quote.Current == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}

// fetchCompanyData runs profile and news concurrently and waits for both.
// Each task records its own failure so one never cancels the other.
func (s *QuoteService) fetchCompanyData(ctx context.Context, symbol string) (*domain.Profile, []domain.Article) {
	var (
		g          errgroup.Group
		profile    *domain.Profile
		articles   []domain.Article
		profileErr error
		newsErr    error
	)

	to := s.now()
	from := to.Add(-newsLookback)

	g.Go(func() error {
		profile, profileErr = s.market.FetchProfile(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		articles, newsErr = s.market.FetchCompanyNews(ctx, symbol, from, to)
		return nil
	})
	_ = g.Wait()

	if profileErr != nil {
		log.Printf("profile unavailable for %s: %v", symbol, profileErr)
		s.metrics.ObserveUpstreamError("profile")
		profile = nil
	}
	if newsErr != nil {
		log.Printf("news unavailable for %s: %v", symbol, newsErr)
		s.metrics.ObserveUpstreamError("news")
		articles = nil
	}
	return profile, articles
}

// chartData prefers a month of daily closes and synthesizes a session otherwise.
func (s *QuoteService) chartData(ctx context.Context, quote *domain.Quote) ([]domain.ChartPoint, bool) {
	to := s.now().Truncate(time.Minute)
	from := to.AddDate(0, 0, -candleLookbackDays)

	candles, err := s.market.FetchDailyCandles(ctx, quote.Symbol, from, to)
	if err == nil && len(candles) > 0 {
		s.metrics.ObserveChart(false)
		return chart.FromCandles(candles, s.location), false
	}

	if err == nil {
		err = errors.New("empty candle series")
	}
	log.Printf("candles unavailable for %s, synthesizing chart: %v", quote.Symbol, err)
	s.metrics.ObserveUpstreamError("candles")
	s.metrics.ObserveChart(true)
	return s.synth.Synthesize(*quote), true
}

func (s *QuoteService) shapeNews(articles []domain.Article) []domain.NewsItem {
	n := len(articles)
	if n > maxNewsItems {
		n = maxNewsItems
	}
	news := make([]domain.NewsItem, 0, n)
	for _, a := range articles[:n] {
		id := s.newID()
		if a.ID != 0 {
			id = strconv.FormatInt(a.ID, 10)
		}
		news = append(news, domain.NewsItem{
			ID:      id,
			Title:   a.Headline,
			Summary: a.Summary,
			Source:  a.Source,
			Time:    a.Published.In(s.location).Format(newsDateLayout),
			URL:     a.URL,
		})
	}
	return news
}

func (s *QuoteService) analyze(ctx context.Context, quote *domain.Quote, news []domain.NewsItem) domain.Analysis {
	if s.analyzer != nil {
		analysis, ok := s.analyzer.Analyze(ctx, advisor.Request{
			Symbol:        quote.Symbol,
			Price:         quote.Current,
			ChangePercent: quote.ChangePercent,
			News:          news,
		})
		if ok && analysis != nil {
			s.metrics.ObserveAnalysis("generative")
			return *analysis
		}
	}
	s.metrics.ObserveAnalysis("fallback")
	return advisor.Fallback(quote.Symbol, quote.ChangePercent)
}

// Summarize projects a quote and optional profile into the display summary.
// Volume is not reported by the quote endpoint.
func Summarize(q domain.Quote, profile *domain.Profile) domain.StockSummary {
	marketCap := "N/A"
	if profile != nil {
		marketCap = FormatLargeNumber(profile.MarketCapitalization)
	}
	return domain.StockSummary{
		Symbol:        q.Symbol,
		Price:         q.Current,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		High:          q.High,
		Low:           q.Low,
		Volume:        "N/A",
		MarketCap:     marketCap,
	}
}
