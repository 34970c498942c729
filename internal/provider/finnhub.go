package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockpulse/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	finnhubBaseURL      = "https://finnhub.io/api/v1"
	defaultResponseTTL  = 60 * time.Second
	finnhubCacheKeyRoot = "finnhub:"
)

var (
	ErrMissingAPIKey = errors.New("finnhub API key missing")
	// ErrNoCandles means the candle endpoint answered but had nothing to chart.
	ErrNoCandles = errors.New("no candle data returned")
)

// ResponseCache stores raw provider bodies for a short revalidation window.
type ResponseCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// FinnhubProvider fetches quotes, company data and candles from the Finnhub REST API.
type FinnhubProvider struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	tracer   trace.Tracer
	limiter  *RateLimiter
	cache    ResponseCache
	cacheTTL time.Duration
}

// NewFinnhubProvider creates a provider limited to the free-tier quota.
// cache may be nil, in which case every call goes upstream.
func NewFinnhubProvider(tracer trace.Tracer, apiKey, baseURL string, cache ResponseCache, cacheTTL time.Duration) *FinnhubProvider {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultResponseTTL
	}
	return &FinnhubProvider{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		tracer:   tracer,
		limiter:  NewPerMinuteLimiter(finnhubCallsPerMinute),
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// FetchQuote returns the live quote. Unknown symbols are not an error here:
// they come back with Current == 0 and the caller decides.
func (p *FinnhubProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "finnhub.fetch-quote")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	body, err := p.doRequest(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}

	var raw finnhubQuote
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse quote for %s: %w", symbol, err)
	}

	quote := &domain.Quote{
		Symbol:        symbol,
		Current:       raw.Current,
		High:          raw.High,
		Low:           raw.Low,
		Open:          raw.Open,
		PreviousClose: raw.PreviousClose,
	}
	if raw.Change != nil {
		quote.Change = *raw.Change
	}
	if raw.ChangePercent != nil {
		quote.ChangePercent = *raw.ChangePercent
	}
	return quote, nil
}

// FetchProfile returns company metadata; an empty profile is not an error.
func (p *FinnhubProvider) FetchProfile(ctx context.Context, symbol string) (*domain.Profile, error) {
	ctx, span := p.tracer.Start(ctx, "finnhub.fetch-profile")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	body, err := p.doRequest(ctx, "/stock/profile2", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, fmt.Errorf("fetch profile for %s: %w", symbol, err)
	}

	var raw finnhubProfile
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse profile for %s: %w", symbol, err)
	}

	return &domain.Profile{
		Name:                 raw.Name,
		Exchange:             raw.Exchange,
		Industry:             raw.Industry,
		MarketCapitalization: raw.MarketCapitalization,
	}, nil
}

// FetchCompanyNews returns articles published between the two dates (inclusive),
// in the order Finnhub returns them.
func (p *FinnhubProvider) FetchCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.Article, error) {
	ctx, span := p.tracer.Start(ctx, "finnhub.fetch-company-news")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	params := url.Values{
		"symbol": {symbol},
		"from":   {from.UTC().Format(time.DateOnly)},
		"to":     {to.UTC().Format(time.DateOnly)},
	}
	body, err := p.doRequest(ctx, "/company-news", params)
	if err != nil {
		return nil, fmt.Errorf("fetch news for %s: %w", symbol, err)
	}

	var raw []finnhubNews
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse news for %s: %w", symbol, err)
	}

	articles := make([]domain.Article, 0, len(raw))
	for _, n := range raw {
		articles = append(articles, domain.Article{
			ID:        n.ID,
			Headline:  n.Headline,
			Summary:   n.Summary,
			Source:    n.Source,
			URL:       n.URL,
			Published: time.Unix(n.Datetime, 0),
		})
	}
	span.SetAttributes(attribute.Int("news.count", len(articles)))
	return articles, nil
}

// FetchDailyCandles returns daily bars between from and to. A "no_data" status,
// an empty series or a series without closes is reported as ErrNoCandles.
func (p *FinnhubProvider) FetchDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]*domain.Candle, error) {
	ctx, span := p.tracer.Start(ctx, "finnhub.fetch-daily-candles")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	params := url.Values{
		"symbol":     {symbol},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}
	body, err := p.doRequest(ctx, "/stock/candle", params)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}

	var raw finnhubCandles
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse candles for %s: %w", symbol, err)
	}
	if raw.Status != "ok" || len(raw.Timestamp) == 0 {
		return nil, fmt.Errorf("candles for %s (status %q): %w", symbol, raw.Status, ErrNoCandles)
	}

	candles := buildCandles(symbol, raw)
	if len(candles) == 0 {
		return nil, fmt.Errorf("candles for %s have no closes: %w", symbol, ErrNoCandles)
	}
	return candles, nil
}

// buildCandles zips the parallel arrays. Timestamps without a close are skipped.
func buildCandles(symbol string, raw finnhubCandles) []*domain.Candle {
	candles := make([]*domain.Candle, 0, len(raw.Timestamp))
	for i, ts := range raw.Timestamp {
		if i >= len(raw.Close) {
			break
		}
		candles = append(candles, &domain.Candle{
			Symbol:   symbol,
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     valueAt(raw.Open, i),
			High:     valueAt(raw.High, i),
			Low:      valueAt(raw.Low, i),
			Close:    raw.Close[i],
			Volume:   valueAt(raw.Volume, i),
		})
	}
	return candles
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func (p *FinnhubProvider) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	// The token is never part of the cache key.
	key := finnhubCacheKeyRoot + endpoint + "?" + params.Encode()
	if body := p.cached(ctx, key); body != nil {
		return body, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("ratelimit.available", p.limiter.Available()))

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("token", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("finnhub %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
		return nil, fmt.Errorf("finnhub API error (%s): %s", endpoint, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, body, p.cacheTTL).Err(); err != nil {
			log.Printf("redis cache write error for %s: %v", endpoint, err)
		}
	}
	return body, nil
}

func (p *FinnhubProvider) cached(ctx context.Context, key string) []byte {
	if p.cache == nil {
		return nil
	}
	body, err := p.cache.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("redis cache read error: %v", err)
		return nil
	}
	return body
}
