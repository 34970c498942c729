package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestProvider(t *testing.T, cache ResponseCache, fn roundTripFunc) *FinnhubProvider {
	t.Helper()
	p := NewFinnhubProvider(trace.NewNoopTracerProvider().Tracer("test"), "secret", "http://example", cache, time.Minute)
	p.client = &http.Client{Transport: fn}
	p.limiter = NewRateLimiter(100, time.Millisecond)
	return p
}

func TestFinnhubFetchQuote(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/quote" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("symbol") != "AAPL" || req.URL.Query().Get("token") != "secret" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"c":150,"d":2,"dp":1.35,"h":152,"l":148,"o":149,"pc":148,"t":1700000000}`), nil
	})

	q, err := p.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Current != 150 || q.Change != 2 || q.ChangePercent != 1.35 || q.High != 152 || q.Low != 148 || q.Open != 149 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestFinnhubFetchQuoteUnknownSymbolHasZeroPrice(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`), nil
	})

	q, err := p.FetchQuote(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Current != 0 || q.ChangePercent != 0 {
		t.Fatalf("expected zero quote, got %+v", q)
	}
}

func TestFinnhubMissingAPIKey(t *testing.T) {
	t.Parallel()

	p := NewFinnhubProvider(trace.NewNoopTracerProvider().Tracer("test"), "", "", nil, 0)
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without an API key")
		return nil, nil
	})}

	_, err := p.FetchQuote(context.Background(), "AAPL")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFinnhubNonOKStatus(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":"You don't have access to this resource."}`), nil
	})

	_, err := p.FetchProfile(context.Background(), "AAPL")
	if err == nil || !strings.Contains(err.Error(), "Forbidden") {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestFinnhubFetchProfile(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/stock/profile2" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"name":"Apple Inc","exchange":"NASDAQ","finnhubIndustry":"Technology","marketCapitalization":2500}`), nil
	})

	profile, err := p.FetchProfile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Name != "Apple Inc" || profile.Industry != "Technology" || profile.MarketCapitalization != 2500 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestFinnhubFetchCompanyNews(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if req.URL.Path != "/company-news" || q.Get("from") != "2026-10-17" || q.Get("to") != "2026-10-19" {
			t.Fatalf("unexpected request: %s", req.URL.String())
		}
		return jsonResponse(http.StatusOK, `[
			{"id":7,"headline":"Apple beats","summary":"Strong quarter","source":"Reuters","url":"https://x/1","datetime":1760880000},
			{"headline":"No id","summary":"","source":"Bloomberg","url":"https://x/2","datetime":1760790000}
		]`), nil
	})

	articles, err := p.FetchCompanyNews(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].ID != 7 || articles[0].Headline != "Apple beats" || articles[0].Published.Unix() != 1760880000 {
		t.Fatalf("unexpected first article: %+v", articles[0])
	}
	if articles[1].ID != 0 {
		t.Fatalf("expected missing id to stay zero, got %d", articles[1].ID)
	}
}

func TestFinnhubFetchDailyCandles(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("resolution") != "D" {
			t.Fatalf("expected daily resolution, got %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"c":[10,11,12],"h":[11,12,13],"l":[9,10,11],"o":[9.5,10.5,11.5],"v":[100,200,300],"t":[1700000000,1700086400,1700172800],"s":"ok"}`), nil
	})

	now := time.Now()
	candles, err := p.FetchDailyCandles(context.Background(), "AAPL", now.AddDate(0, 0, -30), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	if candles[2].Close != 12 || candles[2].Volume != 300 || candles[2].OpenTime.Unix() != 1700172800 {
		t.Fatalf("unexpected last candle: %+v", candles[2])
	}
}

func TestFinnhubFetchDailyCandlesNoData(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"s":"no_data"}`, `{"s":"ok","t":[],"c":[]}`} {
		p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		})
		now := time.Now()
		_, err := p.FetchDailyCandles(context.Background(), "AAPL", now.AddDate(0, 0, -30), now)
		if !errors.Is(err, ErrNoCandles) {
			t.Fatalf("body %s: expected ErrNoCandles, got %v", body, err)
		}
	}
}

func TestFinnhubFetchDailyCandlesWithoutCloses(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"s":"ok","t":[1700000000,1700086400]}`), nil
	})
	now := time.Now()
	candles, err := p.FetchDailyCandles(context.Background(), "AAPL", now.AddDate(0, 0, -30), now)
	if !errors.Is(err, ErrNoCandles) {
		t.Fatalf("expected ErrNoCandles, got %v", err)
	}
	if candles != nil {
		t.Fatalf("expected no candles, got %d", len(candles))
	}
}

func TestFinnhubRecordsRateLimitHeadroom(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := newTestProvider(t, nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"c":150,"d":2,"dp":1.35,"h":152,"l":148,"o":149}`), nil
	})
	p.tracer = tp.Tracer("test")
	p.limiter = NewRateLimiter(5, time.Hour)

	if _, err := p.FetchQuote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	for _, kv := range spans[0].Attributes {
		if kv.Key == "ratelimit.available" {
			if kv.Value.AsInt64() != 4 {
				t.Fatalf("expected 4 tokens left, got %d", kv.Value.AsInt64())
			}
			return
		}
	}
	t.Fatalf("ratelimit.available attribute missing: %v", spans[0].Attributes)
}

func TestBuildCandlesSkipsMissingCloses(t *testing.T) {
	raw := finnhubCandles{
		Close:     []float64{10},
		Timestamp: []int64{1, 2},
		Status:    "ok",
	}
	candles := buildCandles("AAPL", raw)
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	if candles[0].High != 0 || candles[0].Close != 10 {
		t.Fatalf("unexpected candle: %+v", candles[0])
	}
}

func TestFinnhubServesFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	calls := 0
	p := newTestProvider(t, cache, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"c":150,"d":2,"dp":1.35,"h":152,"l":148,"o":149}`), nil
	})

	for i := 0; i < 3; i++ {
		q, err := p.FetchQuote(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Current != 150 {
			t.Fatalf("unexpected quote: %+v", q)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
	for key, ttl := range cache.ttl {
		if strings.Contains(key, "secret") {
			t.Fatalf("token leaked into cache key %q", key)
		}
		if ttl != time.Minute {
			t.Fatalf("expected 1m ttl, got %v", ttl)
		}
	}
}

func TestFinnhubCacheErrorsFallThrough(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	calls := 0
	p := newTestProvider(t, cache, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"c":1}`), nil
	})

	if _, err := p.FetchQuote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("cache errors should not fail the call: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected upstream call, got %d", calls)
	}
}

func TestFinnhubDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	p := newTestProvider(t, cache, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":"limit"}`), nil
	})

	if _, err := p.FetchQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.data) != 0 {
		t.Fatalf("failed responses must not be cached, got %d entries", len(cache.data))
	}
}

type fakeRedis struct {
	data   map[string][]byte
	ttl    map[string]time.Duration
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}
