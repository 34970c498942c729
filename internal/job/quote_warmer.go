package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type QuoteRefresher interface {
	RefreshQuote(ctx context.Context, symbol string) error
}

// QuoteWarmer keeps the response cache warm for a fixed list of symbols so
// dashboard loads rarely pay for an upstream round trip.
type QuoteWarmer struct {
	tracer       trace.Tracer
	quotes       QuoteRefresher
	symbols      []string
	pollInterval time.Duration
}

func NewQuoteWarmer(tracer trace.Tracer, quotes QuoteRefresher, symbols []string, pollIntervalSecs int) *QuoteWarmer {
	if pollIntervalSecs <= 0 {
		pollIntervalSecs = 60
	}
	return &QuoteWarmer{
		tracer:       tracer,
		quotes:       quotes,
		symbols:      symbols,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start refreshes every symbol immediately and then once per interval.
// Blocks until ctx is cancelled.
func (w *QuoteWarmer) Start(ctx context.Context) {
	if len(w.symbols) == 0 {
		log.Println("quote warmer disabled: no symbols configured")
		return
	}
	log.Printf("quote warmer starting for %d symbols every %s", len(w.symbols), w.pollInterval)

	w.warm(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("quote warmer stopped")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *QuoteWarmer) warm(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "quote-warmer.warm")
	defer span.End()
	span.SetAttributes(attribute.Int("symbols", len(w.symbols)))

	failed := 0
	for _, symbol := range w.symbols {
		if ctx.Err() != nil {
			return
		}
		if err := w.quotes.RefreshQuote(ctx, symbol); err != nil {
			failed++
			log.Printf("quote warm error for %s: %v", symbol, err)
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
}
