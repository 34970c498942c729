package handler

import (
	"context"
	"net/http"

	"stockpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// QuoteAggregator is what the HTTP layer needs from the quote service.
type QuoteAggregator interface {
	Aggregate(ctx context.Context, ticker string) (*domain.AggregatedResponse, error)
	Summaries(ctx context.Context, symbols []string) []domain.StockSummary
}

type Handler struct {
	tracer           trace.Tracer
	quotes           QuoteAggregator
	analysisProvider string
	defaultWatchlist []string
}

// New builds the handler. analysisProvider names the configured generator
// ("" when analysis always uses the fallback) and is reported by /health.
func New(tracer trace.Tracer, quotes QuoteAggregator, analysisProvider string) *Handler {
	return &Handler{
		tracer:           tracer,
		quotes:           quotes,
		analysisProvider: analysisProvider,
		defaultWatchlist: []string{"AAPL", "MSFT", "GOOGL"},
	}
}

// RegisterRoutes mounts the API. apiKey enables X-API-Key checks on /api;
// metrics, when non-nil, is served on /metrics.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string, metrics http.Handler) {
	r.GET("/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/stock/:ticker", h.GetStock)
	api.GET("/watchlist", h.GetWatchlist)
}
