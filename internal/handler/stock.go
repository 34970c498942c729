package handler

import (
	"errors"
	"net/http"
	"strings"

	"stockpulse/internal/provider"
	"stockpulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxWatchlistSymbols = 20

// GetStock godoc
// @Summary      Get the dashboard view for a stock
// @Description  Returns quote, 30-day or synthetic intraday chart, recent news and analysis for a ticker
// @Tags         stocks
// @Produce      json
// @Param        ticker  path  string  true  "Ticker symbol (e.g., AAPL)"
// @Success      200  {object}  domain.AggregatedResponse
// @Failure      500  {object}  map[string]string
// @Router       /api/stock/{ticker} [get]
func (h *Handler) GetStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stock")
	defer span.End()

	ticker := service.NormalizeTicker(c.Param("ticker"))
	span.SetAttributes(attribute.String("symbol", ticker))

	resp, err := h.quotes.Aggregate(ctx, ticker)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "hint": errorHint(err)})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWatchlist godoc
// @Summary      Get quote summaries for a list of stocks
// @Description  Returns a summary per symbol; symbols whose quote fails are omitted. Defaults to AAPL, MSFT, GOOGL.
// @Tags         stocks
// @Produce      json
// @Param        symbols  query  string  false  "Comma-separated ticker symbols (max 20)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/watchlist [get]
func (h *Handler) GetWatchlist(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-watchlist")
	defer span.End()

	symbols := parseSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		symbols = h.defaultWatchlist
	}
	if len(symbols) > maxWatchlistSymbols {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many symbols", "max_symbols": maxWatchlistSymbols})
		return
	}
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	c.JSON(http.StatusOK, gin.H{"stocks": h.quotes.Summaries(ctx, symbols)})
}

func parseSymbols(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		sym := service.NormalizeTicker(part)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// errorHint is the user-facing guidance sent along with a fatal error.
func errorHint(err error) string {
	if errors.Is(err, provider.ErrMissingAPIKey) {
		return "set FINNHUB_API_KEY and restart the server"
	}
	return "check the ticker symbol or try a known one such as AAPL"
}
