// Package mcpserver exposes the stock aggregator as a Model Context Protocol tool.
package mcpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"stockpulse/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serverName = "stockpulse"

type StockLookup interface {
	Aggregate(ctx context.Context, ticker string) (*domain.AggregatedResponse, error)
}

type GetStockArgs struct {
	Ticker string `json:"ticker" jsonschema:"stock ticker symbol, for example AAPL"`
}

type tools struct {
	tracer trace.Tracer
	quotes StockLookup
}

// New builds an MCP server with the get_stock tool registered.
func New(tracer trace.Tracer, quotes StockLookup, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	t := &tools{tracer: tracer, quotes: quotes}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stock",
		Description: "Quote, 30-day or simulated intraday chart, recent news and sentiment analysis for a stock ticker.",
	}, t.getStock)

	return server
}

func (t *tools) getStock(ctx context.Context, _ *mcp.CallToolRequest, args GetStockArgs) (*mcp.CallToolResult, any, error) {
	ctx, span := t.tracer.Start(ctx, "mcp.get-stock")
	defer span.End()

	ticker := strings.ToUpper(strings.TrimSpace(args.Ticker))
	span.SetAttributes(attribute.String("symbol", ticker))
	if ticker == "" {
		return errorResult("ticker is required"), nil, nil
	}

	resp, err := t.quotes.Aggregate(ctx, ticker)
	if err != nil {
		span.RecordError(err)
		log.Printf("mcp get_stock %s: %v", ticker, err)
		return errorResult(err.Error()), nil, nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("encode response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// HTTPHandler serves the server over streamable HTTP. A non-empty token
// requires "Authorization: Bearer <token>" on every request.
func HTTPHandler(server *mcp.Server, token string) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	return requireBearer(token, h)
}

func requireBearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(provided)), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="stockpulse"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
