package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpulse/internal/app"
	"stockpulse/internal/cache"
	"stockpulse/internal/config"
	"stockpulse/internal/mcpserver"
	"stockpulse/internal/provider"
	"stockpulse/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serviceName = "stockpulse-mcp"

var version = "dev"

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	connectRedisFunc = cache.Connect
	initTracerFunc   = tracing.InitTracer
	buildDepsFunc    = app.Build
	runStdioFunc     = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	notifyContextFunc      = signal.NotifyContext
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// stdout carries the protocol in stdio mode.
	log.SetOutput(os.Stderr)

	if err := loadEnvFunc(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := loadConfigFunc()

	ctx, stop := notifyContextFunc(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, tracer, err := initTracerFunc(ctx, tracing.Options{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var responseCache provider.ResponseCache
	redisClient, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: %v; continuing without response cache", err)
	} else {
		responseCache = redisClient
		defer redisClient.Close()
	}

	deps, err := buildDepsFunc(ctx, cfg, tracer, responseCache, nil)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	server := mcpserver.New(tracer, deps.Quotes, version)

	if cfg.MCPTransport == "http" {
		return serveHTTP(ctx, cfg, server)
	}
	log.Println("MCP server running on stdio")
	if err := runStdioFunc(ctx, server); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server) error {
	if cfg.MCPAuthToken == "" {
		log.Println("Warning: MCP_AUTH_TOKEN not set, MCP HTTP endpoint is unauthenticated")
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.HTTPHandler(server, cfg.MCPAuthToken))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("MCP server listening on http://%s/mcp", srv.Addr)
		errCh <- startHTTPServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("mcp http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return shutdownHTTPServerFunc(srv, shutdownCtx)
}
