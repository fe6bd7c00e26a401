package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pricewatch/api"
	"github.com/use-agent/pricewatch/batch"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/extractor"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricewatch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"batchDeadline", cfg.Batch.Deadline,
	)

	// ── 3. Shared outbound client ───────────────────────────────────
	client := engine.NewClient(engine.ClientConfig{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		ChromeTLS:    cfg.Fetch.ChromeTLS,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	// ── 4. Renderer for client-side rendered sites ─────────────────
	renderer, browser := newRenderer(cfg, client)
	if browser != nil {
		defer browser.Close()
	}

	// ── 5. Registry and batch driver ────────────────────────────────
	registry := extractor.Default(client, renderer)
	driver := batch.NewDriver(registry)
	slog.Info("extractors registered", "competitors", registry.IDs())

	// ── 6. Setup router ─────────────────────────────────────────────
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	router := api.NewRouter(appCtx, api.Deps{
		Registry: registry,
		Driver:   driver,
		Browser:  browser,
	}, cfg, time.Now())

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A batch in flight stops at its next product boundary once the
	// deadline passes; give it that long plus one product's worth.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Batch.Deadline+cfg.Fetch.Timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("pricewatch stopped")
}

// newRenderer prefers the fetch proxy when a key is configured, then a
// local browser when enabled. Without either, renderer-backed competitors
// are not registered.
func newRenderer(cfg *config.Config, client *engine.Client) (engine.Renderer, *engine.Browser) {
	if cfg.Proxy.APIKey != "" {
		p, err := engine.NewProxyRenderer(client, engine.ProxyConfig{
			Endpoint: cfg.Proxy.Endpoint,
			APIKey:   cfg.Proxy.APIKey,
			Timeout:  cfg.Proxy.Timeout,
		})
		if err == nil {
			slog.Info("fetch proxy enabled", "endpoint", cfg.Proxy.Endpoint)
			return p, nil
		}
		slog.Warn("fetch proxy disabled", "error", err)
	}

	if cfg.Browser.Enabled {
		b, err := engine.NewBrowser(engine.BrowserConfig{
			Headless:          cfg.Browser.Headless,
			NoSandbox:         cfg.Browser.NoSandbox,
			Bin:               cfg.Browser.BrowserBin,
			MaxPages:          cfg.Browser.MaxPages,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			UserAgent:         client.UserAgent(),
			BlockResources:    cfg.Browser.BlockResources,
		})
		if err != nil {
			slog.Error("failed to launch browser, continuing without it", "error", err)
			return nil, nil
		}
		slog.Info("headless browser enabled", "maxPages", cfg.Browser.MaxPages)
		return b, b
	}

	slog.Warn("no renderer configured; noon.com lookups will be unavailable")
	return nil, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
