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

	"github.com/corestack-dev/purify/api"
	"github.com/corestack-dev/purify/cache"
	"github.com/corestack-dev/purify/cleaner"
	"github.com/corestack-dev/purify/config"
	"github.com/corestack-dev/purify/engine"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/llm"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/proxy"
	"github.com/corestack-dev/purify/scraper"
	"github.com/corestack-dev/purify/search"
	"github.com/corestack-dev/purify/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("purify starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 3b. Initialise multi-engine dispatcher ─────────────────────
	if cfg.Engine.EnableMultiEngine {
		// Rod callback: wraps the scraper's DoScrapeRod (bypasses the dispatcher).
		// This closure avoids a circular import (engine/ never imports scraper/).
		rodFetch := func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
			scrapeReq := &models.ScrapeRequest{
				URL:     req.URL,
				Timeout: int(req.Timeout.Seconds()),
				Stealth: req.Stealth,
				Headers: req.Headers,
			}
			scrapeReq.Defaults()

			result, err := sc.DoScrapeRod(ctx, scrapeReq)
			if err != nil {
				return nil, err
			}
			return &engine.FetchResult{
				HTML:       result.RawHTML,
				Title:      result.Title,
				StatusCode: result.StatusCode,
				FinalURL:   result.FinalURL,
			}, nil
		}

		httpEngine := engine.NewHTTPEngine()
		rodEngine := engine.NewRodEngine(rodFetch, false)
		rodStealthEngine := engine.NewRodEngine(rodFetch, true)

		engines := []engine.Engine{httpEngine, rodEngine, rodStealthEngine}
		memory := engine.NewDomainMemory(24 * time.Hour)
		dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)

		sc.SetDispatcher(dispatcher)
		slog.Info("multi-engine dispatcher enabled",
			"engines", len(engines),
			"delays", cfg.Engine.EscalationDelays,
		)
	}

	// ── 4. Initialise cleaner ───────────────────────────────────────
	cl := cleaner.NewCleaner()

	// ── 4b. Initialise cache ────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 4c. Initialise LLM client (BYOK: no key required at startup) ──
	llmClient := llm.NewClient(nil)

	// ── 4d. Initialise session store + auth registry ────────────────
	sessionStore := session.NewStore(cfg.Session.DataDir)
	authRegistry := session.NewAuthRegistry(cfg.Session.DataDir)
	sc.SetSessionStore(sessionStore, authRegistry)

	// ── 4e. Initialise proxy manager ─────────────────────────────────
	proxyMgr := proxy.NewManager(cfg.Proxy, cfg.Session.DataDir)
	sc.SetProxyManager(proxyMgr)

	// ── 4f. Initialise research history store ────────────────────────
	historyStore := history.NewStore(cfg.Session.DataDir, cfg.History.MaxEntries, cfg.History.TruncateChars)

	// ── 4g. Initialise search backend ────────────────────────────────
	var searchBackend search.Backend
	if cfg.Search.BackendURL != "" {
		searchBackend = search.NewSearXNGBackend(cfg.Search.BackendURL)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, cl, llmClient, cfg, cc, startTime, api.Deps{
		ProxyManager:  proxyMgr,
		HistoryStore:  historyStore,
		SearchBackend: searchBackend,
	})

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sc.Close() runs via defer — drains page pool and kills Chrome.
	slog.Info("purify stopped")
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
