package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/api/handler"
	"github.com/corestack-dev/purify/api/middleware"
	"github.com/corestack-dev/purify/cache"
	"github.com/corestack-dev/purify/cleaner"
	"github.com/corestack-dev/purify/config"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/llm"
	"github.com/corestack-dev/purify/proxy"
	"github.com/corestack-dev/purify/scraper"
	"github.com/corestack-dev/purify/search"
)

// Deps bundles the optional cross-cutting collaborators new tools need,
// letting NewRouter keep a stable core signature as more get added.
type Deps struct {
	ProxyManager  *proxy.Manager
	HistoryStore  *history.Store
	SearchBackend search.Backend
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, cl *cleaner.Cleaner, llmClient *llm.Client, cfg *config.Config, cc *cache.Cache, startTime time.Time, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(sc, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(sc, cl, cc, deps.HistoryStore))

	// Extract (structured extraction via LLM or deterministic projection)
	protected.POST("/extract", handler.Extract(sc, cl, llmClient, deps.HistoryStore))

	// Batch
	protected.POST("/batch/scrape", handler.PostBatch(sc, cl, deps.HistoryStore))
	protected.GET("/batch/:id", handler.GetBatch())

	// Crawl
	protected.POST("/crawl", handler.PostCrawl(sc, cl, deps.HistoryStore))
	protected.GET("/crawl/:id", handler.GetCrawl())

	// Map
	protected.POST("/map", handler.PostMap(sc, cl))

	// Search (new)
	if deps.SearchBackend != nil {
		protected.POST("/search", handler.Search(deps.SearchBackend, deps.HistoryStore))
	}

	// Research history (new)
	if deps.HistoryStore != nil {
		protected.POST("/history/search", handler.History(deps.HistoryStore))
	}

	// Proxy management (new)
	protected.POST("/proxy", handler.Proxy(deps.ProxyManager))

	// HITL supervised fetch (new)
	protected.POST("/hitl/fetch", handler.HITL(cfg.HITL))

	return r
}
