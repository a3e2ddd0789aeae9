package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/cache"
	"github.com/corestack-dev/purify/cleaner"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Scraper.DoScrape → raw HTML + JS title   (records navigation_ms)
//  3. Cleaner.Clean    → Markdown/HTML/text     (records cleaning_ms)
//  4. Merge metadata (readability title → JS title fallback).
//  5. Fill Timing, return 200.
func Scrape(sc *scraper.Scraper, cl *cleaner.Cleaner, cc *cache.Cache, hist *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// SSE mode: stream progress events instead of JSON response.
		if c.GetHeader("Accept") == "text/event-stream" {
			handleScrapeSSE(c, sc, cl, cc, &req)
			return
		}

		// ── 1b. Cache lookup ───────────────────────────────────────
		// Skipped when the caller appears to be rapid-testing the same
		// URL — iterating on a scraper config wants a fresh fetch each
		// time, not the first attempt replayed from cache.
		rapidTesting := hist != nil && hist.IsRapidTesting(req.URL)
		if cc != nil && req.MaxAge > 0 && !rapidTesting {
			cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		navStart := time.Now()
		result, err := sc.DoScrape(c.Request.Context(), &req)
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		// ── 3. Clean ────────────────────────────────────────────────
		cleanStart := time.Now()
		var cleanOpts []cleaner.CleanOptions
		if len(req.IncludeTags) > 0 || len(req.ExcludeTags) > 0 || req.CSSSelector != "" || req.MaxChars > 0 {
			cleanOpts = append(cleanOpts, cleaner.CleanOptions{
				IncludeTags: req.IncludeTags,
				ExcludeTags: req.ExcludeTags,
				CSSSelector: req.CSSSelector,
				MaxChars:    req.MaxChars,
			})
		}
		resp, err := cl.Clean(result.RawHTML, req.URL, req.OutputFormat, req.ExtractMode, cleanOpts...)
		cleaningMs := time.Since(cleanStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
				CleaningMs:   cleaningMs,
			})
			return
		}

		// ── 3b. Quality fallback ──────────────────────────────────────
		// A static (non-browser) fetch that scored too low or came back
		// too thin is retried once through the Rod browser path, which
		// renders JS and settles lazy content a plain HTTP GET can't.
		if result.EngineUsed != "rod" {
			minScore, minWordCount := sc.QualityThresholds()
			if resp.ExtractionScore < minScore || resp.WordCount < minWordCount {
				rerunResult, rerunResp, rerunNavMs, rerunCleanMs, ok :=
					rerunScrapeViaBrowser(c.Request.Context(), sc, cl, &req, cleanOpts)
				navigationMs += rerunNavMs
				cleaningMs += rerunCleanMs
				if ok {
					result = rerunResult
					resp = rerunResp
					resp.Warnings = append(resp.Warnings, "low_quality_extraction", "fallback_scraper_used")
				} else {
					resp.Warnings = append(resp.Warnings, "low_quality_extraction")
				}
			}
		}

		// ── 4. Title fallback ───────────────────────────────────────
		if resp.Metadata.Title == "" {
			resp.Metadata.Title = result.Title
		}
		resp.Metadata.FetchMethod = result.FetchMethod

		// ── 5. Fill scrape result fields + timing and respond ───────
		resp.StatusCode = result.StatusCode
		resp.FinalURL = result.FinalURL
		resp.EngineUsed = result.EngineUsed
		resp.Timing = models.TimingInfo{
			TotalMs:      time.Since(totalStart).Milliseconds(),
			NavigationMs: navigationMs,
			CleaningMs:   cleaningMs,
		}

		// ── 6. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		logScrapeToHistory(hist, req.URL, resp)

		c.JSON(http.StatusOK, resp)
	}
}

// rerunScrapeViaBrowser forces the Rod browser path for a request that
// already failed the static quality bar, re-cleans its HTML, and reports
// whether the rerun produced a usable result. Failures here are swallowed:
// the caller keeps the original (low-quality) response with a warning tag
// rather than turning a successful-but-thin scrape into an error.
func rerunScrapeViaBrowser(
	ctx context.Context,
	sc *scraper.Scraper,
	cl *cleaner.Cleaner,
	req *models.ScrapeRequest,
	cleanOpts []cleaner.CleanOptions,
) (*scraper.ScrapeResult, *models.ScrapeResponse, int64, int64, bool) {
	navStart := time.Now()
	result, err := sc.DoScrapeRod(ctx, req)
	navMs := time.Since(navStart).Milliseconds()
	if err != nil {
		return nil, nil, navMs, 0, false
	}

	cleanStart := time.Now()
	resp, err := cl.Clean(result.RawHTML, req.URL, req.OutputFormat, req.ExtractMode, cleanOpts...)
	cleanMs := time.Since(cleanStart).Milliseconds()
	if err != nil {
		return nil, nil, navMs, cleanMs, false
	}
	return result, resp, navMs, cleanMs, true
}

// logScrapeToHistory records a completed scrape in the research history
// store, keyed by the page's final domain. Safe to call with a nil store.
func logScrapeToHistory(hist *history.Store, rawURL string, resp *models.ScrapeResponse) {
	if hist == nil || resp == nil || !resp.Success {
		return
	}
	domain := ""
	if u, err := url.Parse(rawURL); err == nil {
		domain = u.Host
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	preview := resp.Content
	if len(preview) > 280 {
		preview = preview[:280]
	}
	hist.LogScrape(rawURL, resp.Metadata.Title, preview, domain, raw)
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// handleScrapeSSE processes a scrape request and streams SSE events.
func handleScrapeSSE(c *gin.Context, sc *scraper.Scraper, cl *cleaner.Cleaner, cc *cache.Cache, req *models.ScrapeRequest) {
	totalStart := time.Now()

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// 1. Send started event.
	writeSSE(c, "scrape.started", map[string]interface{}{
		"url": req.URL,
	})

	// 2. Cache lookup.
	if cc != nil && req.MaxAge > 0 {
		cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
		if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
			cached.CacheStatus = "hit"
			cached.Timing = models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			}
			writeSSE(c, "scrape.completed", cached)
			return
		}
	}

	// 3. Scrape.
	navStart := time.Now()
	result, err := sc.DoScrape(c.Request.Context(), req)
	navigationMs := time.Since(navStart).Milliseconds()

	if err != nil {
		writeSSE(c, "scrape.error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// 4. Send navigated event.
	writeSSE(c, "scrape.navigated", map[string]interface{}{
		"status_code":   result.StatusCode,
		"final_url":     result.FinalURL,
		"engine_used":   result.EngineUsed,
		"navigation_ms": navigationMs,
	})

	// 5. Clean.
	cleanStart := time.Now()
	var cleanOpts []cleaner.CleanOptions
	if len(req.IncludeTags) > 0 || len(req.ExcludeTags) > 0 || req.CSSSelector != "" {
		cleanOpts = append(cleanOpts, cleaner.CleanOptions{
			IncludeTags: req.IncludeTags,
			ExcludeTags: req.ExcludeTags,
			CSSSelector: req.CSSSelector,
		})
	}
	resp, err := cl.Clean(result.RawHTML, req.URL, req.OutputFormat, req.ExtractMode, cleanOpts...)
	cleaningMs := time.Since(cleanStart).Milliseconds()

	if err != nil {
		writeSSE(c, "scrape.error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// 6. Title fallback + fill fields.
	if resp.Metadata.Title == "" {
		resp.Metadata.Title = result.Title
	}
	resp.Metadata.FetchMethod = result.FetchMethod
	resp.StatusCode = result.StatusCode
	resp.FinalURL = result.FinalURL
	resp.EngineUsed = result.EngineUsed
	resp.Timing = models.TimingInfo{
		TotalMs:      time.Since(totalStart).Milliseconds(),
		NavigationMs: navigationMs,
		CleaningMs:   cleaningMs,
	}

	// 7. Cache store.
	if cc != nil && req.MaxAge > 0 {
		cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
		cc.Set(cacheKey, resp)
		resp.CacheStatus = "miss"
	}

	// 8. Send completed event with full response.
	writeSSE(c, "scrape.completed", resp)
}

// writeSSE writes a single SSE event to the response.
func writeSSE(c *gin.Context, event string, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
	c.Writer.Flush()
}
