package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/cleaner"
	"github.com/corestack-dev/purify/extract"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/llm"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/scraper"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Flow:
//  1. Parse & validate ExtractRequest, apply defaults.
//  2. DoScrape → raw HTML + JS title.
//  3. Clean (with optional CSS selector) → content.
//  4. Structured JSON: LLM extract when llm_api_key is set, otherwise
//     deterministic field projection (extract.Project).
//  5. Assemble response with timing and LLM usage.
func Extract(sc *scraper.Scraper, cl *cleaner.Cleaner, llmClient *llm.Client, hist *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		if err := req.Validate(); err != nil {
			respondExtractError(c, err, models.ExtractTimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		scrapeReq := req.ToScrapeRequest()
		scrapeReq.Defaults()

		navStart := time.Now()
		scrapeResult, err := sc.DoScrape(c.Request.Context(), scrapeReq)
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			respondExtractError(c, err, models.ExtractTimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		// ── 3. Clean ────────────────────────────────────────────────
		cleanStart := time.Now()
		scrapeResp, err := cl.Clean(scrapeResult.RawHTML, req.URL, req.OutputFormat, req.ExtractMode, cleaner.CleanOptions{
				CSSSelector: req.CSSSelector,
			})
		cleaningMs := time.Since(cleanStart).Milliseconds()

		if err != nil {
			respondExtractError(c, err, models.ExtractTimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
				CleaningMs:   cleaningMs,
			})
			return
		}

		// Title fallback.
		if scrapeResp.Metadata.Title == "" {
			scrapeResp.Metadata.Title = scrapeResult.Title
		}

		// ── 4. Extract (LLM-assisted or deterministic projection) ───
		extractStart := time.Now()
		var extractResp models.ExtractResponse

		if req.WantsLLM() {
			result, err := llmClient.Extract(c.Request.Context(), scrapeResp.Content, req.Schema, llm.ExtractParams{
				APIKey:  req.LLMAPIKey,
				Model:   req.LLMModel,
				BaseURL: req.LLMBaseURL,
			})
			extractionMs := time.Since(extractStart).Milliseconds()

			if err != nil {
				respondExtractError(c, err, models.ExtractTimingInfo{
					TotalMs:      time.Since(totalStart).Milliseconds(),
					NavigationMs: navigationMs,
					CleaningMs:   cleaningMs,
					ExtractionMs: extractionMs,
				})
				return
			}

			extractResp = models.ExtractResponse{
				Success:  true,
				Data:     result.Data,
				Metadata: scrapeResp.Metadata,
				Tokens:   scrapeResp.Tokens,
				Timing: models.ExtractTimingInfo{
					TotalMs:      time.Since(totalStart).Milliseconds(),
					NavigationMs: navigationMs,
					CleaningMs:   cleaningMs,
					ExtractionMs: extractionMs,
				},
				LLMUsage: result.Usage,
			}
		} else {
			schema := make(extract.Schema, len(req.Fields))
			for i, f := range req.Fields {
				schema[i] = extract.FieldSpec{
					Name:        f.Name,
					Description: f.Description,
					FieldType:   extract.FieldType(f.FieldType),
					Required:    f.Required,
				}
			}
			src := extract.SourceFromScrapeResponse(scrapeResp)
			result := extract.Project(schema, req.Prompt, src)
			extractionMs := time.Since(extractStart).Milliseconds()

			extractResp = models.ExtractResponse{
				Success:    true,
				Data:       result.Data,
				Metadata:   scrapeResp.Metadata,
				Tokens:     scrapeResp.Tokens,
				Confidence: result.Confidence,
				Warnings:   result.Warnings,
				Timing: models.ExtractTimingInfo{
					TotalMs:      time.Since(totalStart).Milliseconds(),
					NavigationMs: navigationMs,
					CleaningMs:   cleaningMs,
					ExtractionMs: extractionMs,
				},
			}
		}

		if hist != nil {
			domain := ""
			if u, err := url.Parse(req.URL); err == nil {
				domain = u.Host
			}
			if raw, err := json.Marshal(extractResp.Data); err == nil {
				preview := string(raw)
				if len(preview) > 280 {
					preview = preview[:280]
				}
				hist.LogScrape(req.URL, extractResp.Metadata.Title, preview, domain, raw)
			}
		}

		c.JSON(http.StatusOK, extractResp)
	}
}

// respondExtractError maps a ScrapeError to the correct HTTP status and writes
// a structured JSON error response for the extract endpoint.
func respondExtractError(c *gin.Context, err error, timing models.ExtractTimingInfo) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapExtractErrorToStatus(scrapeErr), models.ExtractResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapExtractErrorToStatus translates error codes to HTTP status codes,
// including LLM-specific codes.
func mapExtractErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case models.ErrCodeNavigation:
		return http.StatusBadGateway
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized
	case models.ErrCodeLLMFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
