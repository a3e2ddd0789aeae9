package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/search"
)

// Search returns a handler for POST /api/v1/search.
//
// Flow:
//  1. Parse & validate SearchRequest, apply defaults.
//  2. Expand the query into a few variants and fan out to the backend.
//  3. Merge, dedupe, and (optionally) rerank the combined hit list.
//  4. Truncate to MaxResults and respond.
func Search(backend search.Backend, hist *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		var merged []search.Result
		for _, variant := range search.ExpandQuery(req.Query) {
			results, err := backend.Search(c.Request.Context(), variant, req.MaxResults)
			if err != nil {
				c.JSON(http.StatusBadGateway, models.SearchResponse{
					Success: false,
					Query:   req.Query,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInternal,
						Message: err.Error(),
					},
					Timing: models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
				})
				return
			}
			merged = append(merged, results...)
		}

		if req.WantsRerank() {
			merged = search.Rerank(req.Query, merged)
		}

		if len(merged) > req.MaxResults {
			merged = merged[:req.MaxResults]
		}

		items := make([]models.SearchResultItem, 0, len(merged))
		for _, r := range merged {
			items = append(items, models.SearchResultItem{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
				Engine:  r.Engine,
				Score:   r.Score,
			})
		}

		if hist != nil {
			if raw, err := json.Marshal(items); err == nil {
				hist.LogSearch(req.Query, raw, len(items))
			}
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Query:   req.Query,
			Results: items,
			Timing:  models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
		})
	}
}
