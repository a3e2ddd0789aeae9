package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/models"
)

// History returns a handler for POST /api/v1/history/search, performing a
// hybrid similarity+keyword search over previously logged searches/scrapes.
func History(hist *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HistorySearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.HistorySearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		if hist == nil {
			c.JSON(http.StatusServiceUnavailable, models.HistorySearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: "history store is not configured",
				},
			})
			return
		}

		var entryType *history.EntryType
		if req.EntryType != "" {
			t := history.EntryType(req.EntryType)
			entryType = &t
		}

		scored := hist.Search(c.Request.Context(), req.Query, req.MaxResults, req.MinSimilarity, entryType)

		results := make([]models.HistoryEntryView, 0, len(scored))
		for _, s := range scored {
			results = append(results, models.HistoryEntryView{
				ID:         s.Entry.ID,
				Type:       string(s.Entry.Type),
				Query:      s.Entry.Query,
				Topic:      s.Entry.Topic,
				Summary:    s.Entry.Summary,
				FullResult: s.Entry.FullResult,
				Timestamp:  s.Entry.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				Domain:     s.Entry.Domain,
				Score:      s.Score,
			})
		}

		c.JSON(http.StatusOK, models.HistorySearchResponse{
			Success: true,
			Results: results,
		})
	}
}
