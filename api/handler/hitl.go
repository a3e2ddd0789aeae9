package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/config"
	"github.com/corestack-dev/purify/hitl"
	"github.com/corestack-dev/purify/models"
)

// HITL returns a handler for POST /api/v1/hitl/fetch, driving a supervised
// visible-browser session for pages that evade normal scraping (logins,
// CAPTCHAs) and require a human to clear them.
func HITL(cfg config.HITLConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.HITLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.HITLResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		effective := cfg
		if req.ChallengeGraceSeconds > 0 {
			effective.ChallengeGraceSeconds = req.ChallengeGraceSeconds
		}

		supervisor := hitl.NewSupervisor(effective)
		result, err := supervisor.Run(c.Request.Context(), req.URL)
		timing := models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}

		if err != nil {
			c.JSON(mapHITLErrorToStatus(err), models.HITLResponse{
				Success: false,
				Error:   hitlErrorDetail(err),
				Timing:  timing,
			})
			return
		}

		c.JSON(http.StatusOK, models.HITLResponse{
			Success:  true,
			HTML:     result.HTML,
			Title:    result.Title,
			FinalURL: result.FinalURL,
			Timing:   timing,
		})
	}
}

func mapHITLErrorToStatus(err error) int {
	switch {
	case errors.Is(err, hitl.ErrConsentRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, hitl.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, hitl.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func hitlErrorDetail(err error) *models.ErrorDetail {
	switch {
	case errors.Is(err, hitl.ErrConsentRequired):
		return &models.ErrorDetail{Code: models.ErrCodeHITLConsentRequired, Message: err.Error()}
	case errors.Is(err, hitl.ErrCancelled):
		return &models.ErrorDetail{Code: models.ErrCodeHITLCancelled, Message: err.Error()}
	case errors.Is(err, hitl.ErrTimeout):
		return &models.ErrorDetail{Code: models.ErrCodeHITLTimeout, Message: err.Error()}
	default:
		return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
	}
}
