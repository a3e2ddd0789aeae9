package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/proxy"
)

// Proxy returns a handler for POST /api/v1/proxy, dispatching on
// ProxyRequest.Action: grab (refresh from remote sources), list (snapshot),
// status (pool size), switch (pick best for
// a host), test (alias for switch, kept separate for tool-surface clarity).
func Proxy(mgr *proxy.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProxyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ProxyResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if mgr == nil {
			c.JSON(http.StatusServiceUnavailable, models.ProxyResponse{
				Success: false,
				Action:  req.Action,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNoProxies,
					Message: "proxy manager is not configured",
				},
			})
			return
		}

		switch req.Action {
		case "grab":
			added, warnings, err := mgr.RefreshFromSources(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusBadGateway, models.ProxyResponse{
					Success: false,
					Action:  req.Action,
					Error:   models.NewScrapeError(models.ErrCodeInternal, err.Error(), err).ToDetail(),
				})
				return
			}
			c.JSON(http.StatusOK, models.ProxyResponse{
				Success:  true,
				Action:   req.Action,
				Added:    added,
				Warnings: warnings,
				Total:    mgr.Len(),
			})

		case "list":
			snapshot := mgr.Snapshot()
			entries := make([]models.ProxyEntryView, 0, len(snapshot))
			for _, e := range snapshot {
				entries = append(entries, toProxyView(e))
			}
			c.JSON(http.StatusOK, models.ProxyResponse{
				Success: true,
				Action:  req.Action,
				Total:   len(entries),
				Entries: entries,
			})

		case "status":
			c.JSON(http.StatusOK, models.ProxyResponse{
				Success: true,
				Action:  req.Action,
				Total:   mgr.Len(),
			})

		case "switch", "test":
			if req.Host == "" {
				c.JSON(http.StatusBadRequest, models.ProxyResponse{
					Success: false,
					Action:  req.Action,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInvalidInput,
						Message: "host is required for switch/test",
					},
				})
				return
			}
			entry, ok := mgr.SwitchToBest(req.Host)
			if !ok {
				c.JSON(http.StatusNotFound, models.ProxyResponse{
					Success: false,
					Action:  req.Action,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeNoProxies,
						Message: "no eligible proxy for host",
					},
				})
				return
			}
			view := toProxyView(entry)
			c.JSON(http.StatusOK, models.ProxyResponse{
				Success:  true,
				Action:   req.Action,
				Selected: &view,
			})

		default:
			c.JSON(http.StatusBadRequest, models.ProxyResponse{
				Success: false,
				Action:  req.Action,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "unknown action",
				},
			})
		}
	}
}

func toProxyView(e proxy.Entry) models.ProxyEntryView {
	return models.ProxyEntryView{
		Endpoint:     e.Masked(),
		Priority:     e.Priority,
		LatencyMS:    e.LatencyMS,
		FailureCount: e.FailureCount,
		SuccessCount: e.SuccessCount,
		Disabled:     e.Disabled,
	}
}
