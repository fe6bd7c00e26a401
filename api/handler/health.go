package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/extractor"
	"github.com/use-agent/pricewatch/models"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// Health returns a handler for GET /api/v1/health.
//
// br may be nil when no local browser is running. Status degrades when
// more than 80% of browser pages are busy.
func Health(reg *extractor.Registry, br *engine.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:      "healthy",
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Competitors: reg.Len(),
			Version:     Version,
		}
		if br != nil {
			resp.BrowserEnabled = true
			resp.ActivePages = br.ActivePages()
			resp.MaxPages = br.MaxPages()
			if resp.MaxPages > 0 && resp.ActivePages > int(float64(resp.MaxPages)*0.8) {
				resp.Status = "degraded"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
