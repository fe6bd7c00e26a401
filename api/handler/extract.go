package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/extractor"
	"github.com/use-agent/pricewatch/models"
)

// Extract returns a handler for POST /api/v1/extract.
//
// It runs a single competitor lookup, which is how operators check a
// site's markup still parses. Unsupported competitors answer 200 with
// supported=false and an unavailable result.
func Extract(reg *extractor.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		resp := models.ExtractResponse{
			Competitor: extractor.NormalizeID(req.URL),
			URL:        req.URL,
			Result:     models.Unavailable(),
		}
		if req.Competitor != "" {
			resp.Competitor = extractor.NormalizeID(req.Competitor)
		}

		if ex, ok := reg.Lookup(models.CompetitorID(req.Competitor), req.URL); ok {
			resp.Competitor = ex.ID()
			resp.Supported = true
			resp.Result = ex.Extract(c.Request.Context(), req.URL)
		}

		resp.Timing = models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
		c.JSON(http.StatusOK, resp)
	}
}

// Competitors returns a handler for GET /api/v1/competitors.
func Competitors(reg *extractor.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.CompetitorsResponse{Competitors: reg.IDs()})
	}
}
