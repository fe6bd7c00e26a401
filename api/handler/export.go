package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export returns a handler for POST /api/v1/report/export.
//
// The body is the merged reports of a finished resumption chain; the
// response is the comparison workbook as an attachment.
func Export() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		var buf bytes.Buffer
		if err := spreadsheet.WriteReport(&buf, req.Reports, req.Competitors); err != nil {
			respondError(c, err)
			return
		}

		filename := fmt.Sprintf("price-comparison-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
