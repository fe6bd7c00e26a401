package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/batch"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/spreadsheet"
)

// statusClientClosedRequest is the access-log status of a caller that hung
// up before any product finished.
const statusClientClosedRequest = 499

// Batch returns a handler for POST /api/v1/batch.
//
// The request carries the whole product list plus a resume cursor. A
// complete run answers 200; a run stopped by the deadline answers 206 with
// resume_from, and the caller re-posts with start_index = resume_from.
func Batch(d *batch.Driver, cfg config.BatchConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		runBatch(c, d, cfg, req.Products, req.StartIndex)
	}
}

// Upload returns a handler for POST /api/v1/upload?startIndex=N.
//
// The multipart field "file" holds the product workbook. The workbook is
// parsed in full on every call; a malformed workbook is rejected before any
// price is looked up.
func Upload(d *batch.Driver, cfg config.BatchConfig, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, err := startIndexParam(c)
		if err != nil {
			respondError(c, err)
			return
		}

		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidInput,
				"multipart field \"file\" is required", err))
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidInput, "cannot read upload", err))
			return
		}
		defer f.Close()

		products, err := spreadsheet.ParseProducts(f)
		if err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidSpreadsheet, err.Error(), err))
			return
		}
		runBatch(c, d, cfg, products, start)
	}
}

func runBatch(c *gin.Context, d *batch.Driver, cfg config.BatchConfig, products []models.Product, start int) {
	if cfg.MaxProducts > 0 && len(products) > cfg.MaxProducts {
		respondError(c, models.NewAPIError(models.ErrCodeTooManyProducts,
			fmt.Sprintf("maximum %d products per list", cfg.MaxProducts), nil))
		return
	}

	outcome, err := d.Run(c.Request.Context(), products, start, cfg.Deadline)
	if err != nil {
		if errors.Is(err, batch.ErrInvalidStartIndex) {
			respondError(c, models.NewAPIError(models.ErrCodeInvalidStartIndex, err.Error(), err))
			return
		}
		if errors.Is(err, context.Canceled) {
			// Nobody is left to read a body.
			slog.Info("batch request cancelled by client", "start_index", start)
			c.AbortWithStatus(statusClientClosedRequest)
			return
		}
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !outcome.Complete() {
		status = http.StatusPartialContent
	}
	c.JSON(status, models.NewBatchResponse(outcome, len(products)))
}

// startIndexParam reads the resume cursor from ?startIndex= (or
// ?start_index=); absent means 0.
func startIndexParam(c *gin.Context) (int, error) {
	raw := c.Query("startIndex")
	if raw == "" {
		raw = c.Query("start_index")
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewAPIError(models.ErrCodeInvalidStartIndex,
			fmt.Sprintf("startIndex must be an integer, got %q", raw), err)
	}
	return n, nil
}
