// Package extractor holds one price-extraction strategy per monitored
// competitor site and the static registry that maps competitor ids to them.
//
// Extractors never return errors: transport and parse failures are logged
// and reported as models.Unavailable so a batch is never aborted by one
// competitor.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
)

// Extractor turns a competitor product URL into a price result.
type Extractor interface {
	// ID is the competitor this extractor serves.
	ID() models.CompetitorID

	// Extract fetches pageURL and returns the listed price, OutOfStock, or
	// Unavailable. It must not panic and never returns an error.
	Extract(ctx context.Context, pageURL string) models.PriceResult
}

// fetchDocument GETs pageURL through client and parses the body as HTML.
func fetchDocument(ctx context.Context, client *engine.Client, call engine.Call) (*goquery.Document, error) {
	resp, err := client.Do(ctx, call)
	if err != nil {
		return nil, err
	}
	return parseDocument(resp.Body)
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// unavailable logs why a lookup produced no price.
func unavailable(id models.CompetitorID, pageURL, reason string, err error) models.PriceResult {
	args := []any{"competitor", id, "url", pageURL, "reason", reason}
	if err != nil {
		args = append(args, "error", err)
	}
	slog.Warn("price extraction failed", args...)
	return models.Unavailable()
}

func outOfStock(id models.CompetitorID, pageURL string) models.PriceResult {
	slog.Info("product out of stock", "competitor", id, "url", pageURL)
	return models.OutOfStock()
}
