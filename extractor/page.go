package extractor

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
)

// pageExtractor covers competitors whose price is present in the product
// page HTML: fetch the page, check the stock signal, then walk the
// candidates.
type pageExtractor struct {
	id         models.CompetitorID
	client     *engine.Client
	renderer   engine.Renderer // when set, the page is rendered instead of fetched
	timeout    time.Duration
	headers    map[string]string
	stock      *stockSignal
	candidates []candidate
}

func (e *pageExtractor) ID() models.CompetitorID { return e.id }

func (e *pageExtractor) Extract(ctx context.Context, pageURL string) models.PriceResult {
	doc, err := e.load(ctx, pageURL)
	if err != nil {
		return unavailable(e.id, pageURL, "fetch", err)
	}
	return e.fromDocument(doc, pageURL)
}

func (e *pageExtractor) load(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if e.renderer != nil {
		body, err := e.renderer.Render(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return parseDocument(body)
	}
	return fetchDocument(ctx, e.client, engine.Call{
		URL:     pageURL,
		Headers: e.headers,
		Timeout: e.timeout,
	})
}

func (e *pageExtractor) fromDocument(doc *goquery.Document, pageURL string) models.PriceResult {
	if e.stock.outOfStock(doc) {
		return outOfStock(e.id, pageURL)
	}
	if d, ok := firstPrice(doc, e.candidates); ok {
		return models.Price(d)
	}
	return unavailable(e.id, pageURL, "no price element", nil)
}
