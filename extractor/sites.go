package extractor

import (
	"time"

	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/pricing"
)

// Competitor ids. These match the normalized host of each site and the
// competitor column headers used in product spreadsheets.
const (
	TwoB       models.CompetitorID = "2b.com.eg"
	ElIraqi    models.CompetitorID = "eliraqi.com.eg"
	ElGhazawy  models.CompetitorID = "elghazawy.com"
	Raneen     models.CompetitorID = "raneen.com"
	ElSindbad  models.CompetitorID = "elsindbadstore.com"
	Rayashop   models.CompetitorID = "rayashop.com"
	BTech      models.CompetitorID = "btech.com"
	AmazonEG   models.CompetitorID = "amazon.eg"
	CairoSales models.CompetitorID = "cairosales.com"
	Serag      models.CompetitorID = "seragsstore.com"
	Noon       models.CompetitorID = "noon.com"
)

const defaultPageTimeout = 15 * time.Second

// New2B reads Magento's data-price-amount attribute, preferring the special
// (discounted) price over the old one.
func New2B(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      TwoB,
		client:  client,
		timeout: defaultPageTimeout,
		candidates: []candidate{
			attrAt(`span.special-price span[data-price-type="finalPrice"]`, "data-price-amount", pricing.Decimal),
			attrAt(`span.old-price span[data-price-type="oldPrice"]`, "data-price-amount", pricing.Decimal),
		},
	}
}

func NewElIraqi(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      ElIraqi,
		client:  client,
		timeout: defaultPageTimeout,
		candidates: []candidate{
			textAt(".discounted-price span", pricing.Grouped),
			textAt(".non-discounted-price span", pricing.Grouped),
		},
	}
}

// NewElGhazawy reports OutOfStock when the add-to-cart button is disabled
// with a "Not available" label.
func NewElGhazawy(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      ElGhazawy,
		client:  client,
		timeout: defaultPageTimeout,
		stock:   stockWhen("button.disable-button", "Not available"),
		candidates: []candidate{
			textAt("p.h2-price.pro-praice.text-primary-800", pricing.Decimal),
		},
	}
}

func NewRaneen(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      Raneen,
		client:  client,
		timeout: 20 * time.Second,
		candidates: []candidate{
			attrAt(`[id^="product-price-"][data-price-amount]`, "data-price-amount", pricing.Decimal),
		},
	}
}

func NewElSindbad(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      ElSindbad,
		client:  client,
		timeout: defaultPageTimeout,
		candidates: []candidate{
			attrAt(`span.special-price meta[itemprop="price"]`, "content", pricing.Decimal),
			textAt("span.special-price .price-wrapper .price", pricing.Integer),
			textAt("span.old-price .price-wrapper .price", pricing.Integer),
		},
	}
}

func NewAmazonEG(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      AmazonEG,
		client:  client,
		timeout: defaultPageTimeout,
		candidates: []candidate{
			textAt(".a-price .a-offscreen", pricing.Grouped),
		},
	}
}

// NewCairoSales sends full navigation headers; the site rejects requests
// that do not look like a top-level browser navigation.
func NewCairoSales(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      CairoSales,
		client:  client,
		timeout: 20 * time.Second,
		headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
		candidates: []candidate{
			attrAt("#our_price_display", "content", pricing.Decimal),
			textAt("#our_price_display", pricing.Decimal),
		},
	}
}

// NewSerag reads the schema.org offer price, which the site keeps in a
// hidden span.
func NewSerag(client *engine.Client) Extractor {
	return &pageExtractor{
		id:      Serag,
		client:  client,
		timeout: 30 * time.Second,
		candidates: []candidate{
			textAt(`div.product_price[itemprop="offers"] span[itemprop="price"]`, pricing.Decimal),
		},
	}
}

// NewNoon renders product pages through r; noon serves prices only after
// client-side rendering.
func NewNoon(r engine.Renderer) Extractor {
	return &pageExtractor{
		id:       Noon,
		renderer: r,
		candidates: []candidate{
			textAt(`[class*="priceNowText"]`, pricing.Auto),
		},
	}
}
