package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/pricing"
)

// RayashopAPI is the storefront GraphQL endpoint for the Arabic store.
const RayashopAPI = "https://api-rayashop.global.ssl.fastly.net/graphql?storeCode=ar"

const rayashopQuery = `query ProductInstallments($slug: String!, $corporateId: Int) {
  product: product(url_key: $slug) {
    price_range {
      maximum_price {
        final_price { value }
        regular_price { value }
      }
    }
  }
}`

var rayashopStock = stockWhen("span.AppButton__text", "أعلمني عند توفره")

type rayashopResponse struct {
	Data struct {
		Product *struct {
			PriceRange struct {
				MaximumPrice struct {
					FinalPrice struct {
						Value *json.Number `json:"value"`
					} `json:"final_price"`
				} `json:"maximum_price"`
			} `json:"price_range"`
		} `json:"product"`
	} `json:"data"`
}

// rayashopExtractor checks the product page for the "notify me" control,
// then asks the storefront API for the final price by URL slug.
type rayashopExtractor struct {
	client *engine.Client
	apiURL string
}

// NewRayashop creates the rayashop extractor. apiURL overrides RayashopAPI
// when non-empty.
func NewRayashop(client *engine.Client, apiURL string) Extractor {
	if apiURL == "" {
		apiURL = RayashopAPI
	}
	return &rayashopExtractor{client: client, apiURL: apiURL}
}

func (e *rayashopExtractor) ID() models.CompetitorID { return Rayashop }

func (e *rayashopExtractor) Extract(ctx context.Context, pageURL string) models.PriceResult {
	doc, err := fetchDocument(ctx, e.client, engine.Call{URL: pageURL, Timeout: defaultPageTimeout})
	if err != nil {
		return unavailable(Rayashop, pageURL, "fetch", err)
	}
	if rayashopStock.outOfStock(doc) {
		return outOfStock(Rayashop, pageURL)
	}

	slug, err := rayashopSlug(pageURL)
	if err != nil {
		return unavailable(Rayashop, pageURL, "slug", err)
	}

	var out rayashopResponse
	err = e.client.PostJSON(ctx, e.apiURL, map[string]any{
		"query": rayashopQuery,
		"variables": map[string]any{
			"slug":        slug,
			"corporateId": nil,
		},
	}, &out, engine.Call{
		Timeout: defaultPageTimeout,
		Headers: map[string]string{
			"Accept":    "application/json",
			"storeCode": "ar",
		},
	})
	if err != nil {
		return unavailable(Rayashop, pageURL, "graphql", err)
	}

	p := out.Data.Product
	if p == nil || p.PriceRange.MaximumPrice.FinalPrice.Value == nil {
		return unavailable(Rayashop, pageURL, "no price in response", nil)
	}
	d, ok := pricing.ParseJSONNumber(p.PriceRange.MaximumPrice.FinalPrice.Value.String())
	if !ok {
		return unavailable(Rayashop, pageURL, "bad price value", nil)
	}
	return models.Price(d)
}

// rayashopSlug returns the url_key of a product URL such as
// https://rayashop.com/ar/some-product.
func rayashopSlug(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && (segments[0] == "ar" || segments[0] == "en") {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "" {
		return "", errors.New("no product slug in url")
	}
	return strings.TrimSuffix(segments[0], ".html"), nil
}
