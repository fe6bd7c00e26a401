package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/pricing"
)

// BTechAPI is the btech.com GraphQL search endpoint.
const BTechAPI = "https://btech.com/graphql"

const btechQuery = `query mirasvitSearch($query: String!, $pageSize: Int, $currentPage: Int) {
  search(query: $query) {
    magento_catalog_product(pageSize: $pageSize, currentPage: $currentPage) {
      items {
        name
        price_range {
          minimum_price {
            final_price { value currency }
          }
        }
      }
    }
  }
}`

var modelLabel = regexp.MustCompile(`رقم الموديل|الموديل`)

type btechResponse struct {
	Data struct {
		Search struct {
			Catalog struct {
				Items []struct {
					Name       string `json:"name"`
					PriceRange struct {
						MinimumPrice struct {
							FinalPrice struct {
								Value *json.Number `json:"value"`
							} `json:"final_price"`
						} `json:"minimum_price"`
					} `json:"price_range"`
				} `json:"items"`
			} `json:"magento_catalog_product"`
		} `json:"search"`
	} `json:"data"`
}

// btechExtractor reads the model code off the product page and searches
// the catalogue API for it; the page itself does not carry a reliable price.
type btechExtractor struct {
	client *engine.Client
	apiURL string
}

// NewBTech creates the btech extractor. apiURL overrides BTechAPI when
// non-empty.
func NewBTech(client *engine.Client, apiURL string) Extractor {
	if apiURL == "" {
		apiURL = BTechAPI
	}
	return &btechExtractor{client: client, apiURL: apiURL}
}

func (e *btechExtractor) ID() models.CompetitorID { return BTech }

func (e *btechExtractor) Extract(ctx context.Context, pageURL string) models.PriceResult {
	doc, err := fetchDocument(ctx, e.client, engine.Call{URL: pageURL, Timeout: defaultPageTimeout})
	if err != nil {
		return unavailable(BTech, pageURL, "fetch", err)
	}

	code := modelCode(doc)
	if code == "" {
		return unavailable(BTech, pageURL, "no model code", nil)
	}

	var out btechResponse
	err = e.client.PostJSON(ctx, e.apiURL, map[string]any{
		"query": btechQuery,
		"variables": map[string]any{
			"query":       code,
			"pageSize":    1,
			"currentPage": 1,
		},
	}, &out, engine.Call{
		Timeout: defaultPageTimeout,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return unavailable(BTech, pageURL, "graphql", err)
	}

	items := out.Data.Search.Catalog.Items
	if len(items) == 0 || items[0].PriceRange.MinimumPrice.FinalPrice.Value == nil {
		return unavailable(BTech, pageURL, "model not found: "+code, nil)
	}
	d, ok := pricing.ParseJSONNumber(items[0].PriceRange.MinimumPrice.FinalPrice.Value.String())
	if !ok {
		return unavailable(BTech, pageURL, "bad price value", nil)
	}
	return models.Price(d)
}

// modelCode finds the product detail row labelled with the model number.
func modelCode(doc *goquery.Document) string {
	var code string
	doc.Find("div.detail").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !modelLabel.MatchString(s.Find("strong").Text()) {
			return true
		}
		code = strings.TrimSpace(s.Find("p").First().Text())
		return code == ""
	})
	return code
}
