package models

import "strings"

// Sentinel cell values used by the product spreadsheet.
const (
	// NotAvailable marks a competitor column for a product the competitor
	// does not carry.
	NotAvailable = "NA"

	// UnknownField fills a missing Product Name / Code / Cost / Selling Price cell.
	UnknownField = "Unknown"
)

// CompetitorID identifies a competitor by its normalized hostname,
// e.g. "2b.com.eg".
type CompetitorID string

// Product is one row of the uploaded product list. Identity is its position
// in the list; Code is usually, but not necessarily, unique.
type Product struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Cost         string `json:"cost"`
	SellingPrice string `json:"selling_price"`

	// CompetitorURLs maps a competitor column to the product page URL on
	// that competitor's site. Empty or "NA" means the competitor does not
	// carry the product.
	CompetitorURLs map[CompetitorID]string `json:"competitor_urls"`
}

// HasURL reports whether raw is a usable competitor URL rather than an empty
// cell or the "NA" sentinel.
func HasURL(raw string) bool {
	s := strings.TrimSpace(raw)
	return s != "" && !strings.EqualFold(s, NotAvailable)
}

// ProductReport is the per-product aggregate returned to the report consumer.
type ProductReport struct {
	Name         string                       `json:"name"`
	Code         string                       `json:"code"`
	Cost         string                       `json:"cost"`
	SellingPrice string                       `json:"selling_price"`
	Prices       map[CompetitorID]PriceResult `json:"prices"`
}

// NewProductReport copies the fixed fields of p into an empty report.
func NewProductReport(p Product) ProductReport {
	return ProductReport{
		Name:         p.Name,
		Code:         p.Code,
		Cost:         p.Cost,
		SellingPrice: p.SellingPrice,
		Prices:       make(map[CompetitorID]PriceResult, len(p.CompetitorURLs)),
	}
}
