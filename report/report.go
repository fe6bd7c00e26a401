// Package report derives the comparison columns shown to buyers from a
// batch's product reports: competitor price statistics, where our selling
// price sits among them, and whether our cost leaves room to compete.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/pricing"
)

// Position classifies our selling price against competitor prices.
type Position string

const (
	Lowest   Position = "Lowest"
	Highest  Position = "Highest"
	BelowAvg Position = "Below Avg"
	AboveAvg Position = "Above Avg"
	NoData   Position = "No data"
)

// Feasibility classifies our cost against the cheapest competitor.
type Feasibility string

const (
	Profitable    Feasibility = "Profitable"
	Breakeven     Feasibility = "Breakeven"
	Loss          Feasibility = "Loss"
	NoFeasibility Feasibility = "No data"
)

// Stats summarizes the competitor prices of one product. Only Price results
// count; OutOfStock and Unavailable are excluded.
type Stats struct {
	Min   decimal.Decimal
	Max   decimal.Decimal
	Avg   decimal.Decimal
	Count int
}

// Empty reports whether no competitor had a price.
func (s Stats) Empty() bool { return s.Count == 0 }

// Summarize computes Stats over prices.
func Summarize(prices map[models.CompetitorID]models.PriceResult) Stats {
	var s Stats
	sum := decimal.Zero
	for _, r := range prices {
		amount, ok := r.Amount()
		if !ok {
			continue
		}
		if s.Count == 0 || amount.LessThan(s.Min) {
			s.Min = amount
		}
		if s.Count == 0 || amount.GreaterThan(s.Max) {
			s.Max = amount
		}
		sum = sum.Add(amount)
		s.Count++
	}
	if s.Count > 0 {
		s.Avg = sum.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}

// PricePosition places selling among the competitor prices in s.
func PricePosition(selling string, s Stats) Position {
	price, ok := parseAmount(selling)
	if !ok || s.Empty() {
		return NoData
	}
	switch {
	case price.Equal(s.Min):
		return Lowest
	case price.Equal(s.Max):
		return Highest
	case price.LessThan(s.Avg):
		return BelowAvg
	default:
		return AboveAvg
	}
}

// Assess compares cost with the cheapest competitor price in s.
func Assess(cost string, s Stats) Feasibility {
	c, ok := parseAmount(cost)
	if !ok || s.Empty() {
		return NoFeasibility
	}
	switch {
	case s.Min.GreaterThan(c):
		return Profitable
	case s.Min.Equal(c):
		return Breakeven
	default:
		return Loss
	}
}

// Row is one product with its derived columns.
type Row struct {
	models.ProductReport
	Stats       Stats
	Position    Position
	Feasibility Feasibility
}

// Build derives the report row for r.
func Build(r models.ProductReport) Row {
	s := Summarize(r.Prices)
	return Row{
		ProductReport: r,
		Stats:         s,
		Position:      PricePosition(r.SellingPrice, s),
		Feasibility:   Assess(r.Cost, s),
	}
}

// Competitors returns every competitor id that appears in reports, sorted.
func Competitors(reports []models.ProductReport) []models.CompetitorID {
	seen := make(map[models.CompetitorID]struct{})
	for _, r := range reports {
		for id := range r.Prices {
			seen[id] = struct{}{}
		}
	}
	ids := make([]models.CompetitorID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// parseAmount reads a spreadsheet cost or selling price. "Unknown" and
// blank cells have no amount.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, models.UnknownField) {
		return decimal.Zero, false
	}
	return pricing.Parse(s, pricing.Auto)
}
