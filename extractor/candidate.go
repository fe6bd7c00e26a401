package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/shopspring/decimal"
	"github.com/use-agent/pricewatch/pricing"
)

// candidate is one place on a product page where a price may be rendered.
// Extractors try their candidates in priority order.
type candidate struct {
	selector cascadia.Selector
	attr     string // empty: use element text
	style    pricing.Style
}

// textAt reads the trimmed text of the first element matching sel.
func textAt(sel string, style pricing.Style) candidate {
	return candidate{selector: cascadia.MustCompile(sel), style: style}
}

// attrAt reads attribute attr of the first element matching sel.
func attrAt(sel, attr string, style pricing.Style) candidate {
	return candidate{selector: cascadia.MustCompile(sel), attr: attr, style: style}
}

func (c candidate) read(doc *goquery.Document) (decimal.Decimal, bool) {
	sel := doc.FindMatcher(c.selector).First()
	if sel.Length() == 0 {
		return decimal.Zero, false
	}
	var raw string
	if c.attr != "" {
		v, ok := sel.Attr(c.attr)
		if !ok {
			return decimal.Zero, false
		}
		raw = v
	} else {
		raw = strings.TrimSpace(sel.Text())
	}
	if raw == "" {
		return decimal.Zero, false
	}
	return pricing.Parse(raw, c.style)
}

// firstPrice returns the first candidate that parses.
func firstPrice(doc *goquery.Document, candidates []candidate) (decimal.Decimal, bool) {
	for _, c := range candidates {
		if d, ok := c.read(doc); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// stockSignal detects a site's out-of-stock control: the text of the
// matching elements contains phrase.
type stockSignal struct {
	selector cascadia.Selector
	phrase   string
}

func stockWhen(sel, phrase string) *stockSignal {
	return &stockSignal{selector: cascadia.MustCompile(sel), phrase: phrase}
}

func (s *stockSignal) outOfStock(doc *goquery.Document) bool {
	if s == nil {
		return false
	}
	text := strings.TrimSpace(doc.FindMatcher(s.selector).Text())
	return text != "" && strings.Contains(text, s.phrase)
}
