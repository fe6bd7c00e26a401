// Package pricing turns scraped price text into decimal amounts.
//
// Competitor sites render prices with currency names in Latin or Arabic
// script ("EGP", "ج.م"), thousands separators and occasionally a comma as the
// decimal mark. Each Style encodes one site's convention.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Style selects how a price string is cleaned before parsing.
type Style int

const (
	// Decimal keeps ASCII digits and '.', dropping everything else
	// (including commas): "EGP 1234.50" -> 1234.50.
	Decimal Style = iota

	// Grouped keeps digits, '.' and ',' and treats ',' as a thousands
	// separator: "1,234.56 EGP" -> 1234.56.
	Grouped

	// Integer keeps digits only: "EGP 26,499" -> 26499.
	Integer

	// Auto infers which of ',' and '.' is the decimal mark:
	// "1.234,56" -> 1234.56, "1,234.56" -> 1234.56, "26,499" -> 26499,
	// "12,5" -> 12.5.
	Auto
)

// Parse cleans text according to style and parses the leading number.
// It returns false when no ASCII digit survives cleaning.
func Parse(text string, style Style) (decimal.Decimal, bool) {
	var cleaned string
	switch style {
	case Grouped:
		cleaned = strings.ReplaceAll(keep(text, ".,"), ",", "")
	case Integer:
		cleaned = keep(text, "")
	case Auto:
		cleaned = normalizeSeparators(keep(text, ".,"))
	default:
		cleaned = keep(text, ".")
	}
	return leadingNumber(cleaned)
}

// ParseJSONNumber parses a numeric literal taken from a JSON payload.
func ParseJSONNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// keep returns the ASCII digits of s plus any rune listed in extra.
func keep(s, extra string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || strings.ContainsRune(extra, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeSeparators rewrites s (digits, '.' and ',' only) so that '.' is
// the single decimal mark and grouping separators are removed.
func normalizeSeparators(s string) string {
	s = strings.Trim(s, ".,")
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: whichever comes last is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		// Only commas. A single comma followed by one or two digits is a
		// decimal comma; anything else is grouping.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case strings.Count(s, ".") > 1:
		// "1.234.567" uses dots for grouping.
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// leadingNumber parses the longest prefix of s shaped like digits[.digits],
// after trimming stray dots left behind by currency abbreviations such as
// "ج.م".
func leadingNumber(s string) (decimal.Decimal, bool) {
	s = strings.Trim(s, ".")
	end := 0
	seenDot := false
	digits := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' && !seenDot {
			seenDot = true
		} else {
			break
		}
		end++
	}
	if digits == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s[:end], "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
