package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		style Style
		want  string
		ok    bool
	}{
		{"decimal attribute", "1299.5", Decimal, "1299.5", true},
		{"decimal with currency", "EGP 1234.50", Decimal, "1234.5", true},
		{"decimal arabic currency before", "ج.م 1500", Decimal, "1500", true},
		{"decimal arabic currency after", "1500 ج.م", Decimal, "1500", true},
		{"decimal drops commas", "12,999.00", Decimal, "12999", true},
		{"grouped", "1,234.56 EGP", Grouped, "1234.56", true},
		{"grouped amazon", "EGP 26,499.00", Grouped, "26499", true},
		{"integer", "26,499 جنيه", Integer, "26499", true},
		{"auto european", "1.234,56", Auto, "1234.56", true},
		{"auto us", "1,299.00", Auto, "1299", true},
		{"auto grouping comma", "26,499", Auto, "26499", true},
		{"auto decimal comma", "12,5", Auto, "12.5", true},
		{"auto dotted grouping", "1.234.567", Auto, "1234567", true},
		{"zero is a price", "0.00", Decimal, "0", true},
		{"no digits", "Call for price", Decimal, "", false},
		{"empty", "", Auto, "", false},
		{"arabic-indic digits", "١٢٣٤", Decimal, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text, tt.style)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestParseJSONNumber(t *testing.T) {
	d, ok := ParseJSONNumber(" 15999.99 ")
	assert.True(t, ok)
	assert.Equal(t, "15999.99", d.String())

	_, ok = ParseJSONNumber("null")
	assert.False(t, ok)
}
