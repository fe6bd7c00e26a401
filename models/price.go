package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceStatus tags the variant held by a PriceResult.
type PriceStatus string

const (
	StatusPrice       PriceStatus = "price"
	StatusOutOfStock  PriceStatus = "out_of_stock"
	StatusUnavailable PriceStatus = "unavailable"
)

// PriceResult is the outcome of one (product, competitor) lookup: a listed
// price, an explicit out-of-stock signal, or no usable answer.
//
// The zero value is Unavailable.
type PriceResult struct {
	status PriceStatus
	amount decimal.Decimal
}

// Price returns a PriceResult holding amount. Negative amounts are not
// prices and yield Unavailable.
func Price(amount decimal.Decimal) PriceResult {
	if amount.IsNegative() {
		return Unavailable()
	}
	return PriceResult{status: StatusPrice, amount: amount}
}

// OutOfStock returns the explicit out-of-stock result.
func OutOfStock() PriceResult {
	return PriceResult{status: StatusOutOfStock}
}

// Unavailable returns the "no price" result.
func Unavailable() PriceResult {
	return PriceResult{status: StatusUnavailable}
}

// Status returns the variant tag.
func (r PriceResult) Status() PriceStatus {
	if r.status == "" {
		return StatusUnavailable
	}
	return r.status
}

// Amount returns the price and true when r is a Price.
func (r PriceResult) Amount() (decimal.Decimal, bool) {
	if r.status != StatusPrice {
		return decimal.Zero, false
	}
	return r.amount, true
}

// IsPrice reports whether r carries an amount.
func (r PriceResult) IsPrice() bool { return r.status == StatusPrice }

// Equal compares variant and, for prices, numeric value (150 == 150.00).
func (r PriceResult) Equal(o PriceResult) bool {
	if r.Status() != o.Status() {
		return false
	}
	if r.status != StatusPrice {
		return true
	}
	return r.amount.Equal(o.amount)
}

func (r PriceResult) String() string {
	if a, ok := r.Amount(); ok {
		return a.String()
	}
	return string(r.Status())
}

type priceWire struct {
	Status PriceStatus  `json:"status"`
	Amount *json.Number `json:"amount,omitempty"`
}

// MarshalJSON encodes prices as {"status":"price","amount":150.5}; the other
// variants carry no amount.
func (r PriceResult) MarshalJSON() ([]byte, error) {
	w := priceWire{Status: r.Status()}
	if a, ok := r.Amount(); ok {
		n := json.Number(a.String())
		w.Amount = &n
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (r *PriceResult) UnmarshalJSON(data []byte) error {
	var w priceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Status {
	case StatusPrice:
		if w.Amount == nil {
			return fmt.Errorf("price result: missing amount")
		}
		d, err := decimal.NewFromString(w.Amount.String())
		if err != nil {
			return fmt.Errorf("price result: amount: %w", err)
		}
		*r = Price(d)
	case StatusOutOfStock:
		*r = OutOfStock()
	case StatusUnavailable, "":
		*r = Unavailable()
	default:
		return fmt.Errorf("price result: unknown status %q", w.Status)
	}
	return nil
}
