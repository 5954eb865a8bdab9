package util

import "github.com/shopspring/decimal"

// Money columns are stored as decimal and parsed to float64 only at the
// JSON boundary.
func MoneyFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func MoneyPtr(d decimal.Decimal) *float64 {
	f := MoneyFloat(d)
	return &f
}
