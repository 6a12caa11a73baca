package schedule

import "github.com/shopspring/decimal"

// cents adds the amounts as decimals and rounds the sum to whole cents
func cents(amounts ...float64) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.Round(2)
}

// owed is what is left of total after paid, never below zero
func owed(total, paid decimal.Decimal) float64 {
	return decimal.Max(decimal.Zero, total.Sub(paid)).InexactFloat64()
}
