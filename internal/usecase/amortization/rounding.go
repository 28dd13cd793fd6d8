package amortization

import "github.com/shopspring/decimal"

const currencyPlaces = 2

// roundCurrency rounds half away from zero to cents. The float is first turned
// into its shortest decimal representation, so 1.005 rounds to 1.01.
func roundCurrency(v float64) float64 {
	return decimal.NewFromFloat(v).Round(currencyPlaces).InexactFloat64()
}

// roundBalance is roundCurrency clamped to zero; drift on the last periods can
// leave a balance a hair below zero.
func roundBalance(v float64) float64 {
	if r := roundCurrency(v); r > 0 {
		return r
	}
	return 0
}
