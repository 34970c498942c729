package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// FormatLargeNumber renders a value expressed in millions. Values of a
// thousand or more are shown in billions.
func FormatLargeNumber(millions float64) string {
	if millions == 0 || math.IsNaN(millions) || math.IsInf(millions, 0) {
		return "N/A"
	}
	d := decimal.NewFromFloat(millions)
	if millions >= 1000 {
		return d.Div(decimal.NewFromInt(1000)).StringFixed(2) + "B"
	}
	return d.StringFixed(2) + "M"
}
