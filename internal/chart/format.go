package chart

import "github.com/shopspring/decimal"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// Shorten renders an amount compactly for grid cells: 60000 is "60K",
// 1250000 is "1.25M". Zero renders as the empty string. Fractions are
// rounded to two places and trailing zeros dropped.
func Shorten(a Amount) string {
	if a == 0 {
		return ""
	}
	d := decimal.NewFromInt(int64(a))
	switch abs := d.Abs(); {
	case abs.GreaterThanOrEqual(million):
		return d.Div(million).Round(2).String() + "M"
	case abs.GreaterThanOrEqual(thousand):
		return d.Div(thousand).Round(2).String() + "K"
	default:
		return d.String()
	}
}
