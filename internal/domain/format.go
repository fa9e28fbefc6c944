package domain

import "github.com/shopspring/decimal"

// FormatPrice renders a USD price with precision suited to its magnitude:
// two places from $1 up, four below, six below one cent.
func FormatPrice(v float64) string {
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return "$" + d.StringFixed(2)
	case abs.GreaterThanOrEqual(decimal.New(1, -2)):
		return "$" + d.StringFixed(4)
	default:
		return "$" + d.StringFixed(6)
	}
}

// FormatPercent renders a signed percentage with two places.
func FormatPercent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// FormatCompact renders large amounts with a K/M/B/T suffix.
func FormatCompact(v float64) string {
	d := decimal.NewFromFloat(v)
	for _, unit := range []struct {
		suffix string
		exp    int32
	}{{"T", 12}, {"B", 9}, {"M", 6}, {"K", 3}} {
		scale := decimal.New(1, unit.exp)
		if d.Abs().GreaterThanOrEqual(scale) {
			return d.Div(scale).StringFixed(2) + unit.suffix
		}
	}
	return d.StringFixed(0)
}
