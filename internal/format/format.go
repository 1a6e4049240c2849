// Package format renders game values for players: short-scale numbers and away times.
package format

import (
	"fmt"
	"math"
)

type suffix struct {
	threshold float64
	symbol    string
}

// Largest first.
var suffixes = []suffix{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Number formats n with no decimals below a thousand and K/M/B/T with two decimals above.
func Number(n float64) string {
	return number(n, "%.0f")
}

// NumberPrecise is Number with two decimals below a thousand. Dev views use it.
func NumberPrecise(n float64) string {
	return number(n, "%.2f")
}

func number(n float64, small string) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Sprint(n)
	}
	abs := math.Abs(n)
	for _, s := range suffixes {
		if abs >= s.threshold {
			return fmt.Sprintf("%.2f%s", n/s.threshold, s.symbol)
		}
	}
	return fmt.Sprintf(small, n)
}

// Rate formats a per-second production rate.
func Rate(perSecond float64) string {
	return Number(perSecond) + "/sec"
}

// Duration formats seconds as "Xh Ym", "Ym" or "Xs".
func Duration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", int(seconds))
	}
}
