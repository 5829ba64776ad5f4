package format

import "fmt"

var suffixes = []struct {
	threshold float64
	suffix    string
}{
	{1e15, "Q"},
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Currency renders a USD amount. Values below 1000 keep two decimals with no
// compaction; larger values are compacted with K/M/B/T/Q suffixes, dropping
// to zero decimals once the compacted magnitude reaches 100.
func Currency(v float64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	for _, s := range suffixes {
		if v >= s.threshold {
			scaled := v / s.threshold
			if scaled >= 100 {
				return fmt.Sprintf("%s$%.0f%s", neg, scaled, s.suffix)
			}
			return fmt.Sprintf("%s$%.2f%s", neg, scaled, s.suffix)
		}
	}
	return fmt.Sprintf("%s$%.2f", neg, v)
}

// Trend colors understood by the presentation layer.
const (
	ColorGreen   = "green"
	ColorRed     = "red"
	ColorNeutral = "neutral"
)

// ChangeColor maps a signed percent change to a trend color. Zero counts as
// non-negative.
func ChangeColor(delta float64) string {
	if delta < 0 {
		return ColorRed
	}
	return ColorGreen
}

// RSIColor maps an RSI value to a trend color: oversold (<30) green,
// overbought (>70) red.
func RSIColor(rsi float64) string {
	switch {
	case rsi < 30:
		return ColorGreen
	case rsi > 70:
		return ColorRed
	}
	return ColorNeutral
}
