// Package utils provides shared utility functions.
package utils

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber formats v with thousands separators and at most maxDecimals
// fraction digits. Trailing zeros are dropped. Missing values render as "-".
func FormatNumber(v float64, maxDecimals int) string {
	if math.IsNaN(v) {
		return "-"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "∞"
		}
		return "-∞"
	}
	if maxDecimals < 0 {
		maxDecimals = 0
	}

	str := strconv.FormatFloat(v, 'f', maxDecimals, 64)
	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")

	intPart, decPart, _ := strings.Cut(str, ".")
	decPart = strings.TrimRight(decPart, "0")

	result := groupThousands(intPart)
	if decPart != "" {
		result += "." + decPart
	}
	if negative && strings.Trim(result, "0.,") != "" {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats a price with two decimals.
func FormatPrice(v float64) string {
	return FormatNumber(v, 2)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return sign + FormatNumber(value, 2) + "%"
}

// FormatFractionPercent formats a fraction (0.05) as a percentage (5%) without sign.
func FormatFractionPercent(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}
	return FormatNumber(value*100, 2) + "%"
}

// FormatRatio formats a ratio with four decimals.
func FormatRatio(value float64) string {
	return FormatNumber(value, 4)
}

// FormatCompact formats large numbers with K/M/B suffixes.
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return FormatNumber(v/1e9, 2) + "B"
	case abs >= 1e6:
		return FormatNumber(v/1e6, 2) + "M"
	case abs >= 1e3:
		return FormatNumber(v/1e3, 2) + "K"
	}
	return FormatNumber(v, 2)
}
