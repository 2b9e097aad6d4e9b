// Package models provides domain models for the charting and analytics engine.
package models

import (
	"math"
	"strings"
	"time"
)

// Market represents the market a symbol trades in.
type Market string

const (
	MarketStocks  Market = "stocks"
	MarketIndices Market = "indices"
	MarketFX      Market = "fx"
)

// MarketOf infers the market from a ticker prefix ("I:" indices, "C:" fx).
func MarketOf(ticker string) Market {
	switch {
	case strings.HasPrefix(ticker, "I:"):
		return MarketIndices
	case strings.HasPrefix(ticker, "C:"):
		return MarketFX
	default:
		return MarketStocks
	}
}

// ParseMarket validates a market name. The empty string infers it from the
// ticker.
func ParseMarket(name, ticker string) (Market, bool) {
	switch Market(strings.ToLower(name)) {
	case "":
		return MarketOf(ticker), true
	case MarketStocks:
		return MarketStocks, true
	case MarketIndices:
		return MarketIndices, true
	case MarketFX, "forex":
		return MarketFX, true
	}
	return "", false
}

// Missing marks an unavailable close. It is never interpolated.
var Missing = math.NaN()

// IsMissing reports whether v marks an unavailable value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Sample represents one trading day's close.
type Sample struct {
	Time  time.Time
	Close float64
}

// Valid returns true if the sample carries a close.
func (s Sample) Valid() bool {
	return !IsMissing(s.Close)
}

// Series is a time-ascending sequence of samples. Index position doubles as
// the x-axis ordinal.
type Series []Sample

// Closes extracts the close values, missing values included.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Close
	}
	return out
}

// Labels formats every sample time in UTC with the given layout.
func (s Series) Labels(layout string) []string {
	out := make([]string, len(s))
	for i, smp := range s {
		out[i] = smp.Time.UTC().Format(layout)
	}
	return out
}

// Slice returns the inclusive sub-series [a, b]. Out-of-range bounds are clamped.
func (s Series) Slice(a, b int) Series {
	if len(s) == 0 {
		return nil
	}
	if a < 0 {
		a = 0
	}
	if b > len(s)-1 {
		b = len(s) - 1
	}
	if a > b {
		return nil
	}
	return s[a : b+1]
}

// Tail returns the last n samples.
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return nil
	}
	return s[len(s)-n:]
}

// Last returns the final sample and false when the series is empty.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}

// HasData returns true if at least one sample carries a close.
func (s Series) HasData() bool {
	for _, smp := range s {
		if smp.Valid() {
			return true
		}
	}
	return false
}

// AggregatedPoint is one calendar period collapsed to its last close.
type AggregatedPoint struct {
	PeriodKey string  `json:"period"`
	Close     float64 `json:"close"`
}

// Viewport is an inclusive index range into a series.
type Viewport struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Span returns B - A.
func (v Viewport) Span() int {
	return v.B - v.A
}

// Contains reports whether idx lies in [A, B].
func (v Viewport) Contains(idx int) bool {
	return idx >= v.A && idx <= v.B
}

// TickSet holds nice rounded axis bounds and evenly spaced tick values.
type TickSet struct {
	Ticks []float64
	Min   float64
	Max   float64
}

// Step returns the spacing between ticks, 0 when fewer than two ticks exist.
func (t TickSet) Step() float64 {
	if len(t.Ticks) < 2 {
		return 0
	}
	return t.Ticks[1] - t.Ticks[0]
}

// RegressionResult holds the fit of y ≈ Alpha + Beta*x.
type RegressionResult struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	R2    float64 `json:"r2"`
}

// AnalysisSet is the long history used by the analytics views, with an
// optional benchmark series.
type AnalysisSet struct {
	Symbol          string `json:"symbol"`
	Market          Market `json:"market"`
	Days            int    `json:"days"`
	Series          Series `json:"-"`
	Benchmark       Series `json:"-"`
	BenchmarkTicker string `json:"benchmark_ticker,omitempty"`
}

// HasBenchmark returns true if a benchmark series was found.
func (a *AnalysisSet) HasBenchmark() bool {
	return a != nil && a.BenchmarkTicker != "" && len(a.Benchmark) > 0
}
