// Package stats provides the descriptive statistics behind the analytics
// views: moving averages, returns, covariance and linear regression.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"chartlab/internal/models"
)

// SMA returns the simple moving average of values over a trailing window.
// Index i is missing until window consecutive present values end at i.
// A running sum is kept and the value leaving the window is subtracted.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = models.Missing
		}
		return out
	}

	var sum float64
	run := 0
	for i, v := range values {
		if models.IsMissing(v) {
			sum = 0
			run = 0
			out[i] = models.Missing
			continue
		}
		sum += v
		run++
		if run > window {
			sum -= values[i-window]
			run = window
		}
		if run == window {
			out[i] = sum / float64(window)
		} else {
			out[i] = models.Missing
		}
	}
	return out
}

// SMAWindow computes the same average as SMA by summing each window directly.
func SMAWindow(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = models.Missing
		if window <= 0 || i < window-1 {
			continue
		}
		var sum float64
		complete := true
		for _, v := range values[i-window+1 : i+1] {
			if models.IsMissing(v) {
				complete = false
				break
			}
			sum += v
		}
		if complete {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// ReturnsPct returns (curr-prev)/prev for every adjacent pair where both
// values are present and prev is non-zero. Other pairs are skipped, so the
// result may be shorter than len(values)-1.
func ReturnsPct(values []float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		a, b := values[i-1], values[i]
		if models.IsMissing(a) || models.IsMissing(b) || a == 0 {
			continue
		}
		out = append(out, (b-a)/a)
	}
	return out
}

// CovVarResult holds sample covariance, variance of x and both means.
type CovVarResult struct {
	Cov   float64
	VarX  float64
	MeanX float64
	MeanY float64
}

// CovVar computes the sample covariance of x and y and the sample variance
// of x over n = min(len(x), len(y)) elements. The caller aligns the inputs;
// the last n elements of each are used. Zeros are returned when n < 2.
func CovVar(x, y []float64) CovVarResult {
	x, y = alignTail(x, y)
	if len(x) < 2 {
		return CovVarResult{}
	}
	return CovVarResult{
		Cov:   stat.Covariance(x, y, nil),
		VarX:  stat.Variance(x, nil),
		MeanX: stat.Mean(x, nil),
		MeanY: stat.Mean(y, nil),
	}
}

// LinearRegression fits y ≈ alpha + beta*x. Beta is 0 when x has no variance.
func LinearRegression(x, y []float64) models.RegressionResult {
	cv := CovVar(x, y)
	beta := 0.0
	if cv.VarX != 0 {
		beta = cv.Cov / cv.VarX
	}
	alpha := cv.MeanY - beta*cv.MeanX
	return models.RegressionResult{
		Alpha: alpha,
		Beta:  beta,
		R2:    RSquared(x, y, beta, alpha),
	}
}

// RSquared returns 1 - SSres/SStot for the fit alpha + beta*x.
//
// A constant y has SStot == 0 and yields 0 rather than an undefined value.
// This also reports a perfect fit of constant data as 0. Display code relies
// on always receiving a number.
func RSquared(x, y []float64, beta, alpha float64) float64 {
	x, y = alignTail(x, y)
	n := len(x)
	if n < 2 {
		return 0
	}
	my := stat.Mean(y, nil)
	var ssTot, ssRes float64
	for i := 0; i < n; i++ {
		pred := alpha + beta*x[i]
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - my) * (y[i] - my)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// MeanStdDev returns the mean and sample standard deviation of values,
// ignoring missing entries. The denominator is max(1, n-1).
func MeanStdDev(values []float64) (mean, sd float64) {
	vals := Present(values)
	n := len(vals)
	if n == 0 {
		return 0, 0
	}
	mean = stat.Mean(vals, nil)
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	den := n - 1
	if den < 1 {
		den = 1
	}
	return mean, math.Sqrt(ss / float64(den))
}

// ZScore returns (v-mean)/sd, or 0 when sd is 0.
func ZScore(v, mean, sd float64) float64 {
	if sd == 0 {
		return 0
	}
	return (v - mean) / sd
}

// PctChange returns the percentage change from a to b. ok is false when a
// is zero or either value is missing.
func PctChange(a, b float64) (pct float64, ok bool) {
	if a == 0 || models.IsMissing(a) || models.IsMissing(b) {
		return 0, false
	}
	return (b - a) / a * 100, true
}

// Extent returns the min and max of the present values. ok is false when
// no value is present.
func Extent(values []float64) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if models.IsMissing(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// Present returns values without missing entries.
func Present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !models.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the final element of values, missing when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return models.Missing
	}
	return values[len(values)-1]
}

// Scale multiplies every value by f.
func Scale(values []float64, f float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * f
	}
	return out
}

// alignTail trims x and y to their common trailing length.
func alignTail(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	return x[len(x)-n:], y[len(y)-n:]
}
