// Package axis computes nice axis ticks and maps data values to plot pixels.
package axis

import (
	"math"

	"chartlab/internal/models"
)

// DefaultTickCount is the tick count used when none is requested.
const DefaultTickCount = 5

// PlanTicks returns nice rounded bounds enclosing [min, max] and the evenly
// spaced multiples of the chosen step between them.
func PlanTicks(min, max float64, count int) models.TickSet {
	if !finite(min) || !finite(max) {
		return models.TickSet{}
	}
	if count <= 0 {
		count = DefaultTickCount
	}
	if min > max {
		min, max = max, min
	}
	if min == max {
		eps := math.Abs(min)
		if eps < 1 {
			eps = 1
		}
		min -= eps
		max += eps
	}

	step := NiceStep(max-min, count)
	niceMin := math.Floor(min/step) * step
	niceMax := math.Ceil(max/step) * step

	// Both bounds are whole multiples of step, so rounding absorbs drift.
	n := int(math.Round((niceMax - niceMin) / step))
	ticks := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		ticks = append(ticks, niceMin+float64(i)*step)
	}

	return models.TickSet{Ticks: ticks, Min: niceMin, Max: niceMax}
}

// NiceStep picks a 1/2/5/10 multiple of a power of ten so that span is
// covered by roughly count intervals.
func NiceStep(span float64, count int) float64 {
	if count <= 0 {
		count = DefaultTickCount
	}
	c := float64(count)
	raw := math.Pow(10, math.Floor(math.Log10(span/math.Max(1, c))))
	err := span / (c * raw)

	mult := 1.0
	switch {
	case err >= 7.5:
		mult = 10
	case err >= 3:
		mult = 5
	case err >= 1.5:
		mult = 2
	}
	return raw * mult
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
