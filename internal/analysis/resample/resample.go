// Package resample collapses daily series into monthly and quarterly series.
package resample

import (
	"fmt"
	"time"

	"chartlab/internal/models"
)

// Period identifies a calendar grouping.
type Period string

const (
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
)

// MonthKey returns the YYYY-MM key of t in UTC.
func MonthKey(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month()))
}

// QuarterKey returns the YYYY-Qn key of t in UTC.
func QuarterKey(t time.Time) string {
	u := t.UTC()
	q := (int(u.Month())-1)/3 + 1
	return fmt.Sprintf("%04d-Q%d", u.Year(), q)
}

// ToMonthly keeps the last non-missing close of each calendar month.
func ToMonthly(series models.Series) []models.AggregatedPoint {
	return collapse(series, MonthKey)
}

// ToQuarterly keeps the last non-missing close of each calendar quarter.
func ToQuarterly(series models.Series) []models.AggregatedPoint {
	return collapse(series, QuarterKey)
}

// By resamples series to the named period.
func By(series models.Series, p Period) ([]models.AggregatedPoint, error) {
	switch p {
	case Monthly:
		return ToMonthly(series), nil
	case Quarterly:
		return ToQuarterly(series), nil
	default:
		return nil, fmt.Errorf("unknown period %q", p)
	}
}

// collapse scans series in order. A period with no close emits nothing.
func collapse(series models.Series, key func(time.Time) string) []models.AggregatedPoint {
	var out []models.AggregatedPoint
	cur := ""
	last := models.Missing
	started := false

	flush := func() {
		if started && !models.IsMissing(last) {
			out = append(out, models.AggregatedPoint{PeriodKey: cur, Close: last})
		}
	}

	for _, s := range series {
		k := key(s.Time)
		if !started || k != cur {
			flush()
			cur = k
			last = models.Missing
			started = true
		}
		if s.Valid() {
			last = s.Close
		}
	}
	flush()

	return out
}

// Closes extracts the values of aggregated points.
func Closes(points []models.AggregatedPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

// Keys extracts the period keys of aggregated points.
func Keys(points []models.AggregatedPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.PeriodKey
	}
	return out
}
