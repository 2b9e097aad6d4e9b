package resample

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"chartlab/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestToMonthlyKeepsLastClose(t *testing.T) {
	series := models.Series{
		{Time: day(2024, time.January, 1), Close: 10},
		{Time: day(2024, time.January, 15), Close: 12},
		{Time: day(2024, time.February, 2), Close: 9},
	}

	got := ToMonthly(series)
	want := []models.AggregatedPoint{
		{PeriodKey: "2024-01", Close: 12},
		{PeriodKey: "2024-02", Close: 9},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToMonthly = %v, want %v", got, want)
	}
}

func TestToMonthlySkipsMissing(t *testing.T) {
	series := models.Series{
		{Time: day(2024, time.January, 2), Close: 10},
		{Time: day(2024, time.January, 31), Close: models.Missing},
		{Time: day(2024, time.February, 1), Close: models.Missing},
		{Time: day(2024, time.February, 29), Close: models.Missing},
		{Time: day(2024, time.March, 4), Close: 14},
	}

	got := ToMonthly(series)
	want := []models.AggregatedPoint{
		{PeriodKey: "2024-01", Close: 10},
		{PeriodKey: "2024-03", Close: 14},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToMonthly = %v, want %v", got, want)
	}
}

func TestToQuarterly(t *testing.T) {
	series := models.Series{
		{Time: day(2023, time.November, 30), Close: 5},
		{Time: day(2024, time.January, 5), Close: 6},
		{Time: day(2024, time.March, 28), Close: 7},
		{Time: day(2024, time.April, 1), Close: 8},
		{Time: day(2024, time.December, 31), Close: 11},
	}

	got := ToQuarterly(series)
	want := []models.AggregatedPoint{
		{PeriodKey: "2023-Q4", Close: 5},
		{PeriodKey: "2024-Q1", Close: 7},
		{PeriodKey: "2024-Q2", Close: 8},
		{PeriodKey: "2024-Q4", Close: 11},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToQuarterly = %v, want %v", got, want)
	}
}

func TestMonthKeyUsesUTC(t *testing.T) {
	// 23:30 on Jan 31 in New York is Feb 1 in UTC.
	ny := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, time.January, 31, 23, 30, 0, 0, ny)
	if got := MonthKey(ts); got != "2024-02" {
		t.Errorf("MonthKey = %s, want 2024-02", got)
	}
	if got := QuarterKey(ts); got != "2024-Q1" {
		t.Errorf("QuarterKey = %s, want 2024-Q1", got)
	}
}

func TestByUnknownPeriod(t *testing.T) {
	if _, err := By(nil, Period("weekly")); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestEmptySeries(t *testing.T) {
	if got := ToMonthly(nil); len(got) != 0 {
		t.Errorf("expected no points, got %v", got)
	}
}

// Property: monthly output has one point per distinct (year, month) with at
// least one close, and each value is the last close of its month.
func TestProperty_MonthlyMatchesDistinctMonths(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("one point per populated month, last close wins", prop.ForAll(
		func(closes []float64, gaps []int) bool {
			start := day(2022, time.March, 1)
			series := make(models.Series, len(closes))
			ts := start
			for i, c := range closes {
				if i < len(gaps) {
					ts = ts.Add(time.Duration(gaps[i]) * 24 * time.Hour)
				}
				if math.Mod(c, 7) < 1 {
					c = models.Missing
				}
				series[i] = models.Sample{Time: ts, Close: c}
			}

			lastByKey := map[string]float64{}
			var order []string
			for _, s := range series {
				if !s.Valid() {
					continue
				}
				k := MonthKey(s.Time)
				if _, seen := lastByKey[k]; !seen {
					order = append(order, k)
				}
				lastByKey[k] = s.Close
			}

			got := ToMonthly(series)
			if len(got) != len(order) {
				t.Logf("len = %d, want %d", len(got), len(order))
				return false
			}
			for i, p := range got {
				if p.PeriodKey != order[i] || p.Close != lastByKey[p.PeriodKey] {
					t.Logf("point %d = %v, want %s=%v", i, p, order[i], lastByKey[order[i]])
					return false
				}
			}
			return true
		},
		gen.SliceOfN(120, gen.Float64Range(1, 500)),
		gen.SliceOfN(120, gen.IntRange(1, 9)),
	))

	properties.TestingRun(t)
}
