package analysis

import (
	"fmt"

	"chartlab/internal/analysis/resample"
	"chartlab/internal/analysis/stats"
	"chartlab/internal/errors"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// YearOverYear returns the percentage change from months[len-13] to
// months[len-1].
func YearOverYear(months []models.AggregatedPoint) (float64, error) {
	if len(months) < MinYoYMonths {
		return 0, errors.NewInsufficientDataError("year-over-year", len(months), MinYoYMonths)
	}
	pct, ok := stats.PctChange(months[len(months)-13].Close, months[len(months)-1].Close)
	if !ok {
		return 0, errors.NewDataError("year-over-year", months[len(months)-13].PeriodKey, "base close is zero", errors.ErrZeroBase)
	}
	return pct, nil
}

// QuarterOverQuarter returns the percentage change between the last two
// quarters.
func QuarterOverQuarter(quarters []models.AggregatedPoint) (float64, error) {
	if len(quarters) < MinQoQQuarters {
		return 0, errors.NewInsufficientDataError("quarter-over-quarter", len(quarters), MinQoQQuarters)
	}
	pct, ok := stats.PctChange(quarters[len(quarters)-2].Close, quarters[len(quarters)-1].Close)
	if !ok {
		return 0, errors.NewDataError("quarter-over-quarter", quarters[len(quarters)-2].PeriodKey, "base close is zero", errors.ErrZeroBase)
	}
	return pct, nil
}

// MonthChange is one month-over-month comparison.
type MonthChange struct {
	From, To string
	Pct      float64
}

// MonthOverMonth returns the changes among the last count month pairs,
// newest first. Pairs whose earlier close is zero are skipped.
func MonthOverMonth(months []models.AggregatedPoint, count int) []MonthChange {
	var out []MonthChange
	stop := len(months) - count
	if stop < 1 {
		stop = 1
	}
	for i := len(months) - 1; i >= stop; i-- {
		pct, ok := stats.PctChange(months[i-1].Close, months[i].Close)
		if !ok {
			continue
		}
		out = append(out, MonthChange{
			From: months[i-1].PeriodKey,
			To:   months[i].PeriodKey,
			Pct:  pct,
		})
	}
	return out
}

// Trend reports monthly closes with recent month-over-month and
// year-over-year changes.
type Trend struct {
	Params Params
}

func (t *Trend) Name() string  { return "trend" }
func (t *Trend) Title() string { return "Trend" }

func (t *Trend) Analyze(in *Input) (*Report, error) {
	months := resample.ToMonthly(in.Series)
	if len(months) == 0 {
		return nil, errors.NewDataError("monthly", in.Symbol, "no monthly closes", errors.ErrDataNotFound)
	}

	r := newReport(t.Name(), t.Title())
	count := t.Params.MoMMonths
	if count <= 0 {
		count = DefaultParams().MoMMonths
	}
	latest := months[len(months)-1].PeriodKey
	for _, ch := range MonthOverMonth(months, count) {
		if ch.To == latest {
			r.Metrics["mom_pct"] = ch.Pct
		}
		r.line(fmt.Sprintf("MoM %s → %s: %s", ch.From, ch.To, utils.FormatPercent(ch.Pct)))
	}

	if yoy, err := YearOverYear(months); err == nil {
		r.Metrics["yoy_pct"] = yoy
		r.line("YoY change (latest month): " + utils.FormatPercent(yoy))
	} else if errors.Is(err, errors.ErrZeroBase) {
		r.note(err, "YoY: base month close is zero")
	} else {
		r.note(err, fmt.Sprintf("YoY: not enough data (have %d months, need %d)", len(months), MinYoYMonths))
	}

	r.Plot = Plot{
		Kind:       PlotLine,
		Labels:     resample.Keys(months),
		Series:     []PlotSeries{{Name: "Monthly close", Values: resample.Closes(months)}},
		YFormat:    FormatNumber,
		XTickCount: 8,
		YTickCount: 5,
	}
	return r, nil
}

// Comparative reports year-over-year and quarter-over-quarter changes with
// the last twelve monthly closes.
type Comparative struct{}

func (c *Comparative) Name() string  { return "comparative" }
func (c *Comparative) Title() string { return "Comparative" }

func (c *Comparative) Analyze(in *Input) (*Report, error) {
	months := resample.ToMonthly(in.Series)
	quarters := resample.ToQuarterly(in.Series)
	if len(months) == 0 {
		return nil, errors.NewDataError("monthly", in.Symbol, "no monthly closes", errors.ErrDataNotFound)
	}

	r := newReport(c.Name(), c.Title())
	if yoy, err := YearOverYear(months); err == nil {
		r.Metrics["yoy_pct"] = yoy
		r.line("YoY (latest month): " + utils.FormatPercent(yoy))
	} else {
		r.note(err, "YoY (latest month): "+unavailable(err))
	}
	if qoq, err := QuarterOverQuarter(quarters); err == nil {
		r.Metrics["qoq_pct"] = qoq
		r.line("QoQ (latest quarter): " + utils.FormatPercent(qoq))
	} else {
		r.note(err, "QoQ (latest quarter): "+unavailable(err))
	}

	last12 := months
	if len(last12) > 12 {
		last12 = last12[len(last12)-12:]
	}
	r.Plot = Plot{
		Kind:       PlotLine,
		Labels:     resample.Keys(last12),
		Series:     []PlotSeries{{Name: "Monthly close", Values: resample.Closes(last12)}},
		YFormat:    FormatNumber,
		XTickCount: 12,
		YTickCount: 5,
	}
	return r, nil
}

var (
	_ Analyzer = (*Trend)(nil)
	_ Analyzer = (*Comparative)(nil)
)

func unavailable(err error) string {
	if errors.Is(err, errors.ErrZeroBase) {
		return "base close is zero"
	}
	return "not enough data"
}
