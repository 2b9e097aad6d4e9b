package analysis

import (
	"fmt"

	"chartlab/internal/analysis/stats"
	"chartlab/internal/errors"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// CrossKind identifies a short/long moving average crossover.
type CrossKind string

const (
	CrossNone   CrossKind = ""
	CrossGolden CrossKind = "golden"
	CrossDeath  CrossKind = "death"
)

// Cross is a crossover of the short average through the long one.
type Cross struct {
	Kind  CrossKind
	Index int
}

// LastCross returns the most recent crossover of short through long within
// the trailing lookback samples. Indexes where either average is missing
// are skipped.
func LastCross(short, long []float64, lookback int) Cross {
	n := len(short)
	if len(long) < n {
		n = len(long)
	}
	start := 0
	if lookback > 0 && n-lookback > start {
		start = n - lookback
	}

	found := Cross{Index: -1}
	prevSign := 0
	for i := start; i < n; i++ {
		s, l := short[i], long[i]
		if models.IsMissing(s) || models.IsMissing(l) {
			continue
		}
		sign := 0
		switch {
		case s > l:
			sign = 1
		case s < l:
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if prevSign != 0 && sign != prevSign {
			kind := CrossGolden
			if sign < 0 {
				kind = CrossDeath
			}
			found = Cross{Kind: kind, Index: i}
		}
		prevSign = sign
	}
	return found
}

// MovingAverage plots the close with its short and long averages.
type MovingAverage struct {
	Params Params
}

func (m *MovingAverage) Name() string  { return "movingavg" }
func (m *MovingAverage) Title() string { return "Moving averages" }

func (m *MovingAverage) Analyze(in *Input) (*Report, error) {
	if !in.Series.HasData() {
		return nil, errors.NewDataError("daily", in.Symbol, "no closes available", errors.ErrDataNotFound)
	}
	def := DefaultParams()
	shortN, longN := m.Params.MAShort, m.Params.MALong
	if shortN <= 0 {
		shortN = def.MAShort
	}
	if longN <= 0 {
		longN = def.MALong
	}
	lookback := m.Params.CrossLookback
	if lookback <= 0 {
		lookback = def.CrossLookback
	}

	closes := in.Series.Closes()
	short := stats.SMA(closes, shortN)
	long := stats.SMA(closes, longN)
	cur := stats.Last(closes)

	r := newReport(m.Name(), m.Title())
	for _, avg := range []struct {
		n      int
		values []float64
	}{{shortN, short}, {longN, long}} {
		name := fmt.Sprintf("MA%d", avg.n)
		ma := stats.Last(avg.values)
		diff, ok := stats.PctChange(ma, cur)
		if !ok {
			r.note(errors.NewInsufficientDataError(name, len(closes), avg.n), name+": not enough data")
			continue
		}
		r.Metrics[fmt.Sprintf("ma%d", avg.n)] = ma
		r.Metrics[fmt.Sprintf("vs_ma%d_pct", avg.n)] = diff
		r.line(fmt.Sprintf("Price vs %s: %s (%s)", name, aboveBelow(cur, ma), utils.FormatPercent(diff)))
	}

	cross := LastCross(short, long, lookback)
	switch cross.Kind {
	case CrossGolden, CrossDeath:
		day := in.Series[cross.Index].Time.UTC().Format("2006-01-02")
		r.line(fmt.Sprintf("Last %s cross (last %dd): %s", cross.Kind, lookback, day))
	default:
		r.line(fmt.Sprintf("No golden/death cross in the last %d sessions", lookback))
	}

	lines := []PlotSeries{
		{Name: "Close", Values: closes, Color: "#0a7", Width: 2},
		{Name: fmt.Sprintf("MA%d", shortN), Values: short, Color: "#999", Width: 1.5},
		{Name: fmt.Sprintf("MA%d", longN), Values: long, Color: "#555", Width: 1.5},
	}
	r.Plot = Plot{
		Kind:       PlotMultiLine,
		Labels:     in.Series.Labels(LabelMonthYear),
		Series:     lines,
		YFormat:    FormatNumber,
		XTickCount: 8,
		YTickCount: 5,
	}
	return r, nil
}

var _ Analyzer = (*MovingAverage)(nil)
