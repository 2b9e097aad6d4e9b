package analysis

import (
	"chartlab/internal/errors"
	"chartlab/pkg/utils"
)

// historyDays is the number of rows used when no one-year history is given.
const historyDays = 252

// Overview reports the latest price and the change over the one-year history.
type Overview struct{}

func (o *Overview) Name() string  { return "overview" }
func (o *Overview) Title() string { return "Overview" }

func (o *Overview) Analyze(in *Input) (*Report, error) {
	history := in.History
	if len(history) == 0 {
		history = in.Series.Tail(historyDays)
	}
	if !history.HasData() {
		return nil, errors.NewDataError("history", in.Symbol, "no closes available", errors.ErrDataNotFound)
	}

	r := newReport(o.Name(), o.Title())
	last, _ := lastValid(history)
	r.Metrics["price"] = last.Close
	r.line("Price: " + utils.FormatNumber(last.Close, 6))

	first, _ := firstValid(history)
	if len(history) >= 2 && first.Close != 0 && first.Time.Before(last.Time) {
		change := (last.Close - first.Close) / first.Close * 100
		r.Metrics["change_1y_pct"] = change
		r.line("1Y change: " + utils.FormatPercent(change))
	} else {
		r.note(errors.NewInsufficientDataError("1Y change", len(history), 2), "1Y change: not enough data")
	}

	r.Plot = Plot{
		Kind:       PlotLine,
		Labels:     history.Labels(LabelMonthYear),
		Series:     []PlotSeries{{Name: "Close", Values: history.Closes()}},
		YFormat:    FormatNumber,
		XTickCount: 6,
		YTickCount: 5,
	}
	return r, nil
}

var _ Analyzer = (*Overview)(nil)
