package analysis

import (
	"fmt"

	"chartlab/internal/analysis/stats"
	"chartlab/internal/errors"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// fiftyTwoWeekRows is the number of trailing rows treated as 52 weeks.
const fiftyTwoWeekRows = 365

// Ratios reports the price relative to its 52-week range and moving averages.
type Ratios struct {
	Params Params
}

func (r *Ratios) Name() string  { return "ratios" }
func (r *Ratios) Title() string { return "Ratios" }

func (r *Ratios) Analyze(in *Input) (*Report, error) {
	window := in.Series.Tail(fiftyTwoWeekRows)
	low, high, ok := stats.Extent(window.Closes())
	if !ok {
		return nil, errors.NewDataError("52-week", in.Symbol, "no closes available", errors.ErrDataNotFound)
	}
	cur, _ := lastValid(in.Series)
	price := cur.Close

	rep := newReport(r.Name(), r.Title())
	rep.Metrics["high_52w"] = high
	rep.Metrics["low_52w"] = low
	if high != 0 {
		rep.Metrics["price_to_high"] = price / high
		rep.line(fmt.Sprintf("52-week high: %s (price / high = %s)", utils.FormatNumber(high, 6), utils.FormatRatio(price/high)))
	}
	if low != 0 {
		rep.Metrics["price_to_low"] = price / low
		rep.line(fmt.Sprintf("52-week low: %s (price / low = %s)", utils.FormatNumber(low, 6), utils.FormatRatio(price/low)))
	}

	closes := in.Series.Closes()
	for _, n := range []int{r.Params.MAShort, r.Params.MALong} {
		if n <= 0 {
			continue
		}
		name := fmt.Sprintf("MA%d", n)
		ma := stats.Last(stats.SMA(closes, n))
		if models.IsMissing(ma) || ma == 0 {
			rep.note(errors.NewInsufficientDataError(name, len(closes), n), name+": not enough data")
			continue
		}
		ratio := price / ma
		rep.Metrics[fmt.Sprintf("price_to_ma%d", n)] = ratio
		rep.line(fmt.Sprintf("Price / %s: %s (%s)", name, utils.FormatRatio(ratio), aboveBelow(price, ma)))
	}

	rep.Plot = Plot{
		Kind:       PlotLine,
		Labels:     window.Labels(LabelMonthDay),
		Series:     []PlotSeries{{Name: "Close", Values: window.Closes()}},
		YFormat:    FormatNumber,
		XTickCount: 6,
		YTickCount: 5,
	}
	return rep, nil
}

var _ Analyzer = (*Ratios)(nil)
