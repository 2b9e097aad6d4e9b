// Package provider supplies daily close series from market data sources.
package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/models"
)

// HistoryDays is the window of DailySeries.
const HistoryDays = 365

// DefaultAnalysisDays is the window of AnalysisSeries when days <= 0.
const DefaultAnalysisDays = 730

// DefaultBenchmarks are tried in order for the regression benchmark.
var DefaultBenchmarks = []string{"I:SPX", "SPY"}

// DataProvider supplies time-ordered daily closes.
type DataProvider interface {
	Name() string
	// DailySeries returns the last year of closes.
	DailySeries(ctx context.Context, symbol string, market models.Market) (models.Series, error)
	// AnalysisSeries returns days of closes plus a benchmark when one is found.
	AnalysisSeries(ctx context.Context, symbol string, market models.Market, days int) (*models.AnalysisSet, error)
}

// Fetcher reads the daily closes of one ticker in [from, to].
type Fetcher interface {
	Name() string
	FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error)
}

// Option configures a Source.
type Option func(*Source)

// WithBenchmarks sets the benchmark fallback order.
func WithBenchmarks(tickers ...string) Option {
	return func(s *Source) {
		if len(tickers) > 0 {
			s.benchmarks = tickers
		}
	}
}

// WithClock sets the time source used to compute date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// Source turns a Fetcher into a DataProvider.
type Source struct {
	fetcher    Fetcher
	benchmarks []string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewSource creates a DataProvider reading from f.
func NewSource(f Fetcher, opts ...Option) *Source {
	s := &Source{
		fetcher:    f,
		benchmarks: DefaultBenchmarks,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the fetcher name.
func (s *Source) Name() string {
	return s.fetcher.Name()
}

// window returns [today-days, today] in UTC dates.
func (s *Source) window(days int) (time.Time, time.Time) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -days), today
}

// DailySeries returns the last HistoryDays of closes.
func (s *Source) DailySeries(ctx context.Context, symbol string, market models.Market) (models.Series, error) {
	from, to := s.window(HistoryDays)
	series, err := s.fetcher.FetchDaily(ctx, symbol, market, from, to)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, errors.NewDataError("history", symbol, "no daily closes", errors.ErrDataNotFound)
	}
	return series, nil
}

// AnalysisSeries fetches the main series and the first available benchmark
// concurrently. The benchmark is omitted when symbol is the primary
// benchmark itself; benchmark failures only leave it empty.
func (s *Source) AnalysisSeries(ctx context.Context, symbol string, market models.Market, days int) (*models.AnalysisSet, error) {
	if days <= 0 {
		days = DefaultAnalysisDays
	}
	from, to := s.window(days)
	set := &models.AnalysisSet{Symbol: symbol, Market: market, Days: days}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := s.fetcher.FetchDaily(gctx, symbol, market, from, to)
		if err != nil {
			return err
		}
		set.Series = series
		return nil
	})
	if len(s.benchmarks) > 0 && symbol != s.benchmarks[0] {
		g.Go(func() error {
			ticker, series, err := s.benchmark(gctx, symbol, from, to)
			if err != nil {
				return err
			}
			set.BenchmarkTicker = ticker
			set.Benchmark = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(set.Series) == 0 {
		return nil, errors.NewDataError("analysis", symbol, "no daily closes", errors.ErrDataNotFound)
	}
	return set, nil
}

// benchmark returns the first benchmark with data, or an empty ticker.
// Only context errors are returned.
func (s *Source) benchmark(ctx context.Context, symbol string, from, to time.Time) (string, models.Series, error) {
	logger := logging.WithSymbol(s.logger, symbol)
	for _, ticker := range s.benchmarks {
		if ticker == symbol {
			continue
		}
		series, err := s.fetcher.FetchDaily(ctx, ticker, models.MarketOf(ticker), from, to)
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		if err != nil {
			logger.Warn().Err(err).Str("benchmark", ticker).Msg("Benchmark fetch failed")
			continue
		}
		if len(series) > 0 {
			return ticker, series, nil
		}
	}
	logger.Debug().Strs("tried", s.benchmarks).Msg("No benchmark available")
	return "", nil, nil
}

// inRange filters series to [from, to].
func inRange(series models.Series, from, to time.Time) models.Series {
	var out models.Series
	for _, smp := range series {
		if smp.Time.Before(from) || (!to.IsZero() && smp.Time.After(to)) {
			continue
		}
		out = append(out, smp)
	}
	return out
}

var _ DataProvider = (*Source)(nil)
