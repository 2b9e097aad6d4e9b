package provider

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"chartlab/internal/config"
	"chartlab/internal/errors"
	"chartlab/internal/models"
)

var testNow = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

type fetchCall struct {
	ticker   string
	from, to time.Time
}

// fakeFetcher serves fixed series per ticker and records calls.
type fakeFetcher struct {
	mu     sync.Mutex
	series map[string]models.Series
	errs   map[string]error
	calls  []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{series: map[string]models.Series{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{ticker, from, to})
	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	return inRange(f.series[ticker], from, to), nil
}

func (f *fakeFetcher) called(ticker string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.ticker == ticker {
			return true
		}
	}
	return false
}

func dailySeries(end time.Time, n int, base float64) models.Series {
	s := make(models.Series, n)
	for i := 0; i < n; i++ {
		s[i] = models.Sample{Time: end.AddDate(0, 0, i-n+1), Close: base + float64(i)}
	}
	return s
}

func testSource(f Fetcher, opts ...Option) *Source {
	return NewSource(f, append([]Option{WithClock(func() time.Time { return testNow })}, opts...)...)
}

func TestDailySeriesWindow(t *testing.T) {
	f := newFakeFetcher()
	today := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	f.series["AAPL"] = dailySeries(today, 400, 100)

	got, err := testSource(f).DailySeries(context.Background(), "AAPL", models.MarketStocks)
	if err != nil {
		t.Fatalf("DailySeries() error = %v", err)
	}
	if len(got) != HistoryDays+1 {
		t.Errorf("len = %d, want %d", len(got), HistoryDays+1)
	}
	c := f.calls[0]
	if !c.from.Equal(today.AddDate(0, 0, -365)) || !c.to.Equal(today) {
		t.Errorf("window = %v..%v", c.from, c.to)
	}

	if _, err := testSource(f).DailySeries(context.Background(), "NOPE", models.MarketStocks); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("unknown symbol error = %v", err)
	}
}

func TestAnalysisSeriesBenchmarkFallback(t *testing.T) {
	today := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		symbol     string
		setup      func(f *fakeFetcher)
		wantTicker string
		notCalled  string
	}{
		{
			name:   "index first",
			symbol: "AAPL",
			setup: func(f *fakeFetcher) {
				f.series["I:SPX"] = dailySeries(today, 50, 4000)
				f.series["SPY"] = dailySeries(today, 50, 400)
			},
			wantTicker: "I:SPX",
			notCalled:  "SPY",
		},
		{
			name:       "empty index falls back to etf",
			symbol:     "AAPL",
			setup:      func(f *fakeFetcher) { f.series["SPY"] = dailySeries(today, 50, 400) },
			wantTicker: "SPY",
		},
		{
			name:   "failing index falls back to etf",
			symbol: "AAPL",
			setup: func(f *fakeFetcher) {
				f.errs["I:SPX"] = fmt.Errorf("403 not entitled")
				f.series["SPY"] = dailySeries(today, 50, 400)
			},
			wantTicker: "SPY",
		},
		{
			name:       "none available",
			symbol:     "AAPL",
			setup:      func(f *fakeFetcher) {},
			wantTicker: "",
		},
		{
			name:   "primary benchmark has none",
			symbol: "I:SPX",
			setup: func(f *fakeFetcher) {
				f.series["I:SPX"] = dailySeries(today, 50, 4000)
				f.series["SPY"] = dailySeries(today, 50, 400)
			},
			wantTicker: "",
			notCalled:  "SPY",
		},
		{
			name:       "etf never benchmarks itself",
			symbol:     "SPY",
			setup:      func(f *fakeFetcher) {},
			wantTicker: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			if _, ok := f.series[tt.symbol]; !ok {
				f.series[tt.symbol] = dailySeries(today, 50, 100)
			}
			tt.setup(f)

			set, err := testSource(f).AnalysisSeries(context.Background(), tt.symbol, models.MarketOf(tt.symbol), 0)
			if err != nil {
				t.Fatalf("AnalysisSeries() error = %v", err)
			}
			if set.BenchmarkTicker != tt.wantTicker {
				t.Errorf("BenchmarkTicker = %q, want %q", set.BenchmarkTicker, tt.wantTicker)
			}
			if (tt.wantTicker != "") != set.HasBenchmark() {
				t.Errorf("HasBenchmark() = %v", set.HasBenchmark())
			}
			if set.Days != DefaultAnalysisDays || len(set.Series) != 50 {
				t.Errorf("days = %d, len = %d", set.Days, len(set.Series))
			}
			if tt.notCalled != "" && f.called(tt.notCalled) {
				t.Errorf("%s was fetched", tt.notCalled)
			}
		})
	}
}

func TestAnalysisSeriesWindow(t *testing.T) {
	f := newFakeFetcher()
	today := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	f.series["MSFT"] = dailySeries(today, 10, 100)

	if _, err := testSource(f, WithBenchmarks("QQQ")).AnalysisSeries(context.Background(), "MSFT", models.MarketStocks, 90); err != nil {
		t.Fatal(err)
	}
	for _, c := range f.calls {
		if !c.from.Equal(today.AddDate(0, 0, -90)) || !c.to.Equal(today) {
			t.Errorf("%s window = %v..%v", c.ticker, c.from, c.to)
		}
	}
	if !f.called("QQQ") || f.called("I:SPX") {
		t.Errorf("benchmarks fetched = %+v", f.calls)
	}
}

func TestAnalysisSeriesErrors(t *testing.T) {
	f := newFakeFetcher()
	f.errs["AAPL"] = errors.NewProviderError("fake", "AAPL", "boom", errors.ErrProviderUnavailable)
	_, err := testSource(f).AnalysisSeries(context.Background(), "AAPL", models.MarketStocks, 30)
	if !errors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("main failure error = %v", err)
	}

	f = newFakeFetcher()
	_, err = testSource(f).AnalysisSeries(context.Background(), "AAPL", models.MarketStocks, 30)
	if !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("empty main error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f = newFakeFetcher()
	f.errs["I:SPX"] = context.Canceled
	f.series["AAPL"] = dailySeries(testNow, 5, 1)
	if _, err := testSource(f).AnalysisSeries(ctx, "AAPL", models.MarketStocks, 30); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Polygon.APIKey = ""
	if _, err := New(cfg, nil, testLogger()); !errors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("polygon without key error = %v", err)
	}

	cfg.Credentials.Polygon.APIKey = "k"
	p, err := New(cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("polygon error = %v", err)
	}
	if _, ok := p.(*Source); !ok || p.Name() != "polygon" {
		t.Errorf("uncached polygon = %T %s", p, p.Name())
	}
	if _, ok := p.(*Source).fetcher.(*Breaker); !ok {
		t.Errorf("polygon fetcher = %T, want *Breaker", p.(*Source).fetcher)
	}

	cfg.Provider.Kind = config.ProviderCSV
	cfg.Provider.CSVDir = t.TempDir()
	st := newTestStore(t)
	p, err = New(cfg, st, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*Cached); !ok || p.Name() != "csv" {
		t.Errorf("cached csv = %T %s", p, p.Name())
	}

	cfg.Provider.Kind = config.ProviderStore
	if _, err := New(cfg, nil, testLogger()); !errors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("store without db error = %v", err)
	}
	if p, err := New(cfg, st, testLogger()); err != nil || p.Name() != "store" {
		t.Errorf("store provider = %v, %v", p, err)
	}

	cfg.Provider.Kind = "yahoo"
	if _, err := New(cfg, st, testLogger()); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestFreshnessFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.HistoryTTL = time.Hour
	f := Freshness(cfg)
	if f.TTL("history") != time.Hour || f.TTL("analysis") != 15*time.Minute {
		t.Errorf("Freshness() = %+v", f.TTLs)
	}
}

func TestRetryable(t *testing.T) {
	if retryable(context.Canceled) || retryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Error("context errors are retryable")
	}
	if !retryable(fmt.Errorf("502 bad gateway")) {
		t.Error("server errors are not retryable")
	}
	if d := dayOf(time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)); !d.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dayOf() = %v", d)
	}
}

func TestNewLimiter(t *testing.T) {
	unlimited := newLimiter(0)
	for i := 0; i < 10; i++ {
		if !unlimited.Allow() {
			t.Fatal("unlimited limiter blocked")
		}
	}

	limited := newLimiter(5)
	if limited.Limit() != rate.Every(12*time.Second) {
		t.Errorf("Limit() = %v, want one per 12s", limited.Limit())
	}
	if !limited.Allow() || limited.Allow() {
		t.Error("limiter should allow exactly one burst request")
	}
}
