package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/models"
	"chartlab/internal/store"
)

// Stored reads closes previously saved in a DataStore, for offline use.
type Stored struct {
	store store.DataStore
}

// NewStored creates a fetcher over s.
func NewStored(s store.DataStore) *Stored {
	return &Stored{store: s}
}

// Name returns "store".
func (s *Stored) Name() string {
	return "store"
}

// FetchDaily returns the stored closes in [from, to].
func (s *Stored) FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error) {
	return s.store.GetSeries(ctx, ticker, market, from, to)
}

// Cached serves DataProvider calls from the store while they are fresh and
// refreshes them from the upstream provider otherwise. When the upstream
// fails, a stale entry is served instead.
type Cached struct {
	upstream  DataProvider
	store     store.DataStore
	freshness store.FreshnessConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCached wraps upstream with a TTL cache in s.
func NewCached(upstream DataProvider, s store.DataStore, freshness store.FreshnessConfig, logger zerolog.Logger) *Cached {
	return &Cached{
		upstream:  upstream,
		store:     s,
		freshness: freshness,
		now:       time.Now,
		logger:    logger,
	}
}

// Name returns the upstream name.
func (c *Cached) Name() string {
	return c.upstream.Name()
}

// DailySeries returns the cached year of closes or refreshes it.
func (c *Cached) DailySeries(ctx context.Context, symbol string, market models.Market) (models.Series, error) {
	f, err := store.CheckFreshness(ctx, c.store, c.freshness, symbol, market, store.CacheHistory, 0, c.now())
	if err != nil {
		return nil, err
	}
	key := store.CacheKey(store.CacheHistory, 0)
	logger := logging.WithSymbol(c.logger, symbol)
	if f.IsFresh {
		if series, err := c.load(ctx, symbol, market, f.Meta); err == nil && len(series) > 0 {
			logging.LogCache(logger, key, true, f.Age)
			return series, nil
		}
	}
	logging.LogCache(logger, key, false, f.Age)

	series, err := c.upstream.DailySeries(ctx, symbol, market)
	if err != nil {
		if stale, ok := c.stale(ctx, symbol, market, f, err); ok {
			return stale, nil
		}
		return nil, err
	}

	c.save(ctx, symbol, market, series, store.SeriesMeta{Key: key})
	return series, nil
}

// AnalysisSeries returns the cached analysis set for days or refreshes it.
func (c *Cached) AnalysisSeries(ctx context.Context, symbol string, market models.Market, days int) (*models.AnalysisSet, error) {
	if days <= 0 {
		days = DefaultAnalysisDays
	}
	f, err := store.CheckFreshness(ctx, c.store, c.freshness, symbol, market, store.CacheAnalysis, days, c.now())
	if err != nil {
		return nil, err
	}
	key := store.CacheKey(store.CacheAnalysis, days)
	logger := logging.WithSymbol(c.logger, symbol)
	if f.IsFresh {
		if set, err := c.loadSet(ctx, symbol, market, days, f.Meta); err == nil {
			logging.LogCache(logger, key, true, f.Age)
			return set, nil
		}
	}
	logging.LogCache(logger, key, false, f.Age)

	set, err := c.upstream.AnalysisSeries(ctx, symbol, market, days)
	if err != nil {
		if f.Meta != nil && ctx.Err() == nil {
			if stale, lerr := c.loadSet(ctx, symbol, market, days, f.Meta); lerr == nil {
				logger.Warn().Err(err).Str("age", f.Age.Round(time.Second).String()).Msg("Serving stale analysis data")
				return stale, nil
			}
		}
		return nil, err
	}

	if set.HasBenchmark() {
		bench := set.BenchmarkTicker
		if err := c.store.SaveSeries(ctx, bench, models.MarketOf(bench), set.Benchmark); err != nil {
			logger.Warn().Err(err).Str("benchmark", bench).Msg("Failed to cache benchmark")
		}
	}
	c.save(ctx, symbol, market, set.Series, store.SeriesMeta{Key: key, Benchmark: set.BenchmarkTicker})
	return set, nil
}

func (c *Cached) load(ctx context.Context, symbol string, market models.Market, meta *store.SeriesMeta) (models.Series, error) {
	return c.store.GetSeries(ctx, symbol, market, meta.From, meta.To)
}

func (c *Cached) loadSet(ctx context.Context, symbol string, market models.Market, days int, meta *store.SeriesMeta) (*models.AnalysisSet, error) {
	series, err := c.load(ctx, symbol, market, meta)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, errors.NewDataError("cache", symbol, "cached range is empty", errors.ErrDataNotFound)
	}
	set := &models.AnalysisSet{Symbol: symbol, Market: market, Days: days, Series: series}
	if meta.Benchmark != "" {
		bench, err := c.store.GetSeries(ctx, meta.Benchmark, models.MarketOf(meta.Benchmark), meta.From, meta.To)
		if err != nil {
			return nil, err
		}
		if len(bench) > 0 {
			set.Benchmark = bench
			set.BenchmarkTicker = meta.Benchmark
		}
	}
	return set, nil
}

// stale returns the cached entry behind f when the upstream call failed.
func (c *Cached) stale(ctx context.Context, symbol string, market models.Market, f store.DataFreshness, cause error) (models.Series, bool) {
	if f.Meta == nil || ctx.Err() != nil {
		return nil, false
	}
	series, err := c.load(ctx, symbol, market, f.Meta)
	if err != nil || len(series) == 0 {
		return nil, false
	}
	logger := logging.WithSymbol(c.logger, symbol)
	logger.Warn().Err(cause).
		Str("age", f.Age.Round(time.Second).String()).
		Msg("Serving stale history")
	return series, true
}

// save stores series and its cache record. Failures are logged; the caller
// already has the data.
func (c *Cached) save(ctx context.Context, symbol string, market models.Market, series models.Series, meta store.SeriesMeta) {
	if len(series) == 0 {
		return
	}
	logger := logging.WithSymbol(c.logger, symbol)
	if err := c.store.SaveSeries(ctx, symbol, market, series); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache series")
		return
	}
	meta.Symbol = symbol
	meta.Market = market
	meta.Source = c.upstream.Name()
	meta.From = series[0].Time
	meta.To = series[len(series)-1].Time
	meta.UpdatedAt = c.now()
	if err := c.store.PutMeta(ctx, meta); err != nil {
		logger.Warn().Err(err).Msg("Failed to record cache entry")
	}
}

var (
	_ Fetcher      = (*Stored)(nil)
	_ DataProvider = (*Cached)(nil)
)
