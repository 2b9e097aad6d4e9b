package provider

import (
	"github.com/rs/zerolog"

	"chartlab/internal/config"
	"chartlab/internal/errors"
	"chartlab/internal/store"
)

// New builds the configured provider. st backs the store provider and the
// cache; it may be nil when neither is used.
func New(cfg *config.Config, st store.DataStore, logger zerolog.Logger) (DataProvider, error) {
	logger = logger.With().Str("component", "provider").Str("provider", cfg.Provider.Kind).Logger()
	opts := []Option{WithBenchmarks(cfg.Analysis.Benchmarks...), WithLogger(logger)}

	var fetcher Fetcher
	switch cfg.Provider.Kind {
	case config.ProviderPolygon:
		p, err := NewPolygon(cfg.Credentials.Polygon.APIKey, cfg.Provider.Timeout, cfg.Provider.RetryAttempts, cfg.Provider.RateLimit, logger)
		if err != nil {
			return nil, err
		}
		fetcher = p
		if cfg.Provider.BreakerThreshold > 0 {
			fetcher = NewBreaker(p, BreakerConfig{
				Threshold: cfg.Provider.BreakerThreshold,
				Cooldown:  cfg.Provider.BreakerCooldown,
			}, logger)
		}
	case config.ProviderCSV:
		fetcher = NewCSV(cfg.Provider.CSVDir)
	case config.ProviderStore:
		if st == nil {
			return nil, errors.Wrap(errors.ErrProviderUnavailable, "store provider needs a database")
		}
		return NewSource(NewStored(st), opts...), nil
	default:
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "unknown provider kind: %s", cfg.Provider.Kind)
	}

	src := NewSource(fetcher, opts...)
	if !cfg.Provider.Cache || st == nil {
		return src, nil
	}
	return NewCached(src, st, Freshness(cfg), logger), nil
}

// Freshness returns the cache TTLs from cfg.
func Freshness(cfg *config.Config) store.FreshnessConfig {
	f := store.DefaultFreshnessConfig()
	if cfg.Provider.HistoryTTL > 0 {
		f.TTLs[store.CacheHistory] = cfg.Provider.HistoryTTL
	}
	if cfg.Provider.AnalysisTTL > 0 {
		f.TTLs[store.CacheAnalysis] = cfg.Provider.AnalysisTTL
	}
	return f
}
