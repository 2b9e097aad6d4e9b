package store

import (
	"context"
	"fmt"
	"time"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

// CacheKind identifies a cached call.
type CacheKind string

const (
	CacheHistory  CacheKind = "history"
	CacheAnalysis CacheKind = "analysis"
)

// CacheKey returns the meta key of a cached call. Analysis entries are keyed
// by their day count.
func CacheKey(kind CacheKind, days int) string {
	if kind == CacheAnalysis {
		return fmt.Sprintf("%s:%d", kind, days)
	}
	return string(kind)
}

// FreshnessConfig holds how long cached data stays fresh per kind.
type FreshnessConfig struct {
	TTLs map[CacheKind]time.Duration
}

// DefaultFreshnessConfig returns 15 minute TTLs for history and analysis.
func DefaultFreshnessConfig() FreshnessConfig {
	return FreshnessConfig{
		TTLs: map[CacheKind]time.Duration{
			CacheHistory:  15 * time.Minute,
			CacheAnalysis: 15 * time.Minute,
		},
	}
}

// TTL returns the TTL for kind, 15 minutes when unset.
func (c FreshnessConfig) TTL(kind CacheKind) time.Duration {
	if ttl, ok := c.TTLs[kind]; ok && ttl > 0 {
		return ttl
	}
	return 15 * time.Minute
}

// DataFreshness represents the freshness of cached data.
type DataFreshness struct {
	Kind        CacheKind
	Meta        *SeriesMeta
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// CheckFreshness reports whether the cache entry for symbol is younger than
// the kind's TTL at now. A missing entry is stale.
func CheckFreshness(ctx context.Context, s DataStore, cfg FreshnessConfig, symbol string, market models.Market, kind CacheKind, days int, now time.Time) (DataFreshness, error) {
	f := DataFreshness{Kind: kind}
	meta, err := s.GetMeta(ctx, symbol, market, CacheKey(kind, days))
	if errors.Is(err, errors.ErrDataNotFound) {
		return f, nil
	}
	if err != nil {
		return f, err
	}

	f.Meta = meta
	f.LastUpdated = meta.UpdatedAt
	f.Age = now.Sub(meta.UpdatedAt)
	f.IsFresh = f.Age >= 0 && f.Age < cfg.TTL(kind)
	return f, nil
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(f DataFreshness) string {
	if f.LastUpdated.IsZero() {
		return "Never fetched"
	}

	var age string
	switch {
	case f.Age < time.Minute:
		age = "just now"
	case f.Age < time.Hour:
		age = fmt.Sprintf("%d minutes ago", int(f.Age.Minutes()))
	case f.Age < 24*time.Hour:
		age = fmt.Sprintf("%d hours ago", int(f.Age.Hours()))
	default:
		age = fmt.Sprintf("%d days ago", int(f.Age.Hours()/24))
	}

	if f.IsFresh {
		return "Updated " + age
	}
	return "Stale, updated " + age
}
