// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"chartlab/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Daily closes
	SaveSeries(ctx context.Context, symbol string, market models.Market, series models.Series) error
	GetSeries(ctx context.Context, symbol string, market models.Market, from, to time.Time) (models.Series, error)
	DeleteSeries(ctx context.Context, symbol string, market models.Market) error
	ListSymbols(ctx context.Context) ([]SymbolSummary, error)

	// Cache bookkeeping
	PutMeta(ctx context.Context, meta SeriesMeta) error
	GetMeta(ctx context.Context, symbol string, market models.Market, key string) (*SeriesMeta, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, entry WatchlistEntry) error
	RemoveFromWatchlist(ctx context.Context, symbol string, market models.Market) error
	GetWatchlist(ctx context.Context) ([]WatchlistEntry, error)

	// Lifecycle
	Close() error
}

// SeriesMeta records when a cached series was fetched and what it covers.
type SeriesMeta struct {
	Symbol    string
	Market    models.Market
	Key       string
	Source    string
	From      time.Time
	To        time.Time
	Benchmark string
	UpdatedAt time.Time
}

// SymbolSummary describes the stored closes of one symbol.
type SymbolSummary struct {
	Symbol string        `json:"symbol"`
	Market models.Market `json:"market"`
	Count  int           `json:"count"`
	First  time.Time     `json:"first"`
	Last   time.Time     `json:"last"`
}

// WatchlistEntry is a saved symbol.
type WatchlistEntry struct {
	Symbol  string        `json:"symbol"`
	Market  models.Market `json:"market"`
	Name    string        `json:"name,omitempty"`
	AddedAt time.Time     `json:"added_at"`
}
