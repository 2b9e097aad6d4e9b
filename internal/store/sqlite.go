package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	meta map[string]SeriesMeta
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:   db,
		meta: make(map[string]SeriesMeta),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Daily closes; a NULL close marks a missing value
	CREATE TABLE IF NOT EXISTS closes (
		symbol TEXT NOT NULL,
		market TEXT NOT NULL,
		date DATETIME NOT NULL,
		close REAL,
		PRIMARY KEY (symbol, market, date)
	);

	-- Cache bookkeeping per fetched series
	CREATE TABLE IF NOT EXISTS series_meta (
		symbol TEXT NOT NULL,
		market TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		source TEXT,
		range_from DATETIME,
		range_to DATETIME,
		benchmark TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (symbol, market, cache_key)
	);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		market TEXT NOT NULL,
		name TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, market)
	);

	CREATE INDEX IF NOT EXISTS idx_closes_date ON closes(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Series Methods
// ============================================================================

// SaveSeries upserts daily closes. Missing closes are stored as NULL.
func (s *SQLiteStore) SaveSeries(ctx context.Context, symbol string, market models.Market, series models.Series) error {
	if len(series) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO closes (symbol, market, date, close)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, smp := range series {
		c := sql.NullFloat64{Float64: smp.Close, Valid: smp.Valid()}
		if _, err := stmt.ExecContext(ctx, symbol, string(market), smp.Time.UTC(), c); err != nil {
			return fmt.Errorf("failed to insert close: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSeries retrieves closes in [from, to], oldest first. A zero to means
// no upper bound.
func (s *SQLiteStore) GetSeries(ctx context.Context, symbol string, market models.Market, from, to time.Time) (models.Series, error) {
	if to.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, close
		FROM closes
		WHERE symbol = ? AND market = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, string(market), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query closes: %w", err)
	}
	defer rows.Close()

	var series models.Series
	for rows.Next() {
		var (
			date time.Time
			c    sql.NullFloat64
		)
		if err := rows.Scan(&date, &c); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		smp := models.Sample{Time: date.UTC(), Close: models.Missing}
		if c.Valid {
			smp.Close = c.Float64
		}
		series = append(series, smp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}

	return series, nil
}

// DeleteSeries removes all closes and cache records of a symbol.
func (s *SQLiteStore) DeleteSeries(ctx context.Context, symbol string, market models.Market) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM closes WHERE symbol = ? AND market = ?`, symbol, string(market)); err != nil {
		return fmt.Errorf("failed to delete closes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM series_meta WHERE symbol = ? AND market = ?`, symbol, string(market)); err != nil {
		return fmt.Errorf("failed to delete series meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.mu.Lock()
	for k, m := range s.meta {
		if m.Symbol == symbol && m.Market == market {
			delete(s.meta, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// ListSymbols summarizes the stored closes per symbol.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]SymbolSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, market, COUNT(*), MIN(date), MAX(date)
		FROM closes
		GROUP BY symbol, market
		ORDER BY symbol, market
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolSummary
	for rows.Next() {
		var (
			sum         SymbolSummary
			market      string
			first, last sql.NullString
		)
		if err := rows.Scan(&sum.Symbol, &market, &sum.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sum.Market = models.Market(market)
		sum.First = parseTime(first)
		sum.Last = parseTime(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ============================================================================
// Cache Meta Methods
// ============================================================================

func metaKey(symbol string, market models.Market, key string) string {
	return string(market) + "|" + symbol + "|" + key
}

// PutMeta records a cache entry.
func (s *SQLiteStore) PutMeta(ctx context.Context, meta SeriesMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO series_meta (symbol, market, cache_key, source, range_from, range_to, benchmark, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, meta.Symbol, string(meta.Market), meta.Key, meta.Source,
		meta.From.UTC(), meta.To.UTC(), meta.Benchmark, meta.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save series meta: %w", err)
	}

	s.mu.Lock()
	s.meta[metaKey(meta.Symbol, meta.Market, meta.Key)] = meta
	s.mu.Unlock()
	return nil
}

// GetMeta returns the cache entry for key, or ErrDataNotFound.
func (s *SQLiteStore) GetMeta(ctx context.Context, symbol string, market models.Market, key string) (*SeriesMeta, error) {
	k := metaKey(symbol, market, key)
	s.mu.RLock()
	if m, ok := s.meta[k]; ok {
		s.mu.RUnlock()
		return &m, nil
	}
	s.mu.RUnlock()

	m := SeriesMeta{Symbol: symbol, Market: market, Key: key}
	var source, benchmark sql.NullString
	var from, to sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT source, range_from, range_to, benchmark, updated_at
		FROM series_meta WHERE symbol = ? AND market = ? AND cache_key = ?
	`, symbol, string(market), key).Scan(&source, &from, &to, &benchmark, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataError("cache", symbol, "no cache entry for "+key, errors.ErrDataNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series meta: %w", err)
	}
	m.Source = source.String
	m.Benchmark = benchmark.String
	m.From = from.Time.UTC()
	m.To = to.Time.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()

	s.mu.Lock()
	s.meta[k] = m
	s.mu.Unlock()
	return &m, nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to the watchlist. Adding it again updates
// the name.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, entry WatchlistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (symbol, market, name) VALUES (?, ?, ?)
		ON CONFLICT(symbol, market) DO UPDATE SET name = excluded.name
	`, entry.Symbol, string(entry.Market), entry.Name)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol string, market models.Market) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND market = ?
	`, symbol, string(market))
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrSymbolNotFound, "watchlist %s", symbol)
	}
	return nil
}

// GetWatchlist retrieves the watchlist in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, market, name, created_at FROM watchlist ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var (
			e      WatchlistEntry
			market string
			name   sql.NullString
		)
		if err := rows.Scan(&e.Symbol, &market, &name, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		e.Market = models.Market(market)
		e.Name = name.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// sqliteTimeLayouts are the formats go-sqlite3 writes time values in.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses aggregate results, which the driver returns as text.
func parseTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

var _ DataStore = (*SQLiteStore)(nil)
