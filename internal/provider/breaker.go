package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

// BreakerState is the state of a Breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before a trial request.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the standard breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

// Breaker wraps a Fetcher and stops calling it after repeated failures.
// Unknown symbols and cancelled requests are not failures.
type Breaker struct {
	fetcher Fetcher
	cfg     BreakerConfig
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker wraps f.
func NewBreaker(f Fetcher, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	if cfg.Threshold < 1 {
		cfg.Threshold = DefaultBreakerConfig().Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{fetcher: f, cfg: cfg, now: time.Now, logger: logger, state: BreakerClosed}
}

func (b *Breaker) Name() string {
	return b.fetcher.Name()
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FetchDaily calls the wrapped fetcher unless the breaker is open.
func (b *Breaker) FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error) {
	if reason := b.allow(); reason != "" {
		return nil, errors.NewProviderError(b.Name(), ticker, reason, errors.ErrProviderUnavailable)
	}
	series, err := b.fetcher.FetchDaily(ctx, ticker, market, from, to)
	b.record(err)
	return series, err
}

// allow returns why a request is rejected, or "" when it may proceed.
func (b *Breaker) allow() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return "circuit open"
		}
		b.transition(BreakerHalfOpen)
		b.trial = true
		return ""
	case BreakerHalfOpen:
		if b.trial {
			return "circuit half-open, trial in flight"
		}
		b.trial = true
	}
	return ""
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.trial = false
	}
	if !countsAsFailure(err) {
		if b.state == BreakerHalfOpen || err == nil {
			b.transition(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.Threshold {
		b.transition(BreakerOpen)
		b.openedAt = b.now()
	}
}

func (b *Breaker) transition(state BreakerState) {
	if b.state != state {
		b.logger.Warn().
			Str("fetcher", b.fetcher.Name()).
			Str("from", string(b.state)).
			Str("to", string(state)).
			Int("failures", b.failures).
			Msg("Circuit breaker state change")
	}
	b.state = state
	b.failures = 0
}

func countsAsFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, errors.ErrSymbolNotFound), errors.Is(err, errors.ErrDataNotFound):
		return false
	}
	return true
}

var _ Fetcher = (*Breaker)(nil)
