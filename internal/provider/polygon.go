package provider

import (
	"context"
	"net/http"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// aggsLimit is the largest page the aggregates endpoint serves.
const aggsLimit = 50000

// Polygon fetches adjusted daily aggregates from the Polygon REST API.
type Polygon struct {
	client  *polygonrest.Client
	retry   utils.RetryConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPolygon creates a Polygon fetcher. attempts bounds retries per request;
// perMinute caps requests per minute, 0 meaning unlimited.
func NewPolygon(apiKey string, timeout time.Duration, attempts, perMinute int, logger zerolog.Logger) (*Polygon, error) {
	if apiKey == "" {
		return nil, errors.NewProviderError("polygon", "", "POLYGON_API_KEY is not set", errors.ErrProviderUnavailable)
	}
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = attempts
	retry.Retryable = retryable

	return &Polygon{
		client:  polygonrest.NewWithClient(apiKey, &http.Client{Timeout: timeout}),
		retry:   retry,
		limiter: newLimiter(perMinute),
		logger:  logger,
	}, nil
}

// Name returns "polygon".
func (p *Polygon) Name() string {
	return "polygon"
}

// FetchDaily lists 1-day bars for ticker in [from, to], oldest first.
func (p *Polygon) FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error) {
	return utils.RetryWithResult(ctx, p.retry, func() (models.Series, error) {
		return p.listDaily(ctx, ticker, from, to)
	})
}

func (p *Polygon) listDaily(ctx context.Context, ticker string, from, to time.Time) (models.Series, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := &rmodels.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   rmodels.Day,
		From:       rmodels.Millis(from),
		To:         rmodels.Millis(to),
	}
	limit := aggsLimit
	order := rmodels.Asc
	adjusted := true
	params.Limit = &limit
	params.Order = &order
	params.Adjusted = &adjusted

	start := time.Now()
	iter := p.client.ListAggs(ctx, params)
	var series models.Series
	for iter.Next() {
		a := iter.Item()
		series = append(series, models.Sample{
			Time:  dayOf(time.Time(a.Timestamp)),
			Close: a.Close,
		})
	}
	err := iter.Err()
	logging.LogAPICall(logging.WithSymbol(p.logger, ticker), "GET", "/v2/aggs/ticker/"+ticker+"/range/1/day", time.Since(start), err)
	if err != nil {
		return nil, errors.NewProviderError("polygon", ticker, "list daily aggregates", err)
	}
	return series, nil
}

// newLimiter allows perMinute requests with a burst of one; perMinute <= 0
// never blocks.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// dayOf truncates a bar timestamp to its UTC calendar date.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// retryable skips retries once the caller gave up.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

var _ Fetcher = (*Polygon)(nil)
