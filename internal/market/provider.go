package market

import (
	"context"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/logging"
	"stock-monitor/internal/models"
	"stock-monitor/pkg/utils"
)

// Window is the time range and bar spacing for one price-series fetch.
type Window struct {
	From        time.Time
	To          time.Time
	Granularity Granularity
}

// Provider retrieves a time-ordered price series for one ticker.
type Provider interface {
	Fetch(ctx context.Context, ticker string, w Window) (*models.Series, error)
}

// YahooProvider fetches price series from Yahoo Finance chart data, with
// the latest quote ask appended when available. Calls are bounded by a
// timeout and retried with backoff; only transport failures are retried.
type YahooProvider struct {
	timeout time.Duration
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewYahooProvider creates a provider with the given per-call timeout
// and retry attempt count.
func NewYahooProvider(timeout time.Duration, maxAttempts int, logger zerolog.Logger) *YahooProvider {
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts
	retry.RetryableErrors = []error{apperrors.ErrProvider}
	return &YahooProvider{
		timeout: timeout,
		retry:   retry,
		logger:  logger,
	}
}

// Fetch retrieves the price series for ticker over w. It returns
// ErrDataUnavailable when the window has no rows and a ProviderError on
// transport failure or timeout.
func (p *YahooProvider) Fetch(ctx context.Context, ticker string, w Window) (*models.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return utils.RetryWithResult(ctx, p.retry, func() (*models.Series, error) {
		return p.fetchOnce(ctx, ticker, w)
	})
}

func (p *YahooProvider) fetchOnce(ctx context.Context, ticker string, w Window) (*models.Series, error) {
	series, err := p.bounded(ctx, ticker, "chart", func() (*models.Series, error) {
		return p.fetchChart(ticker, w)
	})
	if err != nil {
		return nil, err
	}

	// Best effort: the quote ask is an executable price and fresher than
	// the last bar. A quote failure never fails the fetch.
	ask, err := p.bounded(ctx, ticker, "quote", func() (*models.Series, error) {
		return p.fetchAsk(ticker, w.To)
	})
	if err != nil {
		p.logger.Debug().Err(err).Str("ticker", ticker).Msg("Quote unavailable, using chart bars only")
	} else if s, ok := ask.Latest(); ok {
		series.Append(s)
	}

	return series, nil
}

// bounded runs fn off-goroutine and converts a context deadline into a
// ProviderError. The underlying finance client is not context-aware.
func (p *YahooProvider) bounded(ctx context.Context, ticker, op string, fn func() (*models.Series, error)) (*models.Series, error) {
	type result struct {
		series *models.Series
		err    error
	}

	start := time.Now()
	ch := make(chan result, 1)
	go func() {
		s, err := fn()
		ch <- result{series: s, err: err}
	}()

	select {
	case <-ctx.Done():
		logging.LogProviderCall(p.logger, ticker, op, 0, time.Since(start), ctx.Err())
		return nil, apperrors.NewProviderError(ticker, op, ctx.Err())
	case r := <-ch:
		rows := 0
		if r.series != nil {
			rows = len(r.series.Samples)
		}
		logging.LogProviderCall(p.logger, ticker, op, rows, time.Since(start), r.err)
		return r.series, r.err
	}
}

func (p *YahooProvider) fetchChart(ticker string, w Window) (*models.Series, error) {
	params := &chart.Params{
		Symbol:     ticker,
		Start:      datetime.New(&w.From),
		End:        datetime.New(&w.To),
		Interval:   chartInterval(w.Granularity),
		IncludeExt: true,
	}

	series := &models.Series{Ticker: ticker}
	iter := chart.Get(params)
	for iter.Next() {
		bar := iter.Bar()
		price, _ := bar.Close.Float64()
		if price <= 0 {
			continue
		}
		series.Append(models.Sample{
			Timestamp: time.Unix(int64(bar.Timestamp), 0),
			Price:     price,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.NewProviderError(ticker, "chart", err)
	}
	if len(series.Samples) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrDataUnavailable, "no rows for %s", ticker)
	}
	return series, nil
}

// fetchAsk returns a single-sample series holding the current ask, or
// ErrDataUnavailable when the quote carries none.
func (p *YahooProvider) fetchAsk(ticker string, asOf time.Time) (*models.Series, error) {
	q, err := quote.Get(ticker)
	if err != nil {
		return nil, apperrors.NewProviderError(ticker, "quote", err)
	}
	if q == nil || q.Ask <= 0 {
		return nil, apperrors.Wrapf(apperrors.ErrDataUnavailable, "no ask quote for %s", ticker)
	}
	return &models.Series{
		Ticker: ticker,
		Samples: []models.Sample{{
			Timestamp: asOf,
			Price:     q.Ask,
			IsAsk:     true,
		}},
	}, nil
}

func chartInterval(g Granularity) datetime.Interval {
	switch g {
	case GranularityOneMin:
		return datetime.OneMin
	case GranularityFifteenMin:
		return datetime.FifteenMins
	default:
		return datetime.FiveMins
	}
}
