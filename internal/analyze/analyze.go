// Package analyze replays the signal evaluator over historical data to
// report how many alerts each threshold would have produced.
package analyze

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/market"
	"stock-monitor/internal/models"
	"stock-monitor/internal/signal"
)

// ThresholdCount is the alert count for one candidate threshold.
type ThresholdCount struct {
	Threshold float64 `json:"threshold"`
	Alerts    int     `json:"alerts"`
}

// TickerAnalysis is the what-if result for one ticker.
type TickerAnalysis struct {
	Ticker  string           `json:"ticker"`
	Samples int              `json:"samples"`
	Counts  []ThresholdCount `json:"counts,omitempty"`
	Err     string           `json:"error,omitempty"`
}

// Analyzer sweeps thresholds over historical price series. The alert
// gate is deliberately absent: every qualifying move counts.
type Analyzer struct {
	provider    market.Provider
	lookback    time.Duration
	granularity market.Granularity
	logger      zerolog.Logger
}

// New creates an analyzer fetching lookbackDays of history per ticker.
func New(provider market.Provider, lookbackDays int, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		provider:    provider,
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		granularity: market.GranularityFiveMin,
		logger:      logger,
	}
}

// Run analyzes each ticker against each threshold. Per-ticker provider
// failures are recorded in the result, not returned.
func (a *Analyzer) Run(ctx context.Context, tickers []string, thresholds []float64, now time.Time) []TickerAnalysis {
	window := market.Window{
		From:        now.Add(-a.lookback),
		To:          now,
		Granularity: a.granularity,
	}

	results := make([]TickerAnalysis, 0, len(tickers))
	for _, ticker := range tickers {
		results = append(results, a.analyzeTicker(ctx, ticker, thresholds, window))
	}
	return results
}

func (a *Analyzer) analyzeTicker(ctx context.Context, ticker string, thresholds []float64, window market.Window) TickerAnalysis {
	res := TickerAnalysis{Ticker: ticker}

	series, err := a.provider.Fetch(ctx, ticker, window)
	if err != nil {
		a.logger.Warn().Err(err).Str("ticker", ticker).Msg("Could not analyze ticker")
		res.Err = err.Error()
		return res
	}
	res.Samples = len(series.Samples)

	for _, threshold := range thresholds {
		res.Counts = append(res.Counts, ThresholdCount{
			Threshold: threshold,
			Alerts:    CountAlerts(series, threshold),
		})
	}
	return res
}

// CountAlerts replays the evaluator over every consecutive sample pair
// and counts percentage-move candidates at the given threshold, both
// directions. Monitoring and analysis share one evaluator so the report
// predicts exactly what the monitor would fire.
func CountAlerts(series *models.Series, threshold float64) int {
	rule := models.Rule{
		Ticker:    series.Ticker,
		Threshold: threshold,
		Direction: models.DirectionBoth,
	}

	count := 0
	for i := 1; i < len(series.Samples); i++ {
		pair := &models.Series{
			Ticker:  series.Ticker,
			Samples: series.Samples[i-1 : i+1],
		}
		candidates, err := signal.Evaluate(pair, rule)
		if err != nil && !apperrors.Is(err, apperrors.ErrDataUnavailable) {
			continue
		}
		count += len(candidates)
	}
	return count
}
