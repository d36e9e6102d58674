// Package monitor drives one monitoring pass over the watchlist.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/gate"
	"stock-monitor/internal/logging"
	"stock-monitor/internal/market"
	"stock-monitor/internal/models"
	"stock-monitor/internal/notify"
	"stock-monitor/internal/signal"
	"stock-monitor/internal/store"
)

// TickerReport is the per-ticker outcome of one pass.
type TickerReport struct {
	Ticker     string   `json:"ticker"`
	Samples    int      `json:"samples"`
	LastPrice  float64  `json:"last_price,omitempty"`
	PctChange  *float64 `json:"pct_change,omitempty"`
	Candidates int      `json:"candidates"`
	Fired      int      `json:"fired"`
	Err        string   `json:"error,omitempty"`
}

// RunReport aggregates one monitoring pass.
type RunReport struct {
	StartedAt time.Time      `json:"started_at"`
	Phase     market.Phase   `json:"phase"`
	Tickers   []TickerReport `json:"tickers,omitempty"`
}

// TotalFired returns the number of alerts fired during the pass.
func (r *RunReport) TotalFired() int {
	total := 0
	for _, t := range r.Tickers {
		total += t.Fired
	}
	return total
}

// Runner orchestrates fetch, evaluation, gating and notification for
// every watchlist rule, isolating per-ticker failures.
type Runner struct {
	clock    *market.Clock
	provider market.Provider
	gate     *gate.Gate
	store    store.StateStore
	notifier notify.Notifier
	logger   zerolog.Logger
	workers  int
	dryRun   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithDryRun makes the pass evaluate candidates without writing gate
// state or notifying.
func WithDryRun(dry bool) Option {
	return func(r *Runner) { r.dryRun = dry }
}

// NewRunner creates a monitoring runner.
func NewRunner(clock *market.Clock, provider market.Provider, g *gate.Gate, st store.StateStore, notifier notify.Notifier, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		clock:    clock,
		provider: provider,
		gate:     g,
		store:    st,
		notifier: notifier,
		logger:   logger,
		workers:  4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one pass over rules at the given wall-clock time. When
// the market is closed it returns an empty successful report. Per-ticker
// failures are recorded in the report and never abort the other tickers.
func (r *Runner) Run(ctx context.Context, rules []models.Rule, now time.Time) (*RunReport, error) {
	report := &RunReport{StartedAt: now}

	sess := r.clock.Resolve(now)
	report.Phase = sess.Phase
	if !sess.Active() {
		r.logger.Info().Str("phase", string(sess.Phase)).Msg("Market closed, nothing to do")
		return report, nil
	}

	from, to := r.clock.FetchWindow(now)
	window := market.Window{From: from, To: to, Granularity: sess.Granularity}

	r.logger.Info().
		Str("phase", string(sess.Phase)).
		Str("granularity", string(sess.Granularity)).
		Int("rules", len(rules)).
		Int("workers", r.workers).
		Msg("Starting monitoring pass")

	jobs := make(chan models.Rule)
	results := make(chan TickerReport)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rule := range jobs {
				results <- r.process(ctx, rule, window, now)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rule := range rules {
			select {
			case jobs <- rule:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for tr := range results {
		report.Tickers = append(report.Tickers, tr)
	}

	r.logger.Info().
		Int("tickers", len(report.Tickers)).
		Int("fired", report.TotalFired()).
		Msg("Monitoring pass complete")

	return report, nil
}

// process handles a single rule: fetch, evaluate, gate, notify.
func (r *Runner) process(ctx context.Context, rule models.Rule, window market.Window, now time.Time) TickerReport {
	tr := TickerReport{Ticker: rule.Ticker}
	logger := logging.WithTicker(r.logger, rule.Ticker)

	series, err := r.provider.Fetch(ctx, rule.Ticker, window)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataUnavailable) {
			logger.Warn().Err(err).Msg("No data for ticker, skipping")
		} else {
			logger.Error().Err(err).Msg("Provider failure, skipping ticker")
		}
		tr.Err = err.Error()
		return tr
	}

	tr.Samples = len(series.Samples)
	if latest, ok := series.Latest(); ok {
		tr.LastPrice = latest.Price
	}
	if prev, curr, ok := series.LastTwo(); ok && prev.Price != 0 {
		pct := signal.PctChange(prev, curr)
		tr.PctChange = &pct
		logger.Debug().
			Time("prev_at", prev.Timestamp).Float64("prev", prev.Price).
			Time("curr_at", curr.Timestamp).Float64("curr", curr.Price).
			Float64("pct_change", pct).
			Msg("Series detail")
	}

	candidates, err := signal.Evaluate(series, rule)
	if err != nil {
		// Pct-move check was undefined; band candidates still apply.
		logger.Warn().Err(err).Msg("Percentage-move check skipped")
		tr.Err = err.Error()
	}
	tr.Candidates = len(candidates)

	for _, c := range candidates {
		fired, err := r.fire(ctx, c, rule, now, logger)
		if err != nil && tr.Err == "" {
			tr.Err = err.Error()
		}
		if fired {
			tr.Fired++
		}
	}

	return tr
}

// fire gates one candidate and, when permitted, records and notifies it.
// Gate state is written before notifying: a notification failure can
// drop an alert but never duplicates one.
func (r *Runner) fire(ctx context.Context, c models.Candidate, rule models.Rule, now time.Time, logger zerolog.Logger) (bool, error) {
	if r.dryRun {
		logger.Info().
			Str("kind", string(c.Kind)).
			Float64("magnitude", c.Magnitude).
			Msg("Dry run: candidate found")
		return false, nil
	}

	permitted, err := r.gate.Permit(ctx, c.Ticker, c.Kind, rule.Frequency, now)
	if err != nil {
		logger.Error().Err(err).Str("kind", string(c.Kind)).Msg("Gate failed closed")
		return false, err
	}
	if !permitted {
		logging.LogAlertSuppressed(logger, c.Ticker, string(c.Kind), string(rule.Frequency))
		return false, nil
	}

	alert := models.FiredAlert{
		Ticker:    c.Ticker,
		Kind:      c.Kind,
		Magnitude: c.Magnitude,
		Direction: c.Direction,
		SampleAt:  c.Timestamp,
		FiredAt:   now,
	}

	if err := r.store.RecordAlert(ctx, alert); err != nil {
		logger.Error().Err(err).Msg("Failed to record alert history")
	}

	logging.LogAlertFired(logger, c.Ticker, string(c.Kind), c.Magnitude)

	if err := r.notifier.SendAlert(ctx, alert, rule); err != nil {
		logger.Error().Err(err).Msg("Notification failed, alert not retried")
	}

	return true, nil
}
