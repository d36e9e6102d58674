// Package store provides alert-state persistence implementations.
package store

import (
	"context"
	"time"

	"stock-monitor/internal/models"
)

// StateStore persists the last-alert record per (ticker, kind). The gate
// needs only get and compare-and-swap semantics; any keyed backing works.
type StateStore interface {
	// Get returns the state for (ticker, kind), or nil when none exists.
	Get(ctx context.Context, ticker string, kind models.CandidateKind) (*models.AlertState, error)

	// CompareAndSwap records next as the last-alert time iff the stored
	// value still equals prev (nil prev means "no record yet"). It
	// reports false when a concurrent writer won the race.
	CompareAndSwap(ctx context.Context, ticker string, kind models.CandidateKind, prev *time.Time, next time.Time) (bool, error)

	// RecordAlert appends a fired alert to the history log.
	RecordAlert(ctx context.Context, alert models.FiredAlert) error

	// Close releases the backing resources.
	Close() error
}

// HistoryFilter narrows RecentAlerts queries.
type HistoryFilter struct {
	Ticker string
	Kind   models.CandidateKind
	Since  time.Time
	Limit  int
}
