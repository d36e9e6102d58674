// Package gate suppresses repeat alerts according to each rule's
// configured frequency, backed by persisted per-(ticker, kind) state.
package gate

import (
	"context"
	"time"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
	"stock-monitor/internal/store"
)

// Gate decides whether a candidate alert may fire. Each (ticker, kind)
// pair gates independently so a chatty percentage-move condition cannot
// starve a rare price-band one.
type Gate struct {
	store store.StateStore
	loc   *time.Location
}

// New creates a gate over the given state store. Calendar periods
// (day/week/month) are evaluated in loc, the exchange-local time zone.
func New(st store.StateStore, loc *time.Location) *Gate {
	return &Gate{store: st, loc: loc}
}

// Permit reports whether an alert for (ticker, kind) may fire now under
// freq, recording now against the key when it does. The record write is
// a compare-and-swap: when a concurrent run wins the race the candidate
// is denied. Store failures deny the alert (fail closed) and surface the
// persistence error.
func (g *Gate) Permit(ctx context.Context, ticker string, kind models.CandidateKind, freq models.Frequency, now time.Time) (bool, error) {
	state, err := g.store.Get(ctx, ticker, kind)
	if err != nil {
		return false, apperrors.Wrap(err, "gate read")
	}

	if state == nil {
		return g.swap(ctx, ticker, kind, nil, now)
	}

	if freq == models.FreqOnce {
		// Only an external delete of the record resets a "once" rule.
		return false, nil
	}

	if !strictlyEarlierPeriod(state.LastAlert, now, freq, g.loc) {
		return false, nil
	}

	prev := state.LastAlert
	return g.swap(ctx, ticker, kind, &prev, now)
}

func (g *Gate) swap(ctx context.Context, ticker string, kind models.CandidateKind, prev *time.Time, now time.Time) (bool, error) {
	swapped, err := g.store.CompareAndSwap(ctx, ticker, kind, prev, now)
	if err != nil {
		return false, apperrors.Wrap(err, "gate write")
	}
	return swapped, nil
}

// strictlyEarlierPeriod reports whether last falls in a strictly earlier
// calendar period than now for the given frequency, evaluated in loc.
func strictlyEarlierPeriod(last, now time.Time, freq models.Frequency, loc *time.Location) bool {
	last, now = last.In(loc), now.In(loc)

	switch freq {
	case models.FreqDaily:
		ly, lm, ld := last.Date()
		ny, nm, nd := now.Date()
		return ly < ny || (ly == ny && (lm < nm || (lm == nm && ld < nd)))
	case models.FreqWeekly:
		ly, lw := last.ISOWeek()
		ny, nw := now.ISOWeek()
		return ly < ny || (ly == ny && lw < nw)
	case models.FreqMonthly:
		ly, lm, _ := last.Date()
		ny, nm, _ := now.Date()
		return ly < ny || (ly == ny && lm < nm)
	default:
		return false
	}
}
