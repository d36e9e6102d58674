// Package market provides market session resolution and price data access.
package market

import (
	"fmt"
	"time"
)

// Phase represents the trading-day phase.
type Phase string

const (
	PhasePreMarket  Phase = "PRE_MARKET"
	PhaseRegular    Phase = "REGULAR"
	PhasePostMarket Phase = "POST_MARKET"
	PhaseClosed     Phase = "CLOSED"
)

// Granularity is the bar spacing used when sampling a session.
type Granularity string

const (
	GranularityOneMin     Granularity = "1m"
	GranularityFiveMin    Granularity = "5m"
	GranularityFifteenMin Granularity = "15m"
)

// Session is the resolved trading-day phase with its exchange-local
// window and the sampling granularity appropriate to it. Recomputed each
// run, never persisted.
type Session struct {
	Phase       Phase
	Start       time.Time // window start, exchange-local
	End         time.Time // window end, exchange-local, half-open
	Granularity Granularity
}

// Active reports whether any fetch/evaluation should happen.
func (s Session) Active() bool {
	return s.Phase != PhaseClosed
}

// Clock resolves wall-clock time into a market session. Boundaries are
// anchored to the exchange's local time (US equities, Eastern Time).
//
// Weekends and market holidays are resolved by time-of-day only; a
// holiday calendar is a known limitation.
type Clock struct {
	loc *time.Location
}

// NewClock creates a session clock for America/New_York.
func NewClock() (*Clock, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading exchange time zone: %w", err)
	}
	return &Clock{loc: loc}, nil
}

// Location returns the exchange-local time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Session boundaries in minutes from midnight ET.
const (
	preMarketStart = 4 * 60    // 04:00
	regularStart   = 9*60 + 30 // 09:30
	regularEnd     = 16 * 60   // 16:00
	postMarketEnd  = 20 * 60   // 20:00
)

// Resolve maps now into one of four half-open intervals: pre-market
// [04:00, 09:30), regular [09:30, 16:00), post-market [16:00, 20:00),
// otherwise closed.
func (c *Clock) Resolve(now time.Time) Session {
	t := now.In(c.loc)
	minutes := t.Hour()*60 + t.Minute()

	switch {
	case minutes >= preMarketStart && minutes < regularStart:
		return Session{
			Phase:       PhasePreMarket,
			Start:       timeAt(t, 4, 0),
			End:         timeAt(t, 9, 30),
			Granularity: GranularityFifteenMin,
		}
	case minutes >= regularStart && minutes < regularEnd:
		return Session{
			Phase:       PhaseRegular,
			Start:       timeAt(t, 9, 30),
			End:         timeAt(t, 16, 0),
			Granularity: GranularityFiveMin,
		}
	case minutes >= regularEnd && minutes < postMarketEnd:
		return Session{
			Phase:       PhasePostMarket,
			Start:       timeAt(t, 16, 0),
			End:         timeAt(t, 20, 0),
			Granularity: GranularityFifteenMin,
		}
	default:
		return Session{Phase: PhaseClosed}
	}
}

// FetchWindow returns the window to request from the provider for an
// active session: from 04:00 ET of the session day up to now, so a run
// early in a phase still has a previous sample from the prior phase.
func (c *Clock) FetchWindow(now time.Time) (from, to time.Time) {
	t := now.In(c.loc)
	return timeAt(t, 4, 0), t
}

// timeAt creates a time on the same day at the specified hour and minute.
func timeAt(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

// String returns a human-readable description of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePreMarket:
		return "Pre-Market (04:00-09:30 ET)"
	case PhaseRegular:
		return "Regular (09:30-16:00 ET)"
	case PhasePostMarket:
		return "Post-Market (16:00-20:00 ET)"
	case PhaseClosed:
		return "Closed"
	default:
		return string(p)
	}
}
