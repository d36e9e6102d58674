package market

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func mustClock(t *testing.T) *Clock {
	t.Helper()
	clock, err := NewClock()
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return clock
}

func etTime(t *testing.T, hour, min, sec int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading time zone: %v", err)
	}
	return time.Date(2025, 6, 2, hour, min, sec, 0, loc)
}

func TestResolvePhaseBoundaries(t *testing.T) {
	clock := mustClock(t)

	cases := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"before pre-market", etTime(t, 3, 59, 59), PhaseClosed},
		{"pre-market opens", etTime(t, 4, 0, 0), PhasePreMarket},
		{"last pre-market second", etTime(t, 9, 29, 59), PhasePreMarket},
		{"regular opens", etTime(t, 9, 30, 0), PhaseRegular},
		{"mid regular", etTime(t, 12, 0, 0), PhaseRegular},
		{"last regular second", etTime(t, 15, 59, 59), PhaseRegular},
		{"post-market opens", etTime(t, 16, 0, 0), PhasePostMarket},
		{"last post-market second", etTime(t, 19, 59, 59), PhasePostMarket},
		{"post-market closes", etTime(t, 20, 0, 0), PhaseClosed},
		{"midnight", etTime(t, 0, 0, 0), PhaseClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := clock.Resolve(tc.now)
			if got.Phase != tc.want {
				t.Errorf("Resolve(%s) = %s, want %s", tc.now.Format("15:04:05"), got.Phase, tc.want)
			}
		})
	}
}

func TestResolveGranularityPerPhase(t *testing.T) {
	clock := mustClock(t)

	cases := []struct {
		now  time.Time
		want Granularity
	}{
		{etTime(t, 5, 0, 0), GranularityFifteenMin},
		{etTime(t, 10, 0, 0), GranularityFiveMin},
		{etTime(t, 17, 0, 0), GranularityFifteenMin},
	}

	for _, tc := range cases {
		got := clock.Resolve(tc.now)
		if got.Granularity != tc.want {
			t.Errorf("Resolve(%s).Granularity = %s, want %s", tc.now.Format("15:04"), got.Granularity, tc.want)
		}
	}
}

func TestResolveUsesEasternTime(t *testing.T) {
	clock := mustClock(t)

	// 14:00 UTC on a June day is 10:00 ET (EDT), inside regular hours.
	utc := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	got := clock.Resolve(utc)
	if got.Phase != PhaseRegular {
		t.Errorf("Resolve(14:00 UTC in June) = %s, want %s", got.Phase, PhaseRegular)
	}
}

func TestClosedSessionIsInactive(t *testing.T) {
	clock := mustClock(t)

	s := clock.Resolve(etTime(t, 2, 0, 0))
	if s.Active() {
		t.Error("closed session reported active")
	}
	s = clock.Resolve(etTime(t, 10, 0, 0))
	if !s.Active() {
		t.Error("regular session reported inactive")
	}
}

func TestFetchWindowStartsAtPreMarketOpen(t *testing.T) {
	clock := mustClock(t)

	now := etTime(t, 10, 15, 0)
	from, to := clock.FetchWindow(now)

	if from.Hour() != 4 || from.Minute() != 0 {
		t.Errorf("window start = %s, want 04:00 ET", from.Format("15:04"))
	}
	if from.Year() != now.Year() || from.YearDay() != now.YearDay() {
		t.Errorf("window start not on session day: %s", from)
	}
	if !to.Equal(now) {
		t.Errorf("window end = %s, want %s", to, now)
	}
}

// Property: every time of day resolves to exactly one phase, and the
// resolved window contains the input time for active phases.
func TestProperty_ResolveWindowContainsNow(t *testing.T) {
	clock := mustClock(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("active session windows contain the resolved time", prop.ForAll(
		func(hour, minute, sec int) bool {
			now := etTime(t, hour, minute, sec)
			s := clock.Resolve(now)
			if !s.Active() {
				return s.Start.IsZero() && s.End.IsZero()
			}
			return !now.Before(s.Start) && now.Before(s.End)
		},
		gen.IntRange(0, 23),
		gen.IntRange(0, 59),
		gen.IntRange(0, 59),
	))

	properties.TestingRun(t)
}
