package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
	"stock-monitor/internal/store"
)

func etLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading time zone: %v", err)
	}
	return loc
}

func permit(t *testing.T, g *Gate, kind models.CandidateKind, freq models.Frequency, now time.Time) bool {
	t.Helper()
	ok, err := g.Permit(context.Background(), "NVDA", kind, freq, now)
	if err != nil {
		t.Fatalf("Permit: %v", err)
	}
	return ok
}

func TestPermitFirstAlertAlwaysFires(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqDaily, now) {
		t.Fatal("first alert was denied")
	}
}

func TestPermitOnceNeverRefires(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPriceBelow, models.FreqOnce, now) {
		t.Fatal("first alert was denied")
	}
	// Not same day, not next month: once means never again.
	for _, later := range []time.Time{
		now.Add(time.Hour),
		now.AddDate(0, 0, 1),
		now.AddDate(0, 1, 0),
		now.AddDate(1, 0, 0),
	} {
		if permit(t, g, models.KindPriceBelow, models.FreqOnce, later) {
			t.Errorf("once rule re-fired at %s", later)
		}
	}
}

func TestPermitDailyRefiresNextCalendarDay(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	first := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqDaily, first) {
		t.Fatal("first alert was denied")
	}

	// Later the same day is suppressed, even 13 hours later.
	if permit(t, g, models.KindPctMove, models.FreqDaily, first.Add(13*time.Hour)) {
		t.Error("daily rule re-fired same calendar day")
	}

	// The next calendar day fires even if fewer than 24h elapsed.
	nextDay := time.Date(2025, 6, 3, 4, 30, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqDaily, nextDay) {
		t.Error("daily rule did not re-fire on next calendar day")
	}
}

func TestPermitWeeklyUsesISOWeeks(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	// Monday of one ISO week.
	monday := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqWeekly, monday) {
		t.Fatal("first alert was denied")
	}

	// Sunday of the same ISO week is suppressed.
	sunday := time.Date(2025, 6, 8, 10, 0, 0, 0, loc)
	if permit(t, g, models.KindPctMove, models.FreqWeekly, sunday) {
		t.Error("weekly rule re-fired within the same ISO week")
	}

	// Monday of the following week fires.
	nextMonday := time.Date(2025, 6, 9, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqWeekly, nextMonday) {
		t.Error("weekly rule did not re-fire in the next ISO week")
	}
}

func TestPermitMonthlyRefiresNextMonth(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	lastOfJune := time.Date(2025, 6, 30, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqMonthly, lastOfJune) {
		t.Fatal("first alert was denied")
	}

	firstOfJuly := time.Date(2025, 7, 1, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqMonthly, firstOfJuly) {
		t.Error("monthly rule did not re-fire on the first of the next month")
	}
}

func TestPermitKindsGateIndependently(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	if !permit(t, g, models.KindPctMove, models.FreqDaily, now) {
		t.Fatal("pct_move denied")
	}
	// Same ticker, different kind, same day: must still fire.
	if !permit(t, g, models.KindPriceBelow, models.FreqDaily, now.Add(time.Minute)) {
		t.Error("price_below suppressed by pct_move state")
	}
	// But pct_move itself is now suppressed.
	if permit(t, g, models.KindPctMove, models.FreqDaily, now.Add(time.Minute)) {
		t.Error("pct_move re-fired same day")
	}
}

func TestPermitCalendarPeriodsEvaluatedInEastern(t *testing.T) {
	loc := etLocation(t)
	g := New(store.NewMemoryStore(), loc)

	// 23:00 UTC on June 2 is 19:00 ET June 2. 03:00 UTC on June 3 is
	// still 23:00 ET June 2, so a daily rule must stay suppressed.
	first := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	if !permit(t, g, models.KindPctMove, models.FreqDaily, first) {
		t.Fatal("first alert was denied")
	}
	sameETDay := time.Date(2025, 6, 3, 3, 0, 0, 0, time.UTC)
	if permit(t, g, models.KindPctMove, models.FreqDaily, sameETDay) {
		t.Error("daily rule re-fired during the same ET day")
	}
}

type failingStore struct {
	*store.MemoryStore
	failGet  bool
	failSwap bool
}

func (f *failingStore) Get(ctx context.Context, ticker string, kind models.CandidateKind) (*models.AlertState, error) {
	if f.failGet {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "injected")
	}
	return f.MemoryStore.Get(ctx, ticker, kind)
}

func (f *failingStore) CompareAndSwap(ctx context.Context, ticker string, kind models.CandidateKind, prev *time.Time, next time.Time) (bool, error) {
	if f.failSwap {
		return false, apperrors.Wrap(apperrors.ErrPersistence, "injected")
	}
	return f.MemoryStore.CompareAndSwap(ctx, ticker, kind, prev, next)
}

func TestPermitFailsClosedOnStoreErrors(t *testing.T) {
	loc := etLocation(t)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)

	for _, tc := range []struct {
		name string
		st   *failingStore
	}{
		{"read failure", &failingStore{MemoryStore: store.NewMemoryStore(), failGet: true}},
		{"write failure", &failingStore{MemoryStore: store.NewMemoryStore(), failSwap: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := New(tc.st, loc)
			ok, err := g.Permit(context.Background(), "NVDA", models.KindPctMove, models.FreqDaily, now)
			if ok {
				t.Error("alert permitted despite store failure")
			}
			if !errors.Is(err, apperrors.ErrPersistence) {
				t.Errorf("expected ErrPersistence, got %v", err)
			}
		})
	}
}

func TestPermitLostRaceDenies(t *testing.T) {
	loc := etLocation(t)
	st := store.NewMemoryStore()
	g := New(st, loc)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)

	// Simulate a concurrent run writing between Get and CompareAndSwap:
	// seed state after the gate has seen none.
	if _, err := st.CompareAndSwap(context.Background(), "NVDA", models.KindPctMove, nil, now); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	ok, err := g.Permit(context.Background(), "NVDA", models.KindPctMove, models.FreqDaily, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Permit: %v", err)
	}
	if ok {
		t.Error("alert permitted twice on the same day")
	}
}
