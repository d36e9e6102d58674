package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
)

func sampleAt(min int, price float64) models.Sample {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	return models.Sample{Timestamp: base.Add(time.Duration(min) * time.Minute), Price: price}
}

func seriesOf(ticker string, prices ...float64) *models.Series {
	s := &models.Series{Ticker: ticker}
	for i, p := range prices {
		s.Samples = append(s.Samples, sampleAt(i*5, p))
	}
	return s
}

func floatPtr(v float64) *float64 { return &v }

func TestEvaluateSmallMoveInsideBandsNoCandidates(t *testing.T) {
	// 410 -> 416 is +1.46%, under a 2% threshold, and 416 sits inside
	// the (400, 500) band.
	rule := models.Rule{
		Ticker:     "NVDA",
		Threshold:  2.0,
		Direction:  models.DirectionBoth,
		PriceBelow: floatPtr(400),
		PriceAbove: floatPtr(500),
		Frequency:  models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("NVDA", 410, 416), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", candidates)
	}
}

func TestEvaluatePriceBelowFires(t *testing.T) {
	rule := models.Rule{
		Ticker:     "NVDA",
		Threshold:  2.0,
		Direction:  models.DirectionBoth,
		PriceBelow: floatPtr(400),
		PriceAbove: floatPtr(500),
		Frequency:  models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("NVDA", 401, 399), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %v", candidates)
	}
	if candidates[0].Kind != models.KindPriceBelow {
		t.Errorf("expected price_below, got %s", candidates[0].Kind)
	}
	if candidates[0].Magnitude != 399 {
		t.Errorf("expected magnitude 399, got %v", candidates[0].Magnitude)
	}
}

func TestEvaluateDropFiresPctMove(t *testing.T) {
	// 50 -> 48.9 is -2.2%, beyond a 2% drop-only threshold.
	rule := models.Rule{
		Ticker:    "MLTX",
		Threshold: 2.0,
		Direction: models.DirectionDrop,
		Frequency: models.FreqOnce,
	}

	candidates, err := Evaluate(seriesOf("MLTX", 50, 48.9), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %v", candidates)
	}
	c := candidates[0]
	if c.Kind != models.KindPctMove {
		t.Errorf("expected pct_move, got %s", c.Kind)
	}
	if c.Direction != models.DirectionDrop {
		t.Errorf("expected drop direction, got %s", c.Direction)
	}
	if c.Magnitude >= 0 {
		t.Errorf("expected negative magnitude, got %v", c.Magnitude)
	}
}

func TestEvaluateDirectionFiltersGain(t *testing.T) {
	rule := models.Rule{
		Ticker:    "MLTX",
		Threshold: 2.0,
		Direction: models.DirectionDrop,
		Frequency: models.FreqOnce,
	}

	// +3% gain must not fire a drop-only rule.
	candidates, err := Evaluate(seriesOf("MLTX", 100, 103), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates for gain on drop-only rule, got %v", candidates)
	}
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	rule := models.Rule{
		Ticker:    "AAPL",
		Threshold: 2.0,
		Direction: models.DirectionBoth,
		Frequency: models.FreqDaily,
	}

	// Exactly +2.00% fires.
	candidates, err := Evaluate(seriesOf("AAPL", 100, 102), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Kind != models.KindPctMove {
		t.Fatalf("expected pct_move at exact threshold, got %v", candidates)
	}
}

func TestEvaluateZeroChangeNeverFires(t *testing.T) {
	rule := models.Rule{
		Ticker:    "AAPL",
		Threshold: 0,
		Direction: models.DirectionBoth,
		Frequency: models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("AAPL", 100, 100), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates for flat price, got %v", candidates)
	}
}

func TestEvaluateSingleSampleStillChecksBands(t *testing.T) {
	rule := models.Rule{
		Ticker:     "TSLA",
		Threshold:  1.0,
		Direction:  models.DirectionBoth,
		PriceAbove: floatPtr(200),
		Frequency:  models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("TSLA", 210), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Kind != models.KindPriceAbove {
		t.Fatalf("expected price_above from single sample, got %v", candidates)
	}
}

func TestEvaluateZeroPrevPriceReturnsBandsAndError(t *testing.T) {
	rule := models.Rule{
		Ticker:     "BAD",
		Threshold:  1.0,
		Direction:  models.DirectionBoth,
		PriceBelow: floatPtr(10),
		Frequency:  models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("BAD", 0, 5), rule)
	if !errors.Is(err, apperrors.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if len(candidates) != 1 || candidates[0].Kind != models.KindPriceBelow {
		t.Fatalf("expected band candidate despite undefined pct, got %v", candidates)
	}
}

func TestEvaluateBandExactBoundaryDoesNotFire(t *testing.T) {
	rule := models.Rule{
		Ticker:     "NVDA",
		Threshold:  50,
		Direction:  models.DirectionBoth,
		PriceBelow: floatPtr(400),
		PriceAbove: floatPtr(500),
		Frequency:  models.FreqDaily,
	}

	for _, price := range []float64{400, 500} {
		candidates, err := Evaluate(seriesOf("NVDA", price), rule)
		if err != nil {
			t.Fatalf("Evaluate returned error: %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("price %v at boundary should not fire, got %v", price, candidates)
		}
	}
}

func TestEvaluateBothBoundsCanFireWithPctMove(t *testing.T) {
	// A large drop both crosses the pct threshold and lands below the
	// lower bound; both candidates must be produced.
	rule := models.Rule{
		Ticker:     "NVDA",
		Threshold:  2.0,
		Direction:  models.DirectionBoth,
		PriceBelow: floatPtr(400),
		Frequency:  models.FreqDaily,
	}

	candidates, err := Evaluate(seriesOf("NVDA", 420, 395), rule)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	kinds := map[models.CandidateKind]bool{}
	for _, c := range candidates {
		kinds[c.Kind] = true
	}
	if !kinds[models.KindPctMove] || !kinds[models.KindPriceBelow] {
		t.Fatalf("expected pct_move and price_below, got %v", candidates)
	}
}

// Property: a candidate's magnitude always reaches the threshold, and its
// sign always matches its reported direction.
func TestProperty_PctMoveMagnitudeAndDirection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fired pct-move candidates respect threshold and sign", prop.ForAll(
		func(prev, curr, threshold float64) bool {
			rule := models.Rule{
				Ticker:    "PROP",
				Threshold: threshold,
				Direction: models.DirectionBoth,
				Frequency: models.FreqDaily,
			}
			candidates, err := Evaluate(seriesOf("PROP", prev, curr), rule)
			if err != nil {
				return false
			}
			for _, c := range candidates {
				if c.Kind != models.KindPctMove {
					continue
				}
				if math.Abs(c.Magnitude) < threshold {
					t.Logf("magnitude %v under threshold %v", c.Magnitude, threshold)
					return false
				}
				if c.Magnitude > 0 && c.Direction != models.DirectionGain {
					return false
				}
				if c.Magnitude < 0 && c.Direction != models.DirectionDrop {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
		gen.Float64Range(0, 50),
	))

	properties.TestingRun(t)
}

// Property: tightening the direction can only remove candidates, never
// add or alter them.
func TestProperty_DirectionOnlyFilters(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("gain-only and drop-only are subsets of both", prop.ForAll(
		func(prev, curr, threshold float64) bool {
			base := models.Rule{
				Ticker:    "PROP",
				Threshold: threshold,
				Direction: models.DirectionBoth,
				Frequency: models.FreqDaily,
			}
			series := seriesOf("PROP", prev, curr)

			both, err := Evaluate(series, base)
			if err != nil {
				return false
			}

			for _, dir := range []models.Direction{models.DirectionGain, models.DirectionDrop} {
				narrowed := base
				narrowed.Direction = dir
				got, err := Evaluate(series, narrowed)
				if err != nil {
					return false
				}
				if len(got) > len(both) {
					return false
				}
				for _, c := range got {
					if c.Kind == models.KindPctMove && c.Direction != dir {
						return false
					}
				}
			}
			return true
		},
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
		gen.Float64Range(0, 50),
	))

	properties.TestingRun(t)
}

// Property: band candidates depend only on the latest price and the
// bounds, never on the rule's direction or threshold.
func TestProperty_BandChecksIgnoreDirection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("band candidates are stable across directions", prop.ForAll(
		func(price, below, above float64) bool {
			series := seriesOf("PROP", price)

			var reference []models.CandidateKind
			for i, dir := range []models.Direction{models.DirectionBoth, models.DirectionGain, models.DirectionDrop} {
				rule := models.Rule{
					Ticker:     "PROP",
					Threshold:  1.0,
					Direction:  dir,
					PriceBelow: floatPtr(below),
					PriceAbove: floatPtr(above),
					Frequency:  models.FreqDaily,
				}
				candidates, err := Evaluate(series, rule)
				if err != nil {
					return false
				}
				kinds := make([]models.CandidateKind, 0, len(candidates))
				for _, c := range candidates {
					if c.Kind != models.KindPctMove {
						kinds = append(kinds, c.Kind)
					}
				}
				if i == 0 {
					reference = kinds
					continue
				}
				if len(kinds) != len(reference) {
					return false
				}
				for j := range kinds {
					if kinds[j] != reference[j] {
						return false
					}
				}
			}
			return true
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
	))

	properties.TestingRun(t)
}
