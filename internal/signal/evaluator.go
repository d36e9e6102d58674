// Package signal turns a price series and a rule into alert candidates.
// Everything here is pure: no I/O, no clock, deterministic.
package signal

import (
	"math"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
)

// PctChange returns the percentage change from prev to curr.
// prev.Price must be nonzero.
func PctChange(prev, curr models.Sample) float64 {
	return (curr.Price - prev.Price) / prev.Price * 100
}

// Evaluate classifies series against rule and returns zero or more alert
// candidates: at most one percentage-move candidate from the last two
// samples and at most one candidate per configured price bound from the
// latest sample.
//
// A series with fewer than two samples yields no pct-move candidate but
// band checks still run against the single latest sample. A zero
// previous price makes the pct-move check undefined; Evaluate then still
// returns the band candidates together with ErrDataUnavailable.
func Evaluate(series *models.Series, rule models.Rule) ([]models.Candidate, error) {
	var candidates []models.Candidate
	var evalErr error

	if prev, curr, ok := series.LastTwo(); ok {
		if prev.Price == 0 {
			evalErr = apperrors.Wrapf(apperrors.ErrDataUnavailable, "zero previous price for %s", rule.Ticker)
		} else if c, ok := pctMoveCandidate(prev, curr, rule); ok {
			candidates = append(candidates, c)
		}
	}

	if curr, ok := series.Latest(); ok {
		candidates = append(candidates, bandCandidates(curr, rule)...)
	}

	return candidates, evalErr
}

// pctMoveCandidate fires when the magnitude of the move reaches the
// threshold and its sign is compatible with the rule's direction. A zero
// change never fires: it has no direction to assign.
func pctMoveCandidate(prev, curr models.Sample, rule models.Rule) (models.Candidate, bool) {
	pct := PctChange(prev, curr)
	if pct == 0 || math.Abs(pct) < rule.Threshold {
		return models.Candidate{}, false
	}

	moveDir := models.DirectionGain
	if pct < 0 {
		moveDir = models.DirectionDrop
	}
	if rule.Direction != models.DirectionBoth && rule.Direction != moveDir {
		return models.Candidate{}, false
	}

	return models.Candidate{
		Ticker:    rule.Ticker,
		Kind:      models.KindPctMove,
		Magnitude: pct,
		Direction: moveDir,
		Timestamp: curr.Timestamp,
	}, true
}

// bandCandidates checks the latest price against the configured bounds.
// Band checks are independent of the rule's direction.
func bandCandidates(curr models.Sample, rule models.Rule) []models.Candidate {
	var out []models.Candidate

	if rule.PriceBelow != nil && curr.Price < *rule.PriceBelow {
		out = append(out, models.Candidate{
			Ticker:    rule.Ticker,
			Kind:      models.KindPriceBelow,
			Magnitude: curr.Price,
			Timestamp: curr.Timestamp,
		})
	}
	if rule.PriceAbove != nil && curr.Price > *rule.PriceAbove {
		out = append(out, models.Candidate{
			Ticker:    rule.Ticker,
			Kind:      models.KindPriceAbove,
			Magnitude: curr.Price,
			Timestamp: curr.Timestamp,
		})
	}
	return out
}
