// Package models provides domain models for the stock monitor.
package models

import (
	"time"
)

// Direction constrains which sign of a percentage move triggers an alert.
type Direction string

const (
	DirectionBoth Direction = "both"
	DirectionGain Direction = "gain"
	DirectionDrop Direction = "drop"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBoth, DirectionGain, DirectionDrop:
		return true
	}
	return false
}

// Frequency controls how often the same alert condition may re-fire.
type Frequency string

const (
	FreqOnce    Frequency = "once"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqOnce, FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// DefaultThreshold is the percentage-move threshold applied when the
// watchlist entry leaves it blank.
const DefaultThreshold = 0.5

// Rule is one ticker's monitoring configuration, immutable once loaded.
type Rule struct {
	Ticker     string
	Threshold  float64 // non-negative percentage
	Direction  Direction
	PriceBelow *float64
	PriceAbove *float64
	Frequency  Frequency
}

// Sample is a single observed price point. Price is the ask price when
// the provider returned one, since that reflects an executable price.
type Sample struct {
	Timestamp time.Time
	Price     float64
	IsAsk     bool
}

// Series is a time-ordered price series for one ticker: ascending
// timestamps, no duplicates. It lives for a single evaluation.
type Series struct {
	Ticker  string
	Samples []Sample
}

// Latest returns the most recent sample.
func (s *Series) Latest() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// LastTwo returns the last two samples by timestamp.
func (s *Series) LastTwo() (prev, curr Sample, ok bool) {
	if len(s.Samples) < 2 {
		return Sample{}, Sample{}, false
	}
	return s.Samples[len(s.Samples)-2], s.Samples[len(s.Samples)-1], true
}

// Append adds a sample, keeping timestamps strictly ascending. Samples
// at or before the current latest timestamp are dropped.
func (s *Series) Append(sample Sample) {
	if last, ok := s.Latest(); ok && !sample.Timestamp.After(last.Timestamp) {
		return
	}
	s.Samples = append(s.Samples, sample)
}
