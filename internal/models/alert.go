package models

import "time"

// CandidateKind is the category of triggering condition. It is part of
// the alert gate key, so the same ticker's conditions gate independently.
type CandidateKind string

const (
	KindPctMove    CandidateKind = "pct_move"
	KindPriceBelow CandidateKind = "price_below"
	KindPriceAbove CandidateKind = "price_above"
)

// Candidate is an alert-worthy condition produced by the signal
// evaluator, before frequency gating.
type Candidate struct {
	Ticker    string        `json:"ticker"`
	Kind      CandidateKind `json:"kind"`
	Magnitude float64       `json:"magnitude"` // percentage for pct_move, price for band hits
	Direction Direction     `json:"direction,omitempty"`
	Timestamp time.Time     `json:"timestamp"` // timestamp of the triggering sample
}

// AlertState is the persisted last-alert record for one (ticker, kind).
// It is written on every permitted alert and never auto-deleted; the
// user deletes it externally to reset "once" rules.
type AlertState struct {
	Ticker    string        `json:"ticker"`
	Kind      CandidateKind `json:"kind"`
	LastAlert time.Time     `json:"last_alert"`
}

// FiredAlert is one alert that passed the gate, kept as history.
type FiredAlert struct {
	Ticker    string        `json:"ticker"`
	Kind      CandidateKind `json:"kind"`
	Magnitude float64       `json:"magnitude"`
	Direction Direction     `json:"direction,omitempty"`
	SampleAt  time.Time     `json:"sample_at"`
	FiredAt   time.Time     `json:"fired_at"`
}
