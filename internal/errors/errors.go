// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	// ErrDataUnavailable means the provider returned no usable rows for
	// a ticker and window. Recoverable: skip the ticker this run.
	ErrDataUnavailable = errors.New("no market data available")
	// ErrInvalidRule marks a malformed watchlist entry, rejected at load.
	ErrInvalidRule = errors.New("invalid watchlist rule")
	// ErrPersistence means alert state could not be read or written. The
	// gate fails closed on it.
	ErrPersistence = errors.New("alert state persistence failed")
	// ErrProvider matches any ProviderError; transient, safe to retry.
	ErrProvider      = errors.New("market data provider failure")
	ErrMarketClosed  = errors.New("market is closed")
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrTimeout       = errors.New("operation timed out")
)

// ProviderError represents a transport failure from the market-data
// provider. Recoverable per ticker.
type ProviderError struct {
	Ticker string
	Op     string // chart, quote
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s] %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// NewProviderError creates a new ProviderError.
func NewProviderError(ticker, op string, err error) *ProviderError {
	return &ProviderError{
		Ticker: ticker,
		Op:     op,
		Err:    err,
	}
}

// RuleError describes why a watchlist entry was rejected. It unwraps to
// ErrInvalidRule.
type RuleError struct {
	Line    int
	Ticker  string
	Field   string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid rule line %d [%s] %s: %s", e.Line, e.Ticker, e.Field, e.Message)
}

func (e *RuleError) Unwrap() error {
	return ErrInvalidRule
}

// NewRuleError creates a new RuleError.
func NewRuleError(line int, ticker, field, message string) *RuleError {
	return &RuleError{
		Line:    line,
		Ticker:  ticker,
		Field:   field,
		Message: message,
	}
}

// NotifyError represents a notification channel failure. It never
// affects gate state.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify error [%s]: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(channel string, err error) *NotifyError {
	return &NotifyError{Channel: channel, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
