// Package watchlist loads and validates per-ticker monitoring rules.
package watchlist

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
)

// entry is one raw CSV line. All fields but TICKER are optional, so they
// stay strings until defaulting and validation.
type entry struct {
	Ticker     string `csv:"TICKER"`
	Threshold  string `csv:"THRESHOLD"`
	Direction  string `csv:"DIRECTION"`
	PriceBelow string `csv:"PRICE_BELOW"`
	PriceAbove string `csv:"PRICE_ABOVE"`
	Frequency  string `csv:"ALERT_FREQUENCY"`
}

// Load reads the watchlist CSV at path and returns the valid rules.
// Invalid lines are logged and skipped; a missing or unreadable file is
// fatal since the run has nothing to do without it.
func Load(path string, logger zerolog.Logger) ([]models.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening watchlist %s: %w", path, err)
	}
	defer f.Close()

	var entries []*entry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, fmt.Errorf("parsing watchlist %s: %w", path, err)
	}

	var rules []models.Rule
	for i, e := range entries {
		line := i + 2 // header is line 1
		rule, err := e.toRule(line)
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("Skipping invalid watchlist entry")
			continue
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// toRule applies defaults and validates one entry.
func (e *entry) toRule(line int) (models.Rule, error) {
	var zero models.Rule

	ticker := strings.ToUpper(strings.TrimSpace(e.Ticker))
	if ticker == "" {
		return zero, apperrors.NewRuleError(line, "", "ticker", "ticker is required")
	}

	rule := models.Rule{
		Ticker:    ticker,
		Threshold: models.DefaultThreshold,
		Direction: models.DirectionBoth,
		Frequency: models.FreqDaily,
	}

	if s := strings.TrimSpace(e.Threshold); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, apperrors.NewRuleError(line, ticker, "threshold", fmt.Sprintf("not a number: %q", s))
		}
		if t < 0 {
			return zero, apperrors.NewRuleError(line, ticker, "threshold", "must be non-negative")
		}
		rule.Threshold = t
	}

	if s := strings.ToLower(strings.TrimSpace(e.Direction)); s != "" {
		dir := models.Direction(s)
		if !dir.Valid() {
			return zero, apperrors.NewRuleError(line, ticker, "direction", fmt.Sprintf("must be both/gain/drop, got %q", s))
		}
		rule.Direction = dir
	}

	below, err := parseBound(e.PriceBelow)
	if err != nil {
		return zero, apperrors.NewRuleError(line, ticker, "price_below", err.Error())
	}
	rule.PriceBelow = below

	above, err := parseBound(e.PriceAbove)
	if err != nil {
		return zero, apperrors.NewRuleError(line, ticker, "price_above", err.Error())
	}
	rule.PriceAbove = above

	if below != nil && above != nil && *below >= *above {
		return zero, apperrors.NewRuleError(line, ticker, "price_below",
			fmt.Sprintf("must be less than price_above (%.2f >= %.2f)", *below, *above))
	}

	if s := strings.ToLower(strings.TrimSpace(e.Frequency)); s != "" {
		freq := models.Frequency(s)
		if !freq.Valid() {
			return zero, apperrors.NewRuleError(line, ticker, "alert_frequency", fmt.Sprintf("must be once/daily/weekly/monthly, got %q", s))
		}
		rule.Frequency = freq
	}

	return rule, nil
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	if v <= 0 {
		return nil, fmt.Errorf("must be positive")
	}
	return &v, nil
}
