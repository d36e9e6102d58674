package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Monitor Configuration

[monitor]
# Watchlist CSV path. Header:
# TICKER,THRESHOLD,DIRECTION,PRICE_BELOW,PRICE_ABOVE,ALERT_FREQUENCY
watchlist_path = "%s"
# Concurrent tickers per pass
workers = 4

[provider]
# Per-call timeout for market data requests
timeout = "15s"
# Retry attempts per request
max_attempts = 3

[storage]
# SQLite database holding per-(ticker, kind) last-alert state
db_path = "%s"

[analyze]
# History window for the what-if threshold report
lookback_days = 30
thresholds = [0.1, 0.5, 1.0, 2.0, 3.0, 4.0, 5.0]

[notifications]
enabled = true

[notifications.pushover]
enabled = false
user_key = ""
api_token = ""

[notifications.webhook]
enabled = false
url = ""
`

const watchlistTemplate = `TICKER,THRESHOLD,DIRECTION,PRICE_BELOW,PRICE_ABOVE,ALERT_FREQUENCY
NVDA,1.5,both,400,500,once
AAPL,0.5,drop,,,daily
`

// createTemplateConfig writes a commented config template and a sample
// watchlist on first run.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		watchlistPath := filepath.Join(configDir, "watchlist.csv")
		dbPath := filepath.Join(configDir, "monitor.db")
		content := fmt.Sprintf(configTemplate, watchlistPath, dbPath)
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing config template: %w", err)
		}
	}

	watchlistPath := filepath.Join(configDir, "watchlist.csv")
	if _, err := os.Stat(watchlistPath); os.IsNotExist(err) {
		if err := os.WriteFile(watchlistPath, []byte(watchlistTemplate), 0644); err != nil {
			return fmt.Errorf("writing watchlist template: %w", err)
		}
	}

	return nil
}
