package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stock-monitor/internal/watchlist"
)

func newWatchlistCmd(app *App) *cobra.Command {
	var watchlistPath string

	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Watchlist management",
		Long:  "Inspect and validate the watchlist CSV.",
	}

	cmd.PersistentFlags().StringVarP(&watchlistPath, "watchlist", "w", "", "watchlist CSV path (overrides config)")

	resolve := func() string {
		if watchlistPath != "" {
			return watchlistPath
		}
		return app.Config.Monitor.WatchlistPath
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show parsed watchlist rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			rules, err := watchlist.Load(resolve(), app.Logger)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rules)
			}

			if len(rules) == 0 {
				output.Warning("Watchlist is empty")
				return nil
			}

			table := NewTable(output, "TICKER", "THRESHOLD", "DIRECTION", "BELOW", "ABOVE", "FREQUENCY")
			for _, r := range rules {
				table.AddRow(r.Ticker,
					fmt.Sprintf("%.2f%%", r.Threshold),
					string(r.Direction),
					bound(r.PriceBelow),
					bound(r.PriceAbove),
					string(r.Frequency),
				)
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the watchlist CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			rules, err := watchlist.Load(resolve(), app.Logger)
			if err != nil {
				output.Error("Watchlist validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"valid": true, "rules": len(rules)})
			}
			output.Success("Watchlist is valid (%d rule(s))", len(rules))
			return nil
		},
	})

	return cmd
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
