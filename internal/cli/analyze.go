package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stock-monitor/internal/analyze"
	"stock-monitor/internal/market"
	"stock-monitor/internal/watchlist"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		thresholdsFlag string
		lookbackDays   int
		watchlistPath  string
	)

	cmd := &cobra.Command{
		Use:   "analyze [TICKER...]",
		Short: "Count historical alerts per threshold",
		Long: `Analyze replays the alert evaluator over recent history and reports
how many percentage-move alerts each candidate threshold would have
produced, to help pick watchlist thresholds. Repeat suppression is not
applied; every qualifying move counts.

Without arguments it analyzes every watchlist ticker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			tickers := make([]string, 0, len(args))
			for _, a := range args {
				tickers = append(tickers, strings.ToUpper(strings.TrimSpace(a)))
			}
			if len(tickers) == 0 {
				path := app.Config.Monitor.WatchlistPath
				if watchlistPath != "" {
					path = watchlistPath
				}
				rules, err := watchlist.Load(path, app.Logger)
				if err != nil {
					return err
				}
				for _, r := range rules {
					tickers = append(tickers, r.Ticker)
				}
			}
			if len(tickers) == 0 {
				output.Warning("No tickers to analyze")
				return nil
			}

			thresholds := app.Config.Analyze.Thresholds
			if thresholdsFlag != "" {
				parsed, err := parseThresholds(thresholdsFlag)
				if err != nil {
					return err
				}
				thresholds = parsed
			}

			lookback := app.Config.Analyze.LookbackDays
			if lookbackDays > 0 {
				lookback = lookbackDays
			}

			provider := market.NewYahooProvider(app.Config.Provider.Timeout, app.Config.Provider.MaxAttempts, app.Logger)
			analyzer := analyze.New(provider, lookback, app.Logger)

			results := analyzer.Run(cmd.Context(), tickers, thresholds, time.Now())

			if output.IsJSON() {
				return output.JSON(results)
			}
			renderAnalysis(output, results, lookback)
			return nil
		},
	}

	cmd.Flags().StringVarP(&thresholdsFlag, "thresholds", "t", "", "comma-separated percentage thresholds (e.g. 0.5,1,2)")
	cmd.Flags().IntVar(&lookbackDays, "days", 0, "days of history to replay (overrides config)")
	cmd.Flags().StringVarP(&watchlistPath, "watchlist", "w", "", "watchlist CSV path (overrides config)")

	return cmd
}

func parseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid threshold %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func renderAnalysis(output *Output, results []analyze.TickerAnalysis, lookback int) {
	output.Bold("Alert counts over the last %d day(s)", lookback)
	output.Println()

	for _, res := range results {
		if res.Err != "" {
			output.Warning("%s: %s", res.Ticker, res.Err)
			continue
		}
		output.Bold("%s (%d samples)", res.Ticker, res.Samples)
		table := NewTable(output, "THRESHOLD", "ALERTS")
		for _, c := range res.Counts {
			table.AddRow(fmt.Sprintf("%.2f%%", c.Threshold), fmt.Sprintf("%d", c.Alerts))
		}
		table.Render()
		output.Println()
	}
}
