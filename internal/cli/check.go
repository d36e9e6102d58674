package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-monitor/internal/gate"
	"stock-monitor/internal/logging"
	"stock-monitor/internal/market"
	"stock-monitor/internal/monitor"
	"stock-monitor/internal/store"
	"stock-monitor/internal/watchlist"
)

func newCheckCmd(app *App) *cobra.Command {
	var (
		watchlistPath string
		dryRun        bool
		verbose       bool
		workers       int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring pass over the watchlist",
		Long: `Check fetches the day's intraday prices for every watchlist ticker,
evaluates percentage-move and price-band rules, and sends alerts that
pass repeat suppression. Outside market hours it exits without fetching.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if verbose {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}

			path := app.Config.Monitor.WatchlistPath
			if watchlistPath != "" {
				path = watchlistPath
			}
			rules, err := watchlist.Load(path, app.Logger)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				output.Warning("Watchlist is empty, nothing to check")
				return nil
			}

			clock, err := market.NewClock()
			if err != nil {
				return err
			}

			var st store.StateStore
			if dryRun {
				st = store.NewMemoryStore()
			} else {
				st, err = app.openStore()
				if err != nil {
					return err
				}
			}
			defer st.Close()

			provider := market.NewYahooProvider(app.Config.Provider.Timeout, app.Config.Provider.MaxAttempts, app.Logger)
			g := gate.New(st, clock.Location())

			n := app.Config.Monitor.Workers
			if workers > 0 {
				n = workers
			}
			runner := monitor.NewRunner(clock, provider, g, st, app.notifier(), app.Logger,
				monitor.WithWorkers(n),
				monitor.WithDryRun(dryRun),
			)

			report, err := runner.Run(cmd.Context(), rules, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, report, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVarP(&watchlistPath, "watchlist", "w", "", "watchlist CSV path (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate without persisting state or notifying")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log per-sample series detail")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent ticker fetches (overrides config)")

	return cmd
}

func renderReport(output *Output, report *monitor.RunReport, dryRun bool) {
	if report.Phase == market.PhaseClosed {
		output.Info("Market is closed, no checks performed")
		return
	}

	output.Bold("Monitoring pass (%s)", report.Phase)
	if dryRun {
		output.Dim("dry run: no state written, no notifications sent")
	}
	output.Println()

	table := NewTable(output, "TICKER", "SAMPLES", "LAST", "CHANGE", "CANDIDATES", "FIRED", "STATUS")
	for _, t := range report.Tickers {
		change := "-"
		if t.PctChange != nil {
			change = fmt.Sprintf("%+.2f%%", *t.PctChange)
		}
		last := "-"
		if t.LastPrice > 0 {
			last = fmt.Sprintf("%.2f", t.LastPrice)
		}
		status := "ok"
		if t.Err != "" {
			status = t.Err
		}
		table.AddRow(t.Ticker,
			fmt.Sprintf("%d", t.Samples),
			last,
			change,
			fmt.Sprintf("%d", t.Candidates),
			fmt.Sprintf("%d", t.Fired),
			status,
		)
	}
	table.Render()

	output.Println()
	if fired := report.TotalFired(); fired > 0 {
		output.Success("%d alert(s) fired", fired)
	} else {
		output.Info("No alerts fired")
	}
}
