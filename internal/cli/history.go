package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stock-monitor/internal/models"
	"stock-monitor/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		ticker string
		kind   string
		days   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently fired alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := store.NewSQLiteStore(app.Config.Storage.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			filter := store.HistoryFilter{
				Ticker: strings.ToUpper(strings.TrimSpace(ticker)),
				Kind:   models.CandidateKind(kind),
				Limit:  limit,
			}
			if days > 0 {
				filter.Since = time.Now().AddDate(0, 0, -days)
			}

			alerts, err := st.RecentAlerts(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(alerts)
			}

			if len(alerts) == 0 {
				output.Info("No alerts recorded")
				return nil
			}

			table := NewTable(output, "FIRED", "TICKER", "KIND", "MAGNITUDE", "DIRECTION")
			for _, a := range alerts {
				table.AddRow(
					a.FiredAt.Local().Format("2006-01-02 15:04"),
					a.Ticker,
					string(a.Kind),
					fmt.Sprintf("%.2f", a.Magnitude),
					string(a.Direction),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&ticker, "ticker", "t", "", "filter by ticker")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "filter by alert kind (pct_move, price_below, price_above)")
	cmd.Flags().IntVar(&days, "days", 0, "only alerts from the last N days")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of alerts")

	return cmd
}
