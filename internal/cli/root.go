package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-monitor/internal/config"
	"stock-monitor/internal/logging"
	"stock-monitor/internal/notify"
	"stock-monitor/internal/store"
)

// Version information
const (
	Version = "1.0.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.StateStore
	Notifier notify.Notifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stock monitor - watchlist price alerting",
		Long: `Stock monitor samples market data for a watchlist of tickers and
alerts on sudden percentage moves or price-band crossings, suppressing
repeats per configured frequency.

It runs one pass and exits; schedule it externally (e.g. cron).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-monitor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newCheckCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newTestPushCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// openStore lazily opens the SQLite state store.
func (app *App) openStore() (store.StateStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}
	st, err := store.NewSQLiteStore(app.Config.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	app.Store = st
	return st, nil
}

// notifier builds the configured notifier fanout.
func (app *App) notifier() notify.Notifier {
	if app.Notifier != nil {
		return app.Notifier
	}
	app.Notifier = notify.NewMultiNotifier(app.Config.Notifications, app.Logger)
	return app.Notifier
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("stock-monitor v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Monitor")
	output.Printf("  Watchlist: %s\n", cfg.Monitor.WatchlistPath)
	output.Printf("  Workers:   %d\n", cfg.Monitor.Workers)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Timeout:      %s\n", cfg.Provider.Timeout)
	output.Printf("  Max attempts: %d\n", cfg.Provider.MaxAttempts)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database: %s\n", cfg.Storage.DBPath)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:  %v\n", cfg.Notifications.Enabled)
	output.Printf("  Pushover: %v\n", cfg.Notifications.Pushover.Enabled)
	output.Printf("  Webhook:  %v\n", cfg.Notifications.Webhook.Enabled)

	return nil
}
