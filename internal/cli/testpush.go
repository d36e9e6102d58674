package cli

import (
	"github.com/spf13/cobra"
)

func newTestPushCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "testpush",
		Short: "Send a test notification",
		Long:  "Send a test message through every configured notification channel to verify credentials and transport.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.notifier().SendTest(cmd.Context()); err != nil {
				output.Error("Test notification failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"sent": true})
			}
			output.Success("Test notification sent")
			return nil
		},
	}
}
