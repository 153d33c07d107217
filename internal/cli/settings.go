package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/wire"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View or change global automation settings",
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [auto|manual]",
	Short: "Show or set the automation mode",
	Long: `Without an argument, print the current automation mode. In manual mode
no automatic quotations are raised regardless of supplier or item settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		store := wire.SettingsStore()

		if len(args) == 0 {
			mode, err := store.GetAutomationMode(ctx)
			if err != nil {
				return fmt.Errorf("failed to get automation mode: %w", err)
			}
			fmt.Println(mode)
			return nil
		}

		mode, err := reorder.ParseAutomationMode(args[0])
		if err != nil {
			return err
		}
		if err := store.SetAutomationMode(ctx, mode); err != nil {
			return fmt.Errorf("failed to set automation mode: %w", err)
		}
		fmt.Printf("✓ Automation mode set to %s\n", mode)
		return nil
	},
}

// SettingsCmd returns the settings command
func SettingsCmd() *cobra.Command {
	settingsCmd.AddCommand(settingsModeCmd)
	return settingsCmd
}
