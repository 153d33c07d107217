package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/cli"
	"github.com/example/quoteflow/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "quoteflow",
		Short:   "quoteflow - supplier quotations and automatic reordering",
		Version: version.String(),
		Long: `quoteflow manages supplier quotations through their lifecycle and raises
DRAFT quotations automatically when inventory runs low.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			holder, _ := cmd.Flags().GetString("as")
			cli.SetHolder(holder)
		},
	}
	rootCmd.PersistentFlags().String("as", "", "Holder name recorded on processing locks (default \"cli\")")

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.QuotationCmd())
	rootCmd.AddCommand(cli.SupplierCmd())
	rootCmd.AddCommand(cli.InventoryCmd())
	rootCmd.AddCommand(cli.SettingsCmd())

	// Automation
	rootCmd.AddCommand(cli.AutoCmd())
	rootCmd.AddCommand(cli.LockCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
