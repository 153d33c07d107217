package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/ports/secondary"
	"github.com/example/quoteflow/internal/wire"
)

var supplierCmd = &cobra.Command{
	Use:   "supplier",
	Short: "Manage suppliers",
}

var supplierAddCmd = &cobra.Command{
	Use:   "add [supplier-id] [name]",
	Short: "Add or update a supplier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		auto, _ := cmd.Flags().GetBool("auto")

		err := wire.SupplierDirectory().Upsert(NewContext(), &secondary.SupplierRecord{
			ID:               args[0],
			Name:             args[1],
			Email:            email,
			AutoOrderEnabled: auto,
		})
		if err != nil {
			return fmt.Errorf("failed to save supplier: %w", err)
		}

		fmt.Printf("✓ Supplier %s saved\n", args[0])
		return nil
	},
}

var supplierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		suppliers, err := wire.SupplierDirectory().List(NewContext())
		if err != nil {
			return fmt.Errorf("failed to list suppliers: %w", err)
		}

		if len(suppliers) == 0 {
			fmt.Println("No suppliers found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAUTO")
		fmt.Fprintln(w, "--\t----\t-----\t----")
		for _, s := range suppliers {
			email := s.Email
			if email == "" {
				email = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.ID, s.Name, email, s.AutoOrderEnabled)
		}
		w.Flush()
		return nil
	},
}

// SupplierCmd returns the supplier command
func SupplierCmd() *cobra.Command {
	supplierAddCmd.Flags().StringP("email", "e", "", "Email address quotations are sent to")
	supplierAddCmd.Flags().Bool("auto", false, "Allow automatic quotations for this supplier")

	supplierCmd.AddCommand(supplierAddCmd)
	supplierCmd.AddCommand(supplierListCmd)

	return supplierCmd
}
