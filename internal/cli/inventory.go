package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/wire"
)

var inventoryCmd = &cobra.Command{
	Use:     "inventory",
	Aliases: []string{"inv"},
	Short:   "Manage inventory levels used by automatic quotations",
}

var inventorySetCmd = &cobra.Command{
	Use:   "set [product-id]",
	Short: "Create or update an inventory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		repo := wire.InventoryRepository()

		item := reorder.InventoryItem{ProductID: args[0]}
		existing, err := repo.GetByProductID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get inventory item: %w", err)
		}
		if existing != nil {
			item = *existing
		}

		flags := cmd.Flags()
		if flags.Changed("name") {
			item.Name, _ = flags.GetString("name")
		}
		if flags.Changed("category") {
			item.Category, _ = flags.GetString("category")
		}
		if flags.Changed("stock") {
			item.CurrentStock, _ = flags.GetFloat64("stock")
		}
		if flags.Changed("min") {
			item.MinStock, _ = flags.GetFloat64("min")
		}
		if flags.Changed("max") {
			item.MaxStock, _ = flags.GetFloat64("max")
		}
		if flags.Changed("unit") {
			item.Unit, _ = flags.GetString("unit")
		}
		if flags.Changed("supplier") {
			item.SupplierID, _ = flags.GetString("supplier")
		}
		if flags.Changed("price") {
			raw, _ := flags.GetString("price")
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", raw, err)
			}
			item.Price = price
		}
		if flags.Changed("auto") {
			raw, _ := flags.GetString("auto")
			enabled, err := parseTriState(raw)
			if err != nil {
				return err
			}
			item.EnableAutoQuotation = enabled
		}

		if err := repo.Upsert(ctx, item); err != nil {
			return fmt.Errorf("failed to save inventory item: %w", err)
		}

		fmt.Printf("✓ Inventory %s: %.2f (min %.2f, max %.2f)\n", item.ProductID, item.CurrentStock, item.MinStock, item.MaxStock)
		return nil
	},
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory items",
	RunE: func(cmd *cobra.Command, args []string) error {
		lowOnly, _ := cmd.Flags().GetBool("low")

		items, err := wire.InventoryRepository().List(NewContext())
		if err != nil {
			return fmt.Errorf("failed to list inventory: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tNAME\tSTOCK\tMIN\tMAX\tSUPPLIER\tAUTO\tLOW")
		fmt.Fprintln(w, "-------\t----\t-----\t---\t---\t--------\t----\t---")
		shown := 0
		for _, it := range items {
			if lowOnly && !it.IsLow() {
				continue
			}
			shown++
			low := ""
			if it.IsLow() {
				low = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f %s\t%.2f\t%.2f\t%s\t%s\t%s\n",
				it.ProductID, it.Name, it.CurrentStock, it.Unit, it.MinStock, it.MaxStock,
				dash(it.SupplierID), formatTriState(it.EnableAutoQuotation), low)
		}
		if shown == 0 {
			fmt.Println("No inventory items found.")
			return nil
		}
		w.Flush()
		return nil
	},
}

// parseTriState maps "on"/"off"/"unset" onto the item-level auto-quotation flag.
func parseTriState(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		v := true
		return &v, nil
	case "off", "false", "no":
		v := false
		return &v, nil
	case "unset", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid --auto value %q (want on, off or unset)", s)
	}
}

func formatTriState(b *bool) string {
	if b == nil {
		return "-"
	}
	if *b {
		return "on"
	}
	return "off"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// InventoryCmd returns the inventory command
func InventoryCmd() *cobra.Command {
	inventorySetCmd.Flags().String("name", "", "Product name")
	inventorySetCmd.Flags().String("category", "", "Category label")
	inventorySetCmd.Flags().Float64("stock", 0, "Current stock")
	inventorySetCmd.Flags().Float64("min", 0, "Minimum stock; at or below this the item is low")
	inventorySetCmd.Flags().Float64("max", 0, "Stock level to refill to")
	inventorySetCmd.Flags().String("unit", "", "Unit of measure")
	inventorySetCmd.Flags().StringP("supplier", "s", "", "Supplier ID")
	inventorySetCmd.Flags().String("price", "", "Current unit price")
	inventorySetCmd.Flags().String("auto", "", "Item-level auto-quotation: on, off or unset")

	inventoryListCmd.Flags().Bool("low", false, "Only items at or below their minimum")

	inventoryCmd.AddCommand(inventorySetCmd)
	inventoryCmd.AddCommand(inventoryListCmd)

	return inventoryCmd
}
