package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/wire"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Drive automatic quotations by hand",
	Long: `Run low-stock checks and stock events through the auto-quotation orchestrator.
Pending requests live in this process, so commands flush them before exiting
unless --no-flush is given.`,
}

var autoCheckCmd = &cobra.Command{
	Use:   "check [product-id...]",
	Short: "Evaluate inventory items as if their stock had just changed",
	Long:  "With no product IDs, every inventory item is evaluated (the same scan as startup reconciliation).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		repo := wire.InventoryRepository()

		var items []reorder.InventoryItem
		if len(args) == 0 {
			all, err := repo.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list inventory: %w", err)
			}
			items = all
		}
		for _, id := range args {
			item, err := repo.GetByProductID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get inventory item: %w", err)
			}
			if item == nil {
				return fmt.Errorf("inventory item %s not found", id)
			}
			items = append(items, *item)
		}

		adapter := wire.AutomationAdapter()
		if err := adapter.Check(ctx, items); err != nil {
			return err
		}
		return flushUnlessDisabled(cmd)
	},
}

var autoEmitCmd = &cobra.Command{
	Use:   "emit [product-id]",
	Short: "Run one NEEDS_REORDER event through admission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := stockEventFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		if err := wire.AutomationAdapter().Emit(NewContext(), ev); err != nil {
			return err
		}
		return flushUnlessDisabled(cmd)
	},
}

var autoPublishCmd = &cobra.Command{
	Use:   "publish [product-id]",
	Short: "Publish a NEEDS_REORDER event to the configured Pub/Sub topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := stockEventFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		ctx := NewContext()
		publisher, closeFn, err := wire.StockEventPublisher(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		id, err := publisher.Publish(ctx, ev)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Published %s for %s (message %s)\n", ev.Type, ev.ProductID, id)
		return nil
	},
}

func flushUnlessDisabled(cmd *cobra.Command) error {
	noFlush, _ := cmd.Flags().GetBool("no-flush")
	if noFlush {
		wire.AutomationAdapter().Pending()
		return nil
	}
	_, err := wire.AutomationAdapter().Flush(NewContext())
	return err
}

// stockEventFromFlags fills a NEEDS_REORDER event from the inventory row, then applies flag overrides.
func stockEventFromFlags(cmd *cobra.Command, productID string) (reorder.StockEvent, error) {
	ev := reorder.StockEvent{Type: reorder.EventNeedsReorder, ProductID: productID}

	item, err := wire.InventoryRepository().GetByProductID(NewContext(), productID)
	if err != nil {
		return ev, fmt.Errorf("failed to get inventory item: %w", err)
	}
	if item != nil {
		if synthesized := reorder.SynthesizeEvents([]reorder.InventoryItem{*item}); len(synthesized) == 1 {
			ev = synthesized[0]
		} else {
			ev.ProductName = item.Name
			ev.Category = item.Category
			ev.CurrentStock = item.CurrentStock
			ev.QuantityToOrder = reorder.QuantityToOrder(*item)
			ev.Unit = item.Unit
			ev.SupplierID = item.SupplierID
			ev.SupplierName = item.SupplierName
			ev.SupplierEmail = item.SupplierEmail
			ev.CurrentPrice = item.Price
			ev.EnableAutoQuotation = item.EnableAutoQuotation
		}
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		ev.Type, _ = flags.GetString("type")
	}
	if flags.Changed("supplier") {
		ev.SupplierID, _ = flags.GetString("supplier")
	}
	if flags.Changed("qty") {
		ev.QuantityToOrder, _ = flags.GetFloat64("qty")
	}
	if flags.Changed("category") {
		ev.Category, _ = flags.GetString("category")
	}
	if flags.Changed("price") {
		raw, _ := flags.GetString("price")
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return ev, fmt.Errorf("invalid price %q: %w", raw, err)
		}
		ev.CurrentPrice = price
	}
	if flags.Changed("auto") {
		raw, _ := flags.GetString("auto")
		enabled, err := parseTriState(raw)
		if err != nil {
			return ev, err
		}
		ev.EnableAutoQuotation = enabled
	}
	return ev, nil
}

func addStockEventFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", reorder.EventNeedsReorder, "Event type")
	cmd.Flags().StringP("supplier", "s", "", "Supplier ID (defaults to the inventory row)")
	cmd.Flags().Float64("qty", 0, "Quantity to order (defaults to the refill quantity)")
	cmd.Flags().String("category", "", "Category label")
	cmd.Flags().String("price", "", "Current unit price")
	cmd.Flags().String("auto", "", "Item-level auto-quotation: on, off or unset")
}

// AutoCmd returns the auto command
func AutoCmd() *cobra.Command {
	autoCheckCmd.Flags().Bool("no-flush", false, "Leave admitted requests pending")
	addStockEventFlags(autoEmitCmd)
	autoEmitCmd.Flags().Bool("no-flush", false, "Leave the admitted request pending")
	addStockEventFlags(autoPublishCmd)

	autoCmd.AddCommand(autoCheckCmd)
	autoCmd.AddCommand(autoEmitCmd)
	autoCmd.AddCommand(autoPublishCmd)

	return autoCmd
}
