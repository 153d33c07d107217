package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/wire"
)

var quotationCmd = &cobra.Command{
	Use:     "quotation",
	Aliases: []string{"quote", "q"},
	Short:   "Manage supplier quotations",
	Long:    "Create quotations and drive them through their lifecycle (send, reply, analyze, confirm, deliver)",
}

var quotationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a DRAFT quotation",
	Example: `  quoteflow quotation create --supplier SUP-001 --category Dairy \
    --item PRD-MILK:12:l:1.10 --item PRD-CREAM:4:l:2.20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		supplierID, _ := cmd.Flags().GetString("supplier")
		category, _ := cmd.Flags().GetString("category")
		specs, _ := cmd.Flags().GetStringArray("item")

		items, err := parseItemSpecs(specs)
		if err != nil {
			return err
		}
		return wire.QuotationAdapter().Create(NewContext(), supplierID, category, items)
	},
}

var quotationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		supplierID, _ := cmd.Flags().GetString("supplier")
		open, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")

		return wire.QuotationAdapter().List(NewContext(), primary.QuotationFilters{
			Status:     strings.ToUpper(status),
			SupplierID: supplierID,
			OpenOnly:   open,
			Limit:      limit,
		})
	},
}

var quotationShowCmd = &cobra.Command{
	Use:   "show [quotation-id]",
	Short: "Show quotation details, history and next events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.QuotationAdapter().Show(NewContext(), args[0])
		return err
	},
}

var quotationEventCmd = &cobra.Command{
	Use:   "event [quotation-id] [EVENT]",
	Short: "Apply a lifecycle event by name",
	Long: `Apply any lifecycle event by name: SEND, RECEIVE_REPLY, ANALYZE, CONFIRM,
DELIVER, CANCEL, EXPIRE or RESET. Use --dry-run to only check it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := eventFromFlags(cmd, args[1])
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			return wire.QuotationAdapter().Check(NewContext(), args[0], ev)
		}
		return wire.QuotationAdapter().Apply(NewContext(), args[0], ev)
	},
}

var quotationCheckCmd = &cobra.Command{
	Use:   "check [quotation-id] [EVENT]",
	Short: "Check whether an event would be accepted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := eventFromFlags(cmd, args[1])
		if err != nil {
			return err
		}
		return wire.QuotationAdapter().Check(NewContext(), args[0], ev)
	},
}

var quotationDeleteCmd = &cobra.Command{
	Use:   "delete [quotation-id]",
	Short: "Delete a quotation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.QuotationAdapter().Delete(NewContext(), args[0])
	},
}

var quotationExpireStaleCmd = &cobra.Command{
	Use:   "expire-stale",
	Short: "Expire SENT quotations whose supplier never replied",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := wire.ExpiryService().ExpireStale(NewContext())
		if err != nil {
			return err
		}

		fmt.Printf("✓ Checked %d sent quotations, expired %d\n", result.Checked, len(result.Expired))
		for _, id := range result.Expired {
			fmt.Printf("  expired %s\n", id)
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("failed to expire: %s", strings.Join(result.Failed, ", "))
		}
		return nil
	},
}

// eventShortcut builds a one-word subcommand such as "send" or "confirm".
func eventShortcut(use, short string, event quotation.EventType) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [quotation-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := eventFromFlags(cmd, string(event))
			if err != nil {
				return err
			}
			return wire.QuotationAdapter().Apply(NewContext(), args[0], ev)
		},
	}
}

// eventFromFlags builds the typed event from its name and any payload flags the command defines.
func eventFromFlags(cmd *cobra.Command, name string) (quotation.Event, error) {
	var payload quotation.Payload
	if f := cmd.Flags().Lookup("body"); f != nil {
		payload.EmailBody = f.Value.String()
	}
	if f := cmd.Flags().Lookup("reason"); f != nil {
		payload.Reason = f.Value.String()
	}
	if cmd.Flags().Lookup("quoted") != nil {
		specs, _ := cmd.Flags().GetStringArray("quoted")
		quoted, err := parseQuotedSpecs(specs)
		if err != nil {
			return nil, err
		}
		payload.QuotedItems = quoted
	}
	return quotation.ParseEvent(name, payload)
}

func addPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().String("body", "", "Supplier reply body (RECEIVE_REPLY)")
	cmd.Flags().String("reason", "", "Cancellation reason (CANCEL)")
	cmd.Flags().StringArray("quoted", nil, "Quoted line PRODUCT:QTY:UNIT_PRICE (ANALYZE, repeatable)")
}

// QuotationCmd returns the quotation command
func QuotationCmd() *cobra.Command {
	// Add flags
	quotationCreateCmd.Flags().StringP("supplier", "s", "", "Supplier ID")
	quotationCreateCmd.Flags().StringP("category", "c", "", "Category label")
	quotationCreateCmd.Flags().StringArrayP("item", "i", nil, "Line PRODUCT:QTY[:UNIT[:PRICE]] (repeatable)")
	_ = quotationCreateCmd.MarkFlagRequired("supplier")

	quotationListCmd.Flags().String("status", "", "Filter by status (DRAFT, SENT, REPLIED, QUOTED, CONFIRMED, DELIVERED, CANCELLED, EXPIRED)")
	quotationListCmd.Flags().StringP("supplier", "s", "", "Filter by supplier ID")
	quotationListCmd.Flags().Bool("open", false, "Only quotations that still block new automatic quotations")
	quotationListCmd.Flags().IntP("limit", "n", 0, "Maximum number of results")

	addPayloadFlags(quotationEventCmd)
	quotationEventCmd.Flags().Bool("dry-run", false, "Only check the event")
	addPayloadFlags(quotationCheckCmd)

	replyCmd := eventShortcut("reply", "Record the supplier's reply", quotation.EventReceiveReply)
	replyCmd.Flags().String("body", "", "Supplier reply body")
	_ = replyCmd.MarkFlagRequired("body")

	analyzeCmd := eventShortcut("analyze", "Record the analyzed quoted lines", quotation.EventAnalyze)
	analyzeCmd.Flags().StringArray("quoted", nil, "Quoted line PRODUCT:QTY:UNIT_PRICE (repeatable)")

	cancelCmd := eventShortcut("cancel", "Cancel a quotation", quotation.EventCancel)
	cancelCmd.Flags().String("reason", "", "Cancellation reason")

	// Add subcommands
	quotationCmd.AddCommand(quotationCreateCmd)
	quotationCmd.AddCommand(quotationListCmd)
	quotationCmd.AddCommand(quotationShowCmd)
	quotationCmd.AddCommand(quotationEventCmd)
	quotationCmd.AddCommand(quotationCheckCmd)
	quotationCmd.AddCommand(quotationDeleteCmd)
	quotationCmd.AddCommand(quotationExpireStaleCmd)
	quotationCmd.AddCommand(eventShortcut("send", "Send a DRAFT quotation to its supplier", quotation.EventSend))
	quotationCmd.AddCommand(replyCmd)
	quotationCmd.AddCommand(analyzeCmd)
	quotationCmd.AddCommand(eventShortcut("confirm", "Confirm a QUOTED quotation", quotation.EventConfirm))
	quotationCmd.AddCommand(eventShortcut("deliver", "Mark a CONFIRMED quotation delivered", quotation.EventDeliver))
	quotationCmd.AddCommand(cancelCmd)
	quotationCmd.AddCommand(eventShortcut("expire", "Expire a SENT quotation with no reply", quotation.EventExpire))
	quotationCmd.AddCommand(eventShortcut("reset", "Return a CANCELLED or EXPIRED quotation to DRAFT", quotation.EventReset))

	return quotationCmd
}
