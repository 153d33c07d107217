package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/wire"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect and manage per-product processing locks",
}

var lockShowCmd = &cobra.Command{
	Use:   "show [product-id]",
	Short: "Show the processing lock for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.LockAdapter().Show(NewContext(), args[0], time.Now().UTC())
	},
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire [product-id]",
	Short: "Take the processing lock for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.LockAdapter().Acquire(NewContext(), args[0])
	},
}

var lockExtendCmd = &cobra.Command{
	Use:   "extend [product-id]",
	Short: "Heartbeat a processing lock held by this holder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.LockAdapter().Extend(NewContext(), args[0])
	},
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release [product-id]",
	Short: "Delete a processing lock held by this holder (see --as)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.LockAdapter().Release(NewContext(), args[0])
	},
}

// LockCmd returns the lock command
func LockCmd() *cobra.Command {
	lockCmd.AddCommand(lockShowCmd)
	lockCmd.AddCommand(lockAcquireCmd)
	lockCmd.AddCommand(lockExtendCmd)
	lockCmd.AddCommand(lockReleaseCmd)
	return lockCmd
}
