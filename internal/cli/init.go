package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/config"
	"github.com/example/quoteflow/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the quoteflow database and config",
		Long: `Initialize the quoteflow database (default ~/.quoteflow/quoteflow.db) with the
required schema, and write .quoteflow/config.json in the current directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")

			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			if _, err := config.LoadConfig(dir); errors.Is(err, fs.ErrNotExist) {
				if err := config.SaveConfig(dir, config.Default()); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				fmt.Println("✓ Config written to .quoteflow/config.json")
			} else if err != nil {
				return err
			}

			cfg, err := config.Resolve(dir)
			if err != nil {
				return err
			}

			if cfg.DBPath != "" {
				db.SetPath(cfg.DBPath)
			}
			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing quoteflow database at %s\n", dbPath)
			database, err := db.GetDB()
			if err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			defer db.Close()

			version, err := db.CurrentVersion(database)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Database initialized (schema version %d)\n", version)

			if seed {
				if err := db.SeedFixtures(database); err != nil {
					return fmt.Errorf("failed to seed fixtures: %w", err)
				}
				fmt.Println("✓ Sample suppliers and inventory loaded")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  quoteflow supplier list")
			fmt.Println("  quoteflow quotation create --supplier SUP-001 --item PRD-MILK:12:l:1.10")
			fmt.Println("  quoteflow serve")

			return nil
		},
	}
	cmd.Flags().Bool("seed", false, "Load sample suppliers and inventory")
	return cmd
}
