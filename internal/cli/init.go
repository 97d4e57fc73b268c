package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the spellbook database",
		Long:  `Initialize the spellbook database at ~/.spellbook/spellbook.db with the required schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing spellbook database at %s\n", dbPath)

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}

			fmt.Println("✓ Database initialized successfully")
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  spellbook session start \"my feature\"")
			fmt.Println("  spellbook status")

			return nil
		},
	}
}
