package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show active sessions and pending escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			sessions, err := wire.SessionService().ListSessions(ctx, primary.SessionFilters{Limit: 20})
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions yet. Start one:")
				fmt.Println("  spellbook session start \"my feature\"")
			} else {
				fmt.Println("Sessions:")
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				for _, s := range sessions {
					fmt.Fprintf(w, "  %s\t%s\t%s\n", s.ID, s.Feature, phaseColor(s.Phase))
				}
				w.Flush()
			}

			pending, err := wire.EscalationService().ListEscalations(ctx, primary.EscalationFilters{Status: "pending"})
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}
			if len(pending) > 0 {
				fmt.Println()
				fmt.Printf("%s %d pending escalations:\n", color.New(color.FgRed).Sprint("!"), len(pending))
				for _, e := range pending {
					fmt.Printf("  %s  %s (%s)\n", e.ID, e.Category, e.SessionID)
				}
			}
			return nil
		},
	}
}
