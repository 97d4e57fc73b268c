package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// AdvanceCmd returns the advance command
func AdvanceCmd() *cobra.Command {
	var cont bool

	cmd := &cobra.Command{
		Use:   "advance [session-id]",
		Short: "Advance a session through its current phase",
		Long: `Perform the current phase's work and, when its gate clears, move the
session forward. A blocked gate or a paused review is reported with the
remediation options; it is not an error.

Examples:
  spellbook advance SESS-001
  spellbook advance SESS-001 --continue   # acknowledge a paused review`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			result, err := wire.SessionService().Advance(ctx, primary.AdvanceRequest{
				SessionID: args[0],
				Continue:  cont,
			})
			if err != nil {
				return fmt.Errorf("failed to advance: %w", err)
			}

			fmt.Println(result.Message)
			fmt.Printf("Phase: %s\n", phaseColor(result.Session.Phase))

			if result.Gate != nil {
				printGate(result.Gate)
			}
			if result.Estimate != nil {
				fmt.Println()
				fmt.Printf("Estimated tokens: %d (%.0f%% of context window)\n",
					result.Estimate.Tokens, result.Estimate.UsageRatio*100)
				fmt.Printf("Execution mode: %s\n", result.Estimate.Mode)
			}
			if result.Paused {
				fmt.Println()
				fmt.Printf("Re-run with --continue to proceed: spellbook advance %s --continue\n", result.Session.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cont, "continue", false, "acknowledge a paused review gate and proceed")

	return cmd
}

func printGate(gate *models.GateResult) {
	fmt.Println()
	if gate.Passed {
		fmt.Printf("Gate: %s (%.1f)\n", color.New(color.FgGreen).Sprint("passed"), gate.Score)
		return
	}
	fmt.Printf("Gate: %s (%.1f)\n", color.New(color.FgRed).Sprint("blocked"), gate.Score)
	for name, score := range gate.Breakdown {
		if score < 100 {
			fmt.Printf("  %-24s %.1f\n", name, score)
		}
	}
	if len(gate.Remediation) > 0 {
		fmt.Println()
		fmt.Println("Options:")
		for _, opt := range gate.Remediation {
			fmt.Printf("  %s: %s\n", opt.Kind, opt.Description)
		}
	}
}
