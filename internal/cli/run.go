package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [session-id]",
		Short: "Execute the session's tracks in-process",
		Long: `Execute an implementing session's plan round by round. Tracks within
a round run concurrently in isolated workspaces; verification runs once
per round, and persistent failures escalate instead of looping.

Interrupting the run records partial progress in the manifest; a later
run resumes from the completed tracks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := NewSignalContext()
			defer cancel()

			result, err := wire.Coordinator().Run(ctx, primary.RunRequest{SessionID: args[0]})
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			for _, round := range result.Rounds {
				verified := color.New(color.FgGreen).Sprint("verified")
				if !round.Verified {
					verified = color.New(color.FgRed).Sprint("verification failed")
				}
				fmt.Printf("Round %d: %s\n", round.Round, verified)
				for _, tr := range round.Tracks {
					line := fmt.Sprintf("  %s: %s", tr.TrackID, trackStateColor(tr.Status))
					if tr.Error != "" {
						line += " - " + tr.Error
					}
					fmt.Println(line)
				}
			}

			fmt.Println()
			fmt.Printf("Completed: %d, failed: %d\n", result.Completed, result.Failed)

			switch {
			case result.Aborted:
				fmt.Println("Run interrupted; progress is recorded in the manifest.")
			case result.EscalationID != "":
				fmt.Printf("%s Escalated: %s\n", color.New(color.FgRed).Sprint("✗"), result.EscalationID)
				fmt.Printf("Decide with: spellbook escalation resolve %s --decision <option>\n", result.EscalationID)
			case result.Failed == 0:
				fmt.Println("✓ All tracks completed; advance the session to run the audit.")
			}
			return nil
		},
	}
}
