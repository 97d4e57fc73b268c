package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/core/estimate"
	"github.com/axiomantic/spellbook/internal/core/trackgraph"
	"github.com/axiomantic/spellbook/internal/wire"
)

// EstimateCmd returns the estimate command
func EstimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [session-id]",
		Short: "Estimate the session's plan complexity",
		Long: `Run the complexity estimator over the session's plan and print the
recommended execution mode without changing the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			session, err := wire.SessionService().GetSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("session not found: %w", err)
			}

			planText := session.Context.PlanText
			if planText == "" {
				if session.Context.PlanDocPath == "" {
					return fmt.Errorf("session %s has no plan yet", session.ID)
				}
				content, err := os.ReadFile(session.Context.PlanDocPath)
				if err != nil {
					return fmt.Errorf("failed to read plan: %w", err)
				}
				planText = string(content)
			}

			tracks, err := trackgraph.Extract(planText)
			if err != nil {
				return fmt.Errorf("plan does not parse into tracks: %w", err)
			}

			tasks := 0
			files := make(map[string]bool)
			for _, tr := range tracks {
				tasks += len(tr.Tasks)
				for _, f := range tr.Files {
					files[f] = true
				}
				for _, task := range tr.Tasks {
					for _, f := range task.Files {
						files[f] = true
					}
				}
			}

			est := wire.UserConfig().EstimatorConstants().Estimate(estimate.Input{
				PlanSizeKB: len(planText) / 1024,
				NumTasks:   tasks,
				NumFiles:   len(files),
				NumTracks:  len(tracks),
			})

			fmt.Printf("Plan: %d tracks, %d tasks, %d files\n", len(tracks), tasks, len(files))
			fmt.Printf("Estimated tokens: %d (%.0f%% of context window)\n", est.Tokens, est.UsageRatio*100)
			fmt.Printf("Execution mode: %s\n", est.Mode)
			fmt.Printf("Reason: %s\n", est.Reason)
			return nil
		},
	}
}
