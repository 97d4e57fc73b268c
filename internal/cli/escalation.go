package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/core/escalate"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// EscalationCmd returns the escalation command
func EscalationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalation",
		Short: "Manage escalations",
		Long:  `List, inspect, and resolve circuit-breaker escalations.`,
	}

	cmd.AddCommand(escalationListCmd())
	cmd.AddCommand(escalationShowCmd())
	cmd.AddCommand(escalationResolveCmd())

	return cmd
}

func escalationListCmd() *cobra.Command {
	var (
		session string
		status  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			escalations, err := wire.EscalationService().ListEscalations(ctx, primary.EscalationFilters{
				SessionID: session,
				Status:    status,
			})
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}

			if len(escalations) == 0 {
				fmt.Println("No escalations found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSESSION\tCATEGORY\tSTATUS\tCREATED")
			fmt.Fprintln(w, "--\t-------\t--------\t------\t-------")
			for _, e := range escalations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.SessionID, e.Category, e.Status, e.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "filter by session ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, resolved)")

	return cmd
}

func escalationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [escalation-id]",
		Short: "Show escalation details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			escalation, err := wire.EscalationService().GetEscalation(ctx, args[0])
			if err != nil {
				return fmt.Errorf("escalation not found: %w", err)
			}

			fmt.Printf("Escalation: %s\n", escalation.ID)
			fmt.Printf("Session: %s\n", escalation.SessionID)
			fmt.Printf("Feature: %s\n", escalation.Feature)
			fmt.Printf("Category: %s\n", escalation.Category)
			fmt.Printf("Reason: %s\n", escalation.Reason)
			fmt.Printf("Status: %s\n", escalation.Status)
			if escalation.Decision != "" {
				fmt.Printf("Decision: %s\n", escalation.Decision)
			}
			if escalation.Note != "" {
				fmt.Printf("Note: %s\n", escalation.Note)
			}
			fmt.Printf("Created: %s\n", escalation.CreatedAt)
			if escalation.ResolvedAt != "" {
				fmt.Printf("Resolved: %s\n", escalation.ResolvedAt)
			}

			if len(escalation.Attempts) > 0 {
				fmt.Println()
				fmt.Println("Attempt history:")
				for _, attempt := range escalation.Attempts {
					fmt.Printf("  %s  %s\n", attempt.At.Format("2006-01-02 15:04:05"), attempt.Description)
				}
			}
			return nil
		},
	}
}

func escalationResolveCmd() *cobra.Command {
	var (
		decision string
		note     string
	)

	cmd := &cobra.Command{
		Use:   "resolve [escalation-id]",
		Short: "Resolve an escalation with an explicit decision",
		Long: fmt.Sprintf(`Record the decision for a pending escalation. The decision must be one
of: %s, %s, %s. Nothing is ever decided implicitly.`,
			escalate.DecisionArchitecturalReview, escalate.DecisionAcceptRisk, escalate.DecisionAbandonApproach),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			if decision == "" {
				return fmt.Errorf("--decision is required")
			}

			err := wire.EscalationService().Resolve(ctx, primary.ResolveEscalationRequest{
				EscalationID: args[0],
				Decision:     decision,
				Note:         note,
			})
			if err != nil {
				return fmt.Errorf("failed to resolve escalation: %w", err)
			}

			fmt.Printf("✓ Resolved %s: %s\n", args[0], decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&decision, "decision", "", "one of the offered options (required)")
	cmd.Flags().StringVar(&note, "note", "", "optional context for the decision")

	return cmd
}
