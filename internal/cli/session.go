package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// SessionCmd returns the session command
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage workflow sessions",
		Long:  `Start, inspect, and control feature workflow sessions.`,
	}

	cmd.AddCommand(sessionStartCmd())
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionAbortCmd())
	cmd.AddCommand(sessionBypassCmd())
	cmd.AddCommand(sessionAnswerCmd())

	return cmd
}

func sessionStartCmd() *cobra.Command {
	var (
		root       string
		autonomy   string
		isolation  string
		parallel   string
		questions  []string
		hatchKind  string
		hatchPath  string
		hatchReady bool
	)

	cmd := &cobra.Command{
		Use:   "start [feature]",
		Short: "Start a new workflow session",
		Long: `Start a new session for a feature. The session begins in the
configuring phase unless an existing artifact is supplied with
--with-design or --with-plan, which enters the flow further along.

Examples:
  spellbook session start "auth tokens"
  spellbook session start "auth tokens" --autonomy interactive
  spellbook session start "auth tokens" --with plan --at docs/plan.md --ready`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			projectDir, err := projectRoot(root)
			if err != nil {
				return err
			}

			req := primary.CreateSessionRequest{
				Feature:     args[0],
				ProjectRoot: projectDir,
				Preferences: models.Preferences{
					Autonomy:        models.AutonomyMode(autonomy),
					Isolation:       models.Isolation(isolation),
					Parallelization: models.Parallelization(parallel),
				},
				Questions: questions,
			}

			if hatchKind != "" || hatchPath != "" {
				if hatchKind == "" || hatchPath == "" {
					return fmt.Errorf("--with and --at must be used together")
				}
				handling := models.HandlingReviewFirst
				if hatchReady {
					handling = models.HandlingTreatAsReady
				}
				req.EscapeHatch = &models.EscapeHatch{
					Kind:     models.ArtifactKind(hatchKind),
					Path:     hatchPath,
					Handling: handling,
				}
			}

			resp, err := wire.SessionService().CreateSession(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}

			fmt.Printf("✓ Started session %s for %q\n", resp.SessionID, resp.Session.Feature)
			fmt.Printf("Phase: %s\n", phaseColor(resp.Session.Phase))
			fmt.Println()
			fmt.Printf("Advance with: spellbook advance %s\n", resp.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root (defaults to the working directory)")
	cmd.Flags().StringVar(&autonomy, "autonomy", string(models.AutonomyMostlyAutonomous), "review gate policy: autonomous, interactive, mostly_autonomous")
	cmd.Flags().StringVar(&isolation, "isolation", string(models.IsolationPerTrack), "workspace isolation: single, per_track, none")
	cmd.Flags().StringVar(&parallel, "parallelization", string(models.ParallelizeConservative), "parallelization: maximize, conservative, ask")
	cmd.Flags().StringArrayVar(&questions, "question", nil, "research question (repeatable)")
	cmd.Flags().StringVar(&hatchKind, "with", "", "existing artifact kind: research, design, plan")
	cmd.Flags().StringVar(&hatchPath, "at", "", "path of the existing artifact")
	cmd.Flags().BoolVar(&hatchReady, "ready", false, "treat the existing artifact as ready (skip its review)")

	return cmd
}

func sessionListCmd() *cobra.Command {
	var (
		phase   string
		feature string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			sessions, err := wire.SessionService().ListSessions(ctx, primary.SessionFilters{
				Phase:   phase,
				Feature: feature,
				Limit:   limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				fmt.Println()
				fmt.Println("Start your first session:")
				fmt.Println("  spellbook session start \"my feature\"")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFEATURE\tPHASE\tUPDATED")
			fmt.Fprintln(w, "--\t-------\t-----\t-------")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.ID, s.Feature, phaseColor(s.Phase), s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "filter by phase")
	cmd.Flags().StringVar(&feature, "feature", "", "filter by feature")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum sessions to show")

	return cmd
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			session, err := wire.SessionService().GetSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("session not found: %w", err)
			}

			fmt.Printf("Session: %s\n", session.ID)
			fmt.Printf("Feature: %s\n", session.Feature)
			fmt.Printf("Project: %s\n", session.ProjectRoot)
			fmt.Printf("Phase: %s\n", phaseColor(session.Phase))
			fmt.Printf("Autonomy: %s\n", session.Preferences.Autonomy)
			fmt.Printf("Isolation: %s\n", session.Preferences.Isolation)
			if session.EscapeHatch != nil {
				fmt.Printf("Entered with: %s at %s (%s)\n",
					session.EscapeHatch.Kind, session.EscapeHatch.Path, session.EscapeHatch.Handling)
			}
			fmt.Printf("Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04"))

			if len(session.Context.Questions) > 0 {
				fmt.Println()
				fmt.Println("Questions:")
				for _, q := range session.Context.Questions {
					fmt.Printf("  - %s\n", q)
				}
			}
			if n := len(session.Context.Findings); n > 0 {
				unresolved := 0
				for _, f := range session.Context.Findings {
					if f.Unresolved {
						unresolved++
					}
				}
				fmt.Printf("\nFindings: %d (%d unresolved)\n", n, unresolved)
			}
			if len(session.History) > 0 {
				fmt.Println()
				fmt.Println("History:")
				for _, h := range session.History {
					line := fmt.Sprintf("  %s  %s -> %s (%s)",
						h.At.Format("2006-01-02 15:04"), h.From, h.To, h.Event)
					if h.BypassReason != "" {
						line += fmt.Sprintf(" bypassed: %s", h.BypassReason)
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}

func sessionAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort [session-id]",
		Short: "Abort a session",
		Long: `Abort a session. The abort is recorded in history, completed
artifacts stay intact, and in-flight workers are left to finish or fail
on their own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			session, err := wire.SessionService().Abort(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to abort session: %w", err)
			}

			fmt.Printf("✓ Aborted session %s\n", session.ID)
			return nil
		},
	}
}

func sessionBypassCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "bypass [session-id]",
		Short: "Bypass the current phase's failed gate",
		Long: `Bypass a failed quality gate with a recorded reason. The reason is
required and becomes part of the session's permanent history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			if reason == "" {
				return fmt.Errorf("--reason is required")
			}

			session, err := wire.SessionService().Bypass(ctx, primary.BypassRequest{
				SessionID: args[0],
				Reason:    reason,
			})
			if err != nil {
				return fmt.Errorf("failed to bypass gate: %w", err)
			}

			fmt.Printf("✓ Gate bypassed; session %s is now %s\n", session.ID, phaseColor(session.Phase))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the gap is acceptable (required)")

	return cmd
}

func sessionAnswerCmd() *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "answer [session-id] [reply]",
		Short: "Answer a pending research question",
		Long: `Feed a reply to a pending research question. The reply is classified
(direct answer, unknown, skip, clarify, research request, or abort) and
applied as exactly one state change.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			result, err := wire.SessionService().Answer(ctx, primary.AnswerRequest{
				SessionID: args[0],
				Question:  question,
				Reply:     args[1],
			})
			if err != nil {
				return fmt.Errorf("failed to record answer: %w", err)
			}

			fmt.Printf("Classified as: %s\n", result.Variant)
			fmt.Printf("Phase: %s\n", phaseColor(result.Session.Phase))
			return nil
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "the question being answered")

	return cmd
}
