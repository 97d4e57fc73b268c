package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// HandoffCmd returns the handoff command
func HandoffCmd() *cobra.Command {
	var (
		spawn   bool
		command string
	)

	cmd := &cobra.Command{
		Use:   "handoff [session-id]",
		Short: "Dispatch distributed workers for a handoff session",
		Long: `Hand the session's dependency-free tracks to out-of-process workers.
With --spawn, each worker gets its own tmux session; otherwise the spawn
commands are printed for manual execution. Later tracks start when their
workers observe completed dependencies in the manifest.

The dispatch never blocks on a worker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			result, err := wire.HandoffService().Dispatch(ctx, primary.HandoffRequest{
				SessionID:     args[0],
				Spawn:         spawn,
				WorkerCommand: command,
			})
			if err != nil {
				return fmt.Errorf("failed to dispatch: %w", err)
			}

			for _, worker := range result.Spawned {
				fmt.Printf("✓ Spawned %s for track %s in %s\n",
					worker.SessionName, worker.TrackID, worker.Workspace)
			}
			if len(result.Instructions) > 0 {
				fmt.Println()
				for _, inst := range result.Instructions {
					fmt.Println(inst)
				}
			}
			if len(result.Spawned) == 0 && len(result.Instructions) == 0 {
				fmt.Println("Nothing to dispatch: every dependency-free track is already running or finished.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&spawn, "spawn", false, "spawn tmux worker sessions directly")
	cmd.Flags().StringVar(&command, "worker-command", "", "override the worker command ({packet} is substituted)")

	return cmd
}
