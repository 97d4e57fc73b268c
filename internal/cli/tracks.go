package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/wire"
)

// TracksCmd returns the tracks command
func TracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks [session-id]",
		Short: "Show the plan's track DAG and execution rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			tracks, rounds, err := wire.PacketService().ExtractTracks(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to extract tracks: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEPENDS ON\tTASKS\tFILES")
			fmt.Fprintln(w, "--\t----\t----------\t-----\t-----")
			for _, tr := range tracks {
				deps := "-"
				if len(tr.DependsOn) > 0 {
					deps = strings.Join(tr.DependsOn, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", tr.ID, tr.Name, deps, len(tr.Tasks), len(tr.Files))
			}
			w.Flush()

			fmt.Println()
			fmt.Println("Execution rounds:")
			for i, round := range rounds {
				fmt.Printf("  %d: %s\n", i, strings.Join(round, ", "))
			}
			return nil
		},
	}
}
