package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// ManifestCmd returns the manifest command
func ManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect and update the distributed-progress manifest",
		Long: `The manifest is the single source of truth for distributed progress.
Workers read the whole manifest but update only their own track's status.`,
	}

	cmd.AddCommand(manifestShowCmd())
	cmd.AddCommand(manifestUpdateStatusCmd())

	return cmd
}

func manifestShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [feature]",
		Short: "Show the manifest for a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			manifest, err := wire.ManifestService().GetManifest(ctx, args[0])
			if err != nil {
				return fmt.Errorf("manifest not found: %w", err)
			}

			fmt.Printf("Feature: %s\n", manifest.Feature)
			fmt.Printf("Mode: %s\n", manifest.ExecutionMode)
			fmt.Printf("Created: %s\n", manifest.Created)
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRACK\tNAME\tSTATUS\tDEPENDS ON\tBRANCH")
			fmt.Fprintln(w, "-----\t----\t------\t----------\t------")
			for _, tr := range manifest.Tracks {
				deps := "-"
				if len(tr.DependsOn) > 0 {
					deps = strings.Join(tr.DependsOn, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					tr.ID, tr.Name, trackStateColor(tr.Status), deps, tr.Branch)
			}
			w.Flush()
			return nil
		},
	}
}

func manifestUpdateStatusCmd() *cobra.Command {
	var (
		feature string
		track   string
		from    string
		to      string
	)

	cmd := &cobra.Command{
		Use:   "update-status",
		Short: "Transition a track's status (compare-and-swap)",
		Long: `Atomically move one track from one status to another. The transition
only applies when the current status matches --from; losing the race
reports the actual status instead of writing. Out-of-process workers
use this to fulfil the manifest contract.

Example:
  spellbook manifest update-status --feature auth --track T1 --from pending --to in_progress`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			if feature == "" || track == "" || from == "" || to == "" {
				return fmt.Errorf("--feature, --track, --from, and --to are all required")
			}

			result, err := wire.ManifestService().UpdateTrackStatus(ctx, primary.UpdateTrackStatusRequest{
				Feature: feature,
				TrackID: track,
				From:    models.TrackState(from),
				To:      models.TrackState(to),
			})
			if err != nil {
				return fmt.Errorf("failed to update status: %w", err)
			}

			if !result.Applied {
				fmt.Printf("Lost the race: track %s is already %s\n", track, result.CurrentStatus)
				return nil
			}
			fmt.Printf("✓ Track %s: %s -> %s\n", track, from, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "", "feature the manifest belongs to")
	cmd.Flags().StringVar(&track, "track", "", "track ID")
	cmd.Flags().StringVar(&from, "from", "", "expected current status")
	cmd.Flags().StringVar(&to, "to", "", "new status")

	return cmd
}
