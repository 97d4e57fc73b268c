package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// WorkerCmd returns the worker command
func WorkerCmd() *cobra.Command {
	var packetPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Claim a work packet as an out-of-process worker",
		Long: `Claim the track named in a work packet: verify its dependencies are
completed in the manifest, transition it to in_progress via
compare-and-swap, and print the packet.

The worker then executes the packet's tasks and finishes with:
  spellbook manifest update-status --from in_progress --to completed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			if packetPath == "" {
				return fmt.Errorf("--packet is required")
			}

			content, err := os.ReadFile(packetPath)
			if err != nil {
				return fmt.Errorf("failed to read packet: %w", err)
			}

			feature, trackID, err := parsePacketHeader(string(content))
			if err != nil {
				return err
			}

			manifest, err := wire.ManifestService().GetManifest(ctx, feature)
			if err != nil {
				return fmt.Errorf("manifest not found for %s: %w", feature, err)
			}
			if !manifest.DependenciesCompleted(trackID) {
				return fmt.Errorf("track %s has incomplete dependencies; check the manifest and retry", trackID)
			}

			result, err := wire.ManifestService().UpdateTrackStatus(ctx, primary.UpdateTrackStatusRequest{
				Feature: feature,
				TrackID: trackID,
				From:    models.TrackPending,
				To:      models.TrackInProgress,
			})
			if err != nil {
				return fmt.Errorf("failed to claim track: %w", err)
			}
			if !result.Applied {
				return fmt.Errorf("track %s is already %s; another worker owns it", trackID, result.CurrentStatus)
			}

			fmt.Printf("✓ Claimed track %s of %s\n\n", trackID, feature)
			fmt.Println(string(content))
			fmt.Printf("When every quality gate passes:\n")
			fmt.Printf("  spellbook manifest update-status --feature %q --track %s --from in_progress --to completed\n",
				feature, trackID)
			return nil
		},
	}

	cmd.Flags().StringVar(&packetPath, "packet", "", "path to the work packet file")

	return cmd
}

// parsePacketHeader extracts the feature and track ID from a packet's
// title line: "# Work Packet: <feature> / track <id>".
func parsePacketHeader(content string) (feature, trackID string, err error) {
	line, _, _ := strings.Cut(content, "\n")
	rest, ok := strings.CutPrefix(line, "# Work Packet: ")
	if !ok {
		return "", "", fmt.Errorf("not a work packet: missing title line")
	}
	feature, trackPart, ok := strings.Cut(rest, " / track ")
	if !ok || feature == "" || trackPart == "" {
		return "", "", fmt.Errorf("not a work packet: malformed title %q", line)
	}
	return feature, strings.TrimSpace(trackPart), nil
}
