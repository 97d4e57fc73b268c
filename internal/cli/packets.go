package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/wire"
)

// PacketsCmd returns the packets command
func PacketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packets",
		Short: "Manage work packets",
	}

	cmd.AddCommand(packetsGenerateCmd())

	return cmd
}

func packetsGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [session-id]",
		Short: "Generate work packets and the manifest",
		Long: `Render one work packet per track plus the shared manifest.
Regeneration is idempotent: unchanged input rewrites identical content,
and existing track progress is never regressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()

			resp, err := wire.PacketService().Generate(ctx, primary.GeneratePacketsRequest{
				SessionID: args[0],
			})
			if err != nil {
				return fmt.Errorf("failed to generate packets: %w", err)
			}

			fmt.Printf("✓ Generated %d packets for %s\n", len(resp.Packets), resp.Manifest.Feature)
			for _, path := range resp.PacketPaths {
				fmt.Printf("  %s\n", path)
			}
			fmt.Printf("✓ Manifest written to %s\n", resp.ManifestPath)
			return nil
		},
	}
}
