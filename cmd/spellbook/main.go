package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/cli"
	"github.com/axiomantic/spellbook/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "spellbook",
		Short:   "Spellbook - phased engineering workflow orchestrator",
		Version: version.String(),
		Long: `Spellbook drives a feature from research through implementation:
scored quality gates between phases, a complexity estimator choosing the
execution mode, and parallel track execution in isolated worktrees.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.SessionCmd())
	rootCmd.AddCommand(cli.AdvanceCmd())
	rootCmd.AddCommand(cli.EstimateCmd())
	rootCmd.AddCommand(cli.TracksCmd())
	rootCmd.AddCommand(cli.PacketsCmd())
	rootCmd.AddCommand(cli.ManifestCmd())
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.HandoffCmd())
	rootCmd.AddCommand(cli.WorkerCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.StatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
