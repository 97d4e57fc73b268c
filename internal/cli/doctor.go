package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/axiomantic/spellbook/internal/db"
	"github.com/axiomantic/spellbook/internal/wire"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the spellbook environment",
		Long: `Environment health check for spellbook.

Validates:
- Database path and schema
- git availability (worktree isolation)
- tmux availability (distributed worker spawning)
- Worker command configuration

Examples:
  spellbook doctor          # Run full health check
  spellbook doctor --quiet  # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{
				checkDatabase(),
				checkGit(),
				checkTmux(),
				checkWorkerCommand(),
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				for _, r := range results {
					if r.Status == "✓" {
						fmt.Printf("%s %s\n", r.Status, r.Name)
					} else {
						fmt.Printf("%s %s: %s\n", r.Status, r.Name, r.Details)
					}
				}
			}

			if hasErrors {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "exit code only, no output")

	return cmd
}

func checkDatabase() CheckResult {
	path, err := db.GetDBPath()
	if err != nil {
		return CheckResult{Name: "database", Status: "✗", Details: err.Error()}
	}
	if _, err := os.Stat(path); err != nil {
		return CheckResult{Name: "database", Status: "⚠", Details: "not initialized; run: spellbook init"}
	}
	if _, err := db.GetDB(); err != nil {
		return CheckResult{Name: "database", Status: "✗", Details: err.Error()}
	}
	return CheckResult{Name: "database", Status: "✓"}
}

func checkGit() CheckResult {
	if _, err := exec.LookPath("git"); err != nil {
		return CheckResult{Name: "git", Status: "✗", Details: "git not found; worktree isolation unavailable"}
	}
	return CheckResult{Name: "git", Status: "✓"}
}

func checkTmux() CheckResult {
	if _, err := exec.LookPath("tmux"); err != nil {
		return CheckResult{Name: "tmux", Status: "⚠", Details: "tmux not found; handoff falls back to printed instructions"}
	}
	return CheckResult{Name: "tmux", Status: "✓"}
}

func checkWorkerCommand() CheckResult {
	if wire.UserConfig().Worker.Command == "" {
		return CheckResult{
			Name:    "worker command",
			Status:  "⚠",
			Details: "not configured in ~/.spellbook/config.toml; capability calls will be degraded to data",
		}
	}
	return CheckResult{Name: "worker command", Status: "✓"}
}
