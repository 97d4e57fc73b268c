package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/axiomantic/spellbook/internal/models"
)

// NewContext returns the base context for one command invocation.
func NewContext() context.Context {
	return context.Background()
}

// NewSignalContext returns a context cancelled by SIGINT/SIGTERM, for
// long-running commands like run.
func NewSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// projectRoot resolves the project root flag, defaulting to the current
// working directory.
func projectRoot(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return wd, nil
}

// phaseColor colors a phase for terminal output.
func phaseColor(phase models.Phase) string {
	switch phase {
	case models.PhaseFinished:
		return color.New(color.FgGreen).Sprint(string(phase))
	case models.PhaseAborted:
		return color.New(color.FgRed).Sprint(string(phase))
	case models.PhaseHandoff:
		return color.New(color.FgCyan).Sprint(string(phase))
	default:
		return color.New(color.FgYellow).Sprint(string(phase))
	}
}

// trackStateColor colors a track status for terminal output.
func trackStateColor(state models.TrackState) string {
	switch state {
	case models.TrackCompleted:
		return color.New(color.FgGreen).Sprint(string(state))
	case models.TrackFailed:
		return color.New(color.FgRed).Sprint(string(state))
	case models.TrackInProgress:
		return color.New(color.FgCyan).Sprint(string(state))
	default:
		return string(state)
	}
}
