// Package tmux contains the gotmux-backed worker session adapter.
package tmux

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/GianlucaP106/gotmux/gotmux"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// Adapter implements secondary.TmuxAdapter using the gotmux library.
type Adapter struct {
	tmux *gotmux.Tmux
}

// NewAdapter creates a new tmux adapter. Returns an error when no tmux
// binary is available; callers fall back to printed instructions.
func NewAdapter() (*Adapter, error) {
	tmux, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("failed to create tmux client: %w", err)
	}
	return &Adapter{tmux: tmux}, nil
}

// Available reports whether the tmux server can be reached.
func (a *Adapter) Available(ctx context.Context) bool {
	if a == nil || a.tmux == nil {
		return false
	}
	_, err := a.tmux.ListSessions()
	return err == nil
}

// SpawnWorkerSession creates a detached session running the worker command
// in the track worktree. It returns as soon as the session exists - the
// dispatcher never waits on workers.
func (a *Adapter) SpawnWorkerSession(ctx context.Context, sessionName, workingDir, command string) error {
	if a.SessionExists(ctx, sessionName) {
		return fmt.Errorf("tmux session %s already exists", sessionName)
	}

	// Create the session with a plain shell first; SessionOptions has no
	// reliable multi-word command support, so the worker command becomes
	// the pane's root process via respawn-pane -k.
	session, err := a.tmux.NewSession(&gotmux.SessionOptions{
		Name:           sessionName,
		StartDirectory: workingDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", sessionName, err)
	}

	windows, err := session.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if len(windows) == 0 {
		return fmt.Errorf("no windows found in new session")
	}

	panes, err := windows[0].ListPanes()
	if err != nil || len(panes) == 0 {
		return fmt.Errorf("failed to get initial pane: %w", err)
	}

	cmd := exec.CommandContext(ctx, "tmux", "respawn-pane", "-t", panes[0].Id, "-k", command)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to start worker command: %w", err)
	}

	return nil
}

// SessionExists checks if a session with the name already exists.
func (a *Adapter) SessionExists(ctx context.Context, name string) bool {
	sessions, err := a.tmux.ListSessions()
	if err != nil {
		return false
	}
	for _, session := range sessions {
		if session.Name == name {
			return true
		}
	}
	return false
}

// AttachInstructions returns user-facing instructions for attaching.
func (a *Adapter) AttachInstructions(sessionName string) string {
	return fmt.Sprintf("tmux attach -t %s", sessionName)
}

// Ensure Adapter implements the interface
var _ secondary.TmuxAdapter = (*Adapter)(nil)
