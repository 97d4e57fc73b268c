// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import "context"

// TmuxAdapter defines the secondary port for spawning worker sessions.
// The handoff dispatcher either spawns and returns immediately or falls
// back to printing instructions - it never waits on a worker.
type TmuxAdapter interface {
	// Available reports whether a tmux server can be reached.
	Available(ctx context.Context) bool

	// SpawnWorkerSession creates a detached session running the given
	// command in the working directory. Returns without attaching.
	SpawnWorkerSession(ctx context.Context, sessionName, workingDir, command string) error

	// SessionExists checks if a session with the name already exists.
	SessionExists(ctx context.Context, name string) bool

	// AttachInstructions returns user-facing instructions for attaching.
	AttachInstructions(sessionName string) string
}
