package primary

import "context"

// HandoffService is the terminal dispatcher for distributed execution.
// It either spawns worker sessions and returns immediately, or emits
// the commands needed for external spawning. It never blocks on workers.
type HandoffService interface {
	Dispatch(ctx context.Context, req HandoffRequest) (*HandoffResult, error)
}

// HandoffRequest configures a dispatch.
type HandoffRequest struct {
	SessionID string

	// Spawn requests direct tmux spawning; when false (or when tmux is
	// unavailable) instructions are emitted instead.
	Spawn bool

	// WorkerCommand is the command each spawned worker runs inside its
	// workspace, with {packet} substituted by the packet path.
	WorkerCommand string
}

// SpawnedWorker records one spawned session.
type SpawnedWorker struct {
	TrackID     string
	SessionName string
	Workspace   string
}

// HandoffResult reports what was spawned or what to run manually.
// Only round-0 tracks (no dependencies) are dispatched; later tracks
// start when their workers observe completed dependencies in the
// manifest.
type HandoffResult struct {
	Spawned      []SpawnedWorker
	Instructions []string
}
