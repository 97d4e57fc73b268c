package primary

import (
	"context"

	"github.com/axiomantic/spellbook/internal/models"
)

// Coordinator executes tracks in-process, round by round. Tracks within
// a round run concurrently in isolated workspaces; the coordinator
// blocks on the whole round (a barrier, not a race), merges completed
// tracks sequentially, and gates the round on verification before
// dispatching the next one.
type Coordinator interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// RunRequest identifies the session to execute.
type RunRequest struct {
	SessionID string
}

// TrackOutcome is one track's terminal result within a run.
type TrackOutcome struct {
	TrackID     string
	Status      models.TrackState
	MergeStatus string
	Error       string
}

// RoundReport summarizes one executed round.
type RoundReport struct {
	Round    int
	Tracks   []TrackOutcome
	Verified bool
}

// RunResult is the full record of a coordinator run.
type RunResult struct {
	Rounds       []RoundReport
	Completed    int
	Failed       int
	EscalationID string
	Aborted      bool
}
