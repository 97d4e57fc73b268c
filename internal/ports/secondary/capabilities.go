package secondary

import (
	"context"

	"github.com/axiomantic/spellbook/internal/models"
)

// The capability ports model the external collaborators the orchestrator
// drives: research, review, implementation, merge, and verification. The
// core depends only on these signatures, never on how the results are
// produced. Every call is bounded by the configured capability timeout;
// a failed call is retried exactly once with identical input and then
// downgraded to data (an UNKNOWN finding or a blocked result) by the
// calling service.

// ResearchCapability answers a batch of research questions.
type ResearchCapability interface {
	Research(ctx context.Context, questions []string) ([]models.Finding, error)
}

// ReviewSeverity grades a review finding.
type ReviewSeverity string

const (
	SeverityHigh   ReviewSeverity = "high"
	SeverityMedium ReviewSeverity = "medium"
	SeverityLow    ReviewSeverity = "low"
)

// ReviewFinding is one issue raised by an external review.
type ReviewFinding struct {
	Description string
	Severity    ReviewSeverity
}

// ArtifactRef names the artifact under review.
type ArtifactRef struct {
	Kind models.ArtifactKind
	Path string
}

// ReviewCapability reviews a phase artifact.
type ReviewCapability interface {
	Review(ctx context.Context, artifact ArtifactRef) ([]ReviewFinding, error)
}

// ImplementResult is the outcome of executing one task.
type ImplementResult struct {
	FilesChanged []string
	TestsPassed  bool
	TestOutput   string
	CommitRef    string
}

// ImplementCapability executes one task inside a workspace.
type ImplementCapability interface {
	Implement(ctx context.Context, task models.Task, workspacePath string) (*ImplementResult, error)
}

// MergeContract declares what a track may touch, so the merge step can
// tell an expected conflict from a containment violation.
type MergeContract struct {
	TrackID          string
	OwnedFiles       []string
	SharedInterfaces []string
}

// Merge status constants.
const (
	MergeClean     = "clean"
	MergeConflict  = "conflict"
	MergeViolation = "violation"
)

// MergeResult is the outcome of merging a track branch into the base.
// OutOfScope lists files the track touched outside its contract.
type MergeResult struct {
	Status     string
	Conflicts  []string
	OutOfScope []string
}

// MergeCapability merges one track branch into the shared base branch.
type MergeCapability interface {
	Merge(ctx context.Context, baseBranch, trackBranch string, contract MergeContract) (*MergeResult, error)
}

// VerifyResult is the outcome of one full verification-suite run.
// FailureCategory groups failures for the repeated-fix circuit breaker.
type VerifyResult struct {
	Passed          bool
	Output          string
	FailureCategory string
}

// VerifyCapability runs the full verification suite once.
type VerifyCapability interface {
	Verify(ctx context.Context, projectRoot string) (*VerifyResult, error)
}
