// Package models contains the domain types for the spellbook ledger.
package models

import "time"

// Phase represents a state in the workflow state machine.
type Phase string

const (
	PhaseConfiguring   Phase = "configuring"
	PhaseResearching   Phase = "researching"
	PhaseDiscovering   Phase = "discovering"
	PhaseDesignReview  Phase = "design_review"
	PhasePlanning      Phase = "planning"
	PhasePlanReview    Phase = "plan_review"
	PhaseModeSelection Phase = "mode_selection"
	PhaseHandoff       Phase = "handoff"
	PhaseImplementing  Phase = "implementing"
	PhaseAudit         Phase = "audit"
	PhaseFinished      Phase = "finished"
	PhaseAborted       Phase = "aborted"
)

// IsTerminal reports whether the phase ends the session.
// Handoff is terminal: control passes to spawned workers and the
// state machine stops without waiting for them.
func (p Phase) IsTerminal() bool {
	return p == PhaseHandoff || p == PhaseFinished || p == PhaseAborted
}

// AutonomyMode controls how review gates handle findings.
type AutonomyMode string

const (
	AutonomyAutonomous       AutonomyMode = "autonomous"        // auto-remediate everything, never pause
	AutonomyInteractive      AutonomyMode = "interactive"       // always pause for explicit continuation
	AutonomyMostlyAutonomous AutonomyMode = "mostly_autonomous" // pause only for highest-severity findings
)

// Parallelization controls how aggressively tracks are parallelized.
type Parallelization string

const (
	ParallelizeMaximize     Parallelization = "maximize"
	ParallelizeConservative Parallelization = "conservative"
	ParallelizeAsk          Parallelization = "ask"
)

// Isolation controls workspace isolation for track execution.
type Isolation string

const (
	IsolationSingle   Isolation = "single"
	IsolationPerTrack Isolation = "per_track"
	IsolationNone     Isolation = "none"
)

// PostCompletion controls what happens after the audit passes.
type PostCompletion string

const (
	PostCompletionOfferOptions  PostCompletion = "offer_options"
	PostCompletionAutoIntegrate PostCompletion = "auto_integrate"
	PostCompletionStop          PostCompletion = "stop"
)

// ExecutionMode is the strategy recommended by the complexity estimator.
type ExecutionMode string

const (
	ModeDirect      ExecutionMode = "direct"
	ModeDelegated   ExecutionMode = "delegated"
	ModeDistributed ExecutionMode = "distributed"
)

// Preferences holds the session-wide configuration collected once
// during the configuring phase. The autonomy mode is fixed for the
// whole session so review gates behave consistently.
type Preferences struct {
	Autonomy        AutonomyMode
	Parallelization Parallelization
	Isolation       Isolation
	PostCompletion  PostCompletion
}

// Normalize applies the implicit preference rules.
// Per-track isolation forces maximize parallelization.
func (p Preferences) Normalize() Preferences {
	if p.Isolation == IsolationPerTrack {
		p.Parallelization = ParallelizeMaximize
	}
	return p
}

// ArtifactKind identifies the artifact a phase produces.
type ArtifactKind string

const (
	ArtifactResearch ArtifactKind = "research"
	ArtifactDesign   ArtifactKind = "design"
	ArtifactPlan     ArtifactKind = "plan"
)

// EscapeHatchHandling controls how a pre-existing artifact enters the flow.
type EscapeHatchHandling string

const (
	HandlingTreatAsReady EscapeHatchHandling = "treat_as_ready"
	HandlingReviewFirst  EscapeHatchHandling = "review_first"
)

// EscapeHatch routes a session around phases whose artifact already exists.
type EscapeHatch struct {
	Kind     ArtifactKind
	Path     string
	Handling EscapeHatchHandling
}

// HistoryEntry is one append-only record of a phase transition.
// BypassReason is non-empty only for recorded gate bypasses; it is a
// required field when bypassing (never free-form-optional).
type HistoryEntry struct {
	From         Phase
	To           Phase
	Event        string
	At           time.Time
	BypassReason string
}

// ArchitectureDecision captures the discovered approach and its rationale.
type ArchitectureDecision struct {
	Approach  string
	Rationale string
}

// Scope bounds the feature under development.
type Scope struct {
	InScope    []string
	OutOfScope []string
}

// SessionContext is the accumulated structured output of every phase.
// Transitions treat it as immutable: each transition returns a new
// context value instead of mutating shared state, which keeps the
// state machine replayable.
type SessionContext struct {
	Questions     []string
	Findings      []Finding
	Ambiguities   []Ambiguity
	Architecture  ArchitectureDecision
	Scope         Scope
	Components    []string
	DataModel     string
	ErrorStrategy string
	TestStrategy  string
	DesignDocPath string
	PlanDocPath   string
	PlanText      string
}

// Session is the root aggregate for one feature workflow. It is owned
// by the session service and mutated only via phase transitions; it is
// destroyed (reaches a terminal phase) on success, abort, or handoff.
type Session struct {
	ID          string
	Feature     string
	ProjectRoot string
	Preferences Preferences
	EscapeHatch *EscapeHatch
	Context     SessionContext
	Phase       Phase
	History     []HistoryEntry
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
