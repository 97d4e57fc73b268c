// Package primary defines the primary ports (driving interfaces) for the application.
// CLI adapters call these; the app package implements them.
package primary

import (
	"context"

	"github.com/axiomantic/spellbook/internal/core/estimate"
	"github.com/axiomantic/spellbook/internal/models"
)

// SessionService drives a feature workflow through its phases.
type SessionService interface {
	// CreateSession starts a session in the configuring phase (or at the
	// escape-hatch entry phase when one is given).
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// ListSessions lists sessions with optional filters.
	ListSessions(ctx context.Context, filters SessionFilters) ([]*models.Session, error)

	// Advance performs the current phase's work and, when its gate
	// clears, moves the session forward. A blocked gate is a normal
	// outcome reported in the result, not an error.
	Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error)

	// Bypass clears the current phase's failed gate with a recorded
	// reason. The reason is required.
	Bypass(ctx context.Context, req BypassRequest) (*models.Session, error)

	// Answer feeds a user reply to the pending question into the
	// session, classified into exactly one transition.
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error)

	// Abort terminates the session: the abort is recorded in history,
	// completed artifacts stay intact, and in-flight workers are left to
	// finish or fail on their own.
	Abort(ctx context.Context, sessionID string) (*models.Session, error)
}

// CreateSessionRequest carries the one-time session configuration.
type CreateSessionRequest struct {
	Feature     string
	ProjectRoot string
	Preferences models.Preferences
	EscapeHatch *models.EscapeHatch
	Questions   []string
}

// CreateSessionResponse returns the created session.
type CreateSessionResponse struct {
	SessionID string
	Session   *models.Session
}

// SessionFilters contains filter options for listing sessions.
type SessionFilters struct {
	Phase   string
	Feature string
	Limit   int
}

// AdvanceRequest identifies the session to advance. Continue
// acknowledges a paused review gate: the first advance through a review
// phase may pause with findings, and the explicit re-run proceeds.
type AdvanceRequest struct {
	SessionID string
	Continue  bool
}

// AdvanceResult reports what happened during one advancement step.
// Exactly one of the optional fields is set depending on the phase.
type AdvanceResult struct {
	Session *models.Session

	// Gate holds the score and per-criterion breakdown whenever a gate
	// was evaluated, blocked or not. A blocked gate also carries the
	// remediation options.
	Gate *models.GateResult

	// Estimate is set when mode selection ran.
	Estimate *estimate.Estimate

	// Paused is true when the review-gate policy requires explicit
	// continuation before the next step.
	Paused bool

	// Message is a human-readable summary of the step.
	Message string
}

// BypassRequest carries the mandatory bypass reason.
type BypassRequest struct {
	SessionID string
	Reason    string
}

// AnswerRequest feeds a reply to the pending research question.
type AnswerRequest struct {
	SessionID string
	Question  string
	Reply     string
}

// AnswerResult reports the classified variant and the resulting finding.
type AnswerResult struct {
	Variant string
	Session *models.Session
}
