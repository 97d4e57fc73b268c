package primary

import (
	"context"
	"time"
)

// EscalationService exposes the repeated-fix circuit breaker records.
type EscalationService interface {
	// GetEscalation retrieves an escalation by ID.
	GetEscalation(ctx context.Context, escalationID string) (*Escalation, error)

	// ListEscalations lists escalations with optional filters.
	ListEscalations(ctx context.Context, filters EscalationFilters) ([]*Escalation, error)

	// Resolve records the explicit decision for a pending escalation:
	// architectural review, accept the risk, or abandon the approach.
	Resolve(ctx context.Context, req ResolveEscalationRequest) error
}

// EscalationAttempt is one failed fix attempt shown with the escalation.
type EscalationAttempt struct {
	Description string
	At          time.Time
}

// Escalation is a tripped circuit breaker awaiting a decision. The full
// attempt history is always carried, not just the last failure.
type Escalation struct {
	ID         string
	SessionID  string
	Feature    string
	Category   string
	Reason     string
	Attempts   []EscalationAttempt
	Status     string
	Decision   string
	Note       string
	CreatedAt  string
	ResolvedAt string
}

// EscalationFilters contains filter options for querying escalations.
type EscalationFilters struct {
	SessionID string
	Status    string
}

// ResolveEscalationRequest records the decision for an escalation.
type ResolveEscalationRequest struct {
	EscalationID string
	Decision     string
	Note         string
}
