package app

import (
	"context"
	"fmt"

	"github.com/axiomantic/spellbook/internal/core/escalate"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// EscalationServiceImpl implements the EscalationService interface.
type EscalationServiceImpl struct {
	escalationRepo secondary.EscalationRepository
}

// NewEscalationService creates a new EscalationService with injected dependencies.
func NewEscalationService(escalationRepo secondary.EscalationRepository) *EscalationServiceImpl {
	return &EscalationServiceImpl{escalationRepo: escalationRepo}
}

// GetEscalation retrieves an escalation by ID.
func (s *EscalationServiceImpl) GetEscalation(ctx context.Context, escalationID string) (*primary.Escalation, error) {
	record, err := s.escalationRepo.GetByID(ctx, escalationID)
	if err != nil {
		return nil, err
	}
	return recordToEscalation(record)
}

// ListEscalations lists escalations with optional filters.
func (s *EscalationServiceImpl) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	records, err := s.escalationRepo.List(ctx, secondary.EscalationFilters{
		SessionID: filters.SessionID,
		Status:    filters.Status,
	})
	if err != nil {
		return nil, err
	}

	escalations := make([]*primary.Escalation, 0, len(records))
	for _, record := range records {
		e, err := recordToEscalation(record)
		if err != nil {
			return nil, err
		}
		escalations = append(escalations, e)
	}
	return escalations, nil
}

// Resolve records the explicit decision for a pending escalation. The
// decision must be one of the three offered options; nothing is ever
// decided implicitly.
func (s *EscalationServiceImpl) Resolve(ctx context.Context, req primary.ResolveEscalationRequest) error {
	switch req.Decision {
	case escalate.DecisionArchitecturalReview, escalate.DecisionAcceptRisk, escalate.DecisionAbandonApproach:
	default:
		return fmt.Errorf("unknown decision %q; choose %s, %s, or %s",
			req.Decision, escalate.DecisionArchitecturalReview, escalate.DecisionAcceptRisk, escalate.DecisionAbandonApproach)
	}
	return s.escalationRepo.Resolve(ctx, req.EscalationID, req.Decision, req.Note)
}

// Ensure EscalationServiceImpl implements the interface
var _ primary.EscalationService = (*EscalationServiceImpl)(nil)
