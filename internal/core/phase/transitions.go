// Package phase contains the pure state machine for the workflow.
// This is part of the functional core - no I/O, only pure functions.
// Transitions take a session value and return a new session value, so
// the machine can be replayed deterministically in tests.
package phase

import (
	"fmt"
	"time"

	"github.com/axiomantic/spellbook/internal/models"
)

// Event is a named trigger for a phase transition.
type Event string

const (
	EventConfigured        Event = "configured"
	EventResearchPassed    Event = "research_passed"
	EventResearchBypassed  Event = "research_bypassed"
	EventDiscoveryPassed   Event = "discovery_passed"
	EventDiscoveryBypassed Event = "discovery_bypassed"
	EventDesignReviewed    Event = "design_reviewed"
	EventPlanReady         Event = "plan_ready"
	EventPlanReviewed      Event = "plan_reviewed"
	EventModeDistributed   Event = "mode_distributed"
	EventModeLocal         Event = "mode_local"
	EventImplemented       Event = "implemented"
	EventAuditPassed       Event = "audit_passed"
	EventAborted           Event = "aborted"
)

// transitions is the single source of truth for the state graph.
// Escape hatches enter through EntryPhase rather than extra edges here.
var transitions = map[models.Phase]map[Event]models.Phase{
	models.PhaseConfiguring: {
		EventConfigured: models.PhaseResearching,
	},
	models.PhaseResearching: {
		EventResearchPassed:   models.PhaseDiscovering,
		EventResearchBypassed: models.PhaseDiscovering,
	},
	models.PhaseDiscovering: {
		EventDiscoveryPassed:   models.PhaseDesignReview,
		EventDiscoveryBypassed: models.PhaseDesignReview,
	},
	models.PhaseDesignReview: {
		EventDesignReviewed: models.PhasePlanning,
	},
	models.PhasePlanning: {
		EventPlanReady: models.PhasePlanReview,
	},
	models.PhasePlanReview: {
		EventPlanReviewed: models.PhaseModeSelection,
	},
	models.PhaseModeSelection: {
		EventModeDistributed: models.PhaseHandoff,
		EventModeLocal:       models.PhaseImplementing,
	},
	models.PhaseImplementing: {
		EventImplemented: models.PhaseAudit,
	},
	models.PhaseAudit: {
		EventAuditPassed: models.PhaseFinished,
	},
}

// bypassEvents are transitions that clear a gate without a passing score.
// Each requires a recorded reason.
var bypassEvents = map[Event]bool{
	EventResearchBypassed:  true,
	EventDiscoveryBypassed: true,
}

// Next resolves the transition table for a phase/event pair.
func Next(current models.Phase, event Event) (models.Phase, error) {
	if event == EventAborted {
		if current.IsTerminal() {
			return "", fmt.Errorf("cannot abort terminal phase %s", current)
		}
		return models.PhaseAborted, nil
	}
	next, ok := transitions[current][event]
	if !ok {
		return "", fmt.Errorf("no transition from %s on %s", current, event)
	}
	return next, nil
}

// IsBypass reports whether the event is a gate bypass.
func IsBypass(event Event) bool {
	return bypassEvents[event]
}

// Apply executes one transition, returning a new session value with the
// phase updated and an entry appended to the history. The input session
// is not mutated. Bypass events require a non-empty reason.
func Apply(s models.Session, event Event, now time.Time, bypassReason string) (models.Session, error) {
	if guard := CanApply(s, event, bypassReason); !guard.Allowed {
		return s, fmt.Errorf("%s", guard.Reason)
	}

	next, err := Next(s.Phase, event)
	if err != nil {
		return s, err
	}

	out := s
	out.Phase = next
	out.UpdatedAt = now
	out.History = append(append([]models.HistoryEntry{}, s.History...), models.HistoryEntry{
		From:         s.Phase,
		To:           next,
		Event:        string(event),
		At:           now,
		BypassReason: bypassReason,
	})
	return out, nil
}

// EntryPhase resolves where an escape hatch enters the machine: a
// pre-existing artifact treated as ready skips to the state after the
// gate that would have produced it. Review-first handling enters at the
// gate itself (or at researching for a research artifact, which has a
// scored gate rather than a review phase).
func EntryPhase(hatch models.EscapeHatch) (models.Phase, error) {
	switch hatch.Handling {
	case models.HandlingTreatAsReady:
		switch hatch.Kind {
		case models.ArtifactResearch:
			return models.PhaseDiscovering, nil
		case models.ArtifactDesign:
			return models.PhasePlanning, nil
		case models.ArtifactPlan:
			return models.PhaseModeSelection, nil
		}
	case models.HandlingReviewFirst:
		switch hatch.Kind {
		case models.ArtifactResearch:
			return models.PhaseResearching, nil
		case models.ArtifactDesign:
			return models.PhaseDesignReview, nil
		case models.ArtifactPlan:
			return models.PhasePlanReview, nil
		}
	}
	return "", fmt.Errorf("unknown escape hatch %s/%s", hatch.Kind, hatch.Handling)
}
