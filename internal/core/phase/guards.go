package phase

import (
	"fmt"

	"github.com/axiomantic/spellbook/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// CanApply evaluates whether a transition may run for the session.
// Rules: terminal sessions accept no further events (abort included),
// and bypass events require a recorded reason - never optional.
func CanApply(s models.Session, event Event, bypassReason string) GuardResult {
	if s.Phase.IsTerminal() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("session %s is already terminal (%s)", s.ID, s.Phase),
		}
	}
	if IsBypass(event) && bypassReason == "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("bypass event %s requires a reason; record why the gap is acceptable", event),
		}
	}
	if !IsBypass(event) && bypassReason != "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("event %s is not a bypass; reason must be empty", event),
		}
	}
	return GuardResult{Allowed: true}
}

// GateEvent maps a gate result to the event that advances past it.
// A failed gate with no bypass produces no event: gate failure is a
// normal control-flow outcome, not an error.
func GateEvent(kind models.ArtifactKind, result models.GateResult, bypass bool) (Event, bool) {
	var passEvent, bypassEvent Event
	switch kind {
	case models.ArtifactResearch:
		passEvent, bypassEvent = EventResearchPassed, EventResearchBypassed
	case models.ArtifactDesign:
		passEvent, bypassEvent = EventDiscoveryPassed, EventDiscoveryBypassed
	default:
		return "", false
	}

	if result.Passed {
		return passEvent, true
	}
	if bypass {
		return bypassEvent, true
	}
	return "", false
}
