// Package escalate contains the pure failure-streak logic behind the
// repeated-fix circuit breaker.
package escalate

import "time"

// Threshold is the number of consecutive failures in one category that
// trips the circuit breaker. The third failure fires it, not the second
// or fourth.
const Threshold = 3

// Attempt is one recorded fix attempt.
type Attempt struct {
	Description string
	At          time.Time
}

// Decision options offered when the breaker trips. The pause is
// mandatory; none of these is ever chosen implicitly.
const (
	DecisionArchitecturalReview = "architectural_review"
	DecisionAcceptRisk          = "accept_risk"
	DecisionAbandonApproach     = "abandon_approach"
)

// Ledger tracks consecutive failures per category. A success in a
// category clears its streak.
type Ledger struct {
	streaks map[string][]Attempt
}

// NewLedger returns an empty failure ledger.
func NewLedger() *Ledger {
	return &Ledger{streaks: make(map[string][]Attempt)}
}

// RecordFailure appends a failed attempt and reports whether this exact
// failure trips the breaker. Tripping is edge-triggered: only the
// attempt that reaches the threshold returns true.
func (l *Ledger) RecordFailure(category, description string, at time.Time) (int, bool) {
	l.streaks[category] = append(l.streaks[category], Attempt{Description: description, At: at})
	n := len(l.streaks[category])
	return n, n == Threshold
}

// RecordSuccess clears the streak for a category.
func (l *Ledger) RecordSuccess(category string) {
	delete(l.streaks, category)
}

// Attempts returns the full history of failed attempts for a category.
// Escalations must show every attempted fix, not just the last one.
func (l *Ledger) Attempts(category string) []Attempt {
	return append([]Attempt{}, l.streaks[category]...)
}
