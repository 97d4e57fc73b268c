package models

// RemediationKind enumerates the ways past a failed gate.
type RemediationKind string

const (
	// RemediateBypass records an explicit, reasoned bypass in history.
	RemediateBypass RemediationKind = "bypass"
	// RemediateIterate re-runs only the failing criterion's upstream capability.
	RemediateIterate RemediationKind = "iterate"
	// RemediateReduceScope drops the offending items.
	RemediateReduceScope RemediationKind = "reduce_scope"
)

// RemediationOption is one concrete choice offered when a gate blocks.
type RemediationOption struct {
	Kind        RemediationKind
	Criterion   string
	Description string
}

// GateResult is the outcome of a quality gate evaluation. It is never
// stored long-term: every gate check recomputes it from the current
// context so the recorded score cannot drift from the document content.
type GateResult struct {
	Score       float64
	Breakdown   map[string]float64
	Passed      bool
	Remediation []RemediationOption
}
