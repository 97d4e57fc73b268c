package models

// Confidence grades how well a research question was answered.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// Reference points at the evidence backing a finding (file, URL, doc section).
type Reference struct {
	Source   string
	Location string
}

// Finding is one answered research question. Findings are immutable
// once created; re-research supersedes a finding rather than mutating it.
type Finding struct {
	Question   string
	Answer     string
	Confidence Confidence
	Evidence   []Reference

	// Unresolved marks a finding explicitly flagged as an open unknown.
	Unresolved bool

	// Supersedes holds the question text of a finding this one replaces.
	Supersedes string
}

// Answerable reports whether the finding carries an actual answer
// (anything but UNKNOWN confidence).
func (f Finding) Answerable() bool {
	return f.Confidence != ConfidenceUnknown
}

// AmbiguityCategory classifies where an ambiguity lives.
type AmbiguityCategory string

const (
	AmbiguityTechnical   AmbiguityCategory = "technical"
	AmbiguityScope       AmbiguityCategory = "scope"
	AmbiguityIntegration AmbiguityCategory = "integration"
	AmbiguityTerminology AmbiguityCategory = "terminology"
)

// Impact grades how much an ambiguity matters.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Ambiguity is created during research triage. Ambiguities are never
// deleted, only resolved: Resolution stays empty until disambiguation
// completes.
type Ambiguity struct {
	Description string
	Category    AmbiguityCategory
	Impact      Impact
	Resolution  string
}

// Resolved reports whether the ambiguity has a recorded resolution.
func (a Ambiguity) Resolved() bool {
	return a.Resolution != ""
}
