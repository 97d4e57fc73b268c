// Package gate contains the pure scoring logic for phase quality gates.
// This is part of the functional core - no I/O, only pure functions.
// Re-evaluating the same input always yields the same result.
package gate

import (
	"fmt"

	"github.com/axiomantic/spellbook/internal/models"
)

// Research gate criterion names.
const (
	CriterionCoverage  = "coverage"
	CriterionAmbiguity = "ambiguity_resolution"
	CriterionEvidence  = "evidence_quality"
	CriterionUnknown   = "unknown_detection"
)

// PassingScore is the score a gate must reach to clear without a bypass.
const PassingScore = 100.0

// ScoreResearch computes the research gate result from findings and
// ambiguities. Four sub-scores are combined by minimum, not average:
// quality is only as good as its weakest dimension.
func ScoreResearch(questions []string, findings []models.Finding, ambiguities []models.Ambiguity) models.GateResult {
	breakdown := map[string]float64{
		CriterionCoverage:  coverage(questions, findings),
		CriterionAmbiguity: ambiguityResolution(ambiguities),
		CriterionEvidence:  evidenceQuality(findings),
		CriterionUnknown:   unknownDetection(findings),
	}

	score := PassingScore
	for _, v := range breakdown {
		if v < score {
			score = v
		}
	}

	return finishResult(score, breakdown)
}

// coverage = 100 × (findings with confidence HIGH) / (questions asked).
// Vacuously 100 when no questions were asked.
func coverage(questions []string, findings []models.Finding) float64 {
	if len(questions) == 0 {
		return 100
	}
	high := 0
	for _, f := range findings {
		if f.Confidence == models.ConfidenceHigh {
			high++
		}
	}
	return 100 * float64(high) / float64(len(questions))
}

// ambiguityResolution = 100 × (resolved ambiguities) / (total ambiguities).
// Vacuously 100 when none exist.
func ambiguityResolution(ambiguities []models.Ambiguity) float64 {
	if len(ambiguities) == 0 {
		return 100
	}
	resolved := 0
	for _, a := range ambiguities {
		if a.Resolved() {
			resolved++
		}
	}
	return 100 * float64(resolved) / float64(len(ambiguities))
}

// evidenceQuality = 100 × (answerable findings with at least one evidence
// reference) / (answerable findings). Answerable means confidence is not
// UNKNOWN. Zero when findings exist but none are answerable; vacuously 100
// when there are no findings at all.
func evidenceQuality(findings []models.Finding) float64 {
	if len(findings) == 0 {
		return 100
	}
	answerable, evidenced := 0, 0
	for _, f := range findings {
		if !f.Answerable() {
			continue
		}
		answerable++
		if len(f.Evidence) > 0 {
			evidenced++
		}
	}
	if answerable == 0 {
		return 0
	}
	return 100 * float64(evidenced) / float64(answerable)
}

// unknownDetection = 100 × (findings flagged unresolved) / (findings with
// confidence UNKNOWN or LOW). Vacuously 100 when no such findings exist.
func unknownDetection(findings []models.Finding) float64 {
	shaky, flagged := 0, 0
	for _, f := range findings {
		if f.Confidence != models.ConfidenceUnknown && f.Confidence != models.ConfidenceLow {
			continue
		}
		shaky++
		if f.Unresolved {
			flagged++
		}
	}
	if shaky == 0 {
		return 100
	}
	return 100 * float64(flagged) / float64(shaky)
}

// finishResult assembles the GateResult: pass/fail plus, on failure, the
// three remediation options targeting the weakest criterion. A gate
// failure is a normal control-flow outcome, never an error.
func finishResult(score float64, breakdown map[string]float64) models.GateResult {
	result := models.GateResult{
		Score:     score,
		Breakdown: breakdown,
		Passed:    score >= PassingScore,
	}
	if result.Passed {
		return result
	}

	weakest := weakestCriterion(breakdown)
	result.Remediation = []models.RemediationOption{
		{
			Kind:        models.RemediateBypass,
			Criterion:   weakest,
			Description: "accept the gap explicitly; a bypass reason is required and recorded in session history",
		},
		{
			Kind:        models.RemediateIterate,
			Criterion:   weakest,
			Description: fmt.Sprintf("re-run the upstream capability for %q only", weakest),
		},
		{
			Kind:        models.RemediateReduceScope,
			Criterion:   weakest,
			Description: fmt.Sprintf("drop the items failing %q from scope", weakest),
		},
	}
	return result
}

// weakestCriterion returns the lowest-scoring criterion name. Ties break
// alphabetically so the result is deterministic.
func weakestCriterion(breakdown map[string]float64) string {
	name := ""
	low := PassingScore + 1
	for k, v := range breakdown {
		if v < low || (v == low && (name == "" || k < name)) {
			name, low = k, v
		}
	}
	return name
}
