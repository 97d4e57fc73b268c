package gate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/axiomantic/spellbook/internal/models"
)

// Discovery checklist predicate names, in evaluation order.
// Exactly eleven; ScoreChecklist divides by this count.
const (
	CheckArchitectureDecided   = "architecture_decided"
	CheckArchitectureRationale = "architecture_rationale"
	CheckScopeBounded          = "scope_bounded"
	CheckAmbiguitiesResolved   = "ambiguities_resolved"
	CheckFindingsRecorded      = "findings_recorded"
	CheckUnknownsFlagged       = "unknowns_flagged"
	CheckComponentsEnumerated  = "components_enumerated"
	CheckDataModelDescribed    = "data_model_described"
	CheckErrorStrategy         = "error_strategy_described"
	CheckTestStrategy          = "test_strategy_described"
	CheckNoPlaceholders        = "no_placeholders"
)

// ChecklistSize is the fixed number of discovery predicates.
const ChecklistSize = 11

// ChecklistItem is one evaluated predicate with a failure reason when unmet.
type ChecklistItem struct {
	Name   string
	Passed bool
	Reason string
}

// Checklist is the ordered result of evaluating all eleven predicates.
// It is recomputed from scratch on every evaluation, never patched
// incrementally, to avoid stale-pass bugs.
type Checklist struct {
	Items []ChecklistItem
}

// placeholderMarkers are the deferred-decision markers that must not
// remain anywhere in the serialized context.
var placeholderMarkers = []string{"TBD", "TODO", "FIXME", "???", "PLACEHOLDER", "DEFERRED"}

// EvaluateChecklist runs all eleven discovery predicates over the context.
func EvaluateChecklist(ctx models.SessionContext) Checklist {
	var cl Checklist
	add := func(name string, passed bool, reason string) {
		item := ChecklistItem{Name: name, Passed: passed}
		if !passed {
			item.Reason = reason
		}
		cl.Items = append(cl.Items, item)
	}

	add(CheckArchitectureDecided, ctx.Architecture.Approach != "",
		"no architecture approach recorded")
	add(CheckArchitectureRationale, ctx.Architecture.Rationale != "",
		"architecture approach has no rationale")
	add(CheckScopeBounded, len(ctx.Scope.InScope) > 0 && len(ctx.Scope.OutOfScope) > 0,
		"scope needs at least one in-scope and one out-of-scope item")
	add(CheckAmbiguitiesResolved, allResolved(ctx.Ambiguities),
		fmt.Sprintf("%d ambiguities still unresolved", countUnresolved(ctx.Ambiguities)))
	add(CheckFindingsRecorded, len(ctx.Findings) > 0,
		"no research findings recorded")
	add(CheckUnknownsFlagged, unknownsFlagged(ctx.Findings),
		"UNKNOWN findings exist that are not flagged as unresolved")
	add(CheckComponentsEnumerated, len(ctx.Components) > 0,
		"no components enumerated")
	add(CheckDataModelDescribed, ctx.DataModel != "",
		"data model not described")
	add(CheckErrorStrategy, ctx.ErrorStrategy != "",
		"error handling strategy not described")
	add(CheckTestStrategy, ctx.TestStrategy != "",
		"test strategy not described")

	marker, found := placeholderScan(ctx)
	add(CheckNoPlaceholders, !found,
		fmt.Sprintf("placeholder marker %q remains in the context", marker))

	return cl
}

// ScoreChecklist converts an evaluated checklist into a gate result:
// 100 × (predicates true) / 11.
func ScoreChecklist(cl Checklist) models.GateResult {
	breakdown := make(map[string]float64, len(cl.Items))
	passed := 0
	for _, item := range cl.Items {
		if item.Passed {
			breakdown[item.Name] = 100
			passed++
		} else {
			breakdown[item.Name] = 0
		}
	}
	score := 100 * float64(passed) / float64(ChecklistSize)
	return finishResult(score, breakdown)
}

func allResolved(ambiguities []models.Ambiguity) bool {
	return countUnresolved(ambiguities) == 0
}

func countUnresolved(ambiguities []models.Ambiguity) int {
	n := 0
	for _, a := range ambiguities {
		if !a.Resolved() {
			n++
		}
	}
	return n
}

// unknownsFlagged requires every UNKNOWN finding to be explicitly
// flagged unresolved before discovery can complete.
func unknownsFlagged(findings []models.Finding) bool {
	for _, f := range findings {
		if f.Confidence == models.ConfidenceUnknown && !f.Unresolved {
			return false
		}
	}
	return true
}

// placeholderScan serializes the context to canonical JSON and scans it
// for deferred-decision markers. Canonicalization (RFC 8785) makes the
// scan independent of map ordering, so the same context always serializes
// to the same bytes.
func placeholderScan(ctx models.SessionContext) (string, bool) {
	raw, err := json.Marshal(ctx)
	if err != nil {
		return "", false
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	text := strings.ToUpper(string(canonical))
	for _, marker := range placeholderMarkers {
		if strings.Contains(text, marker) {
			return marker, true
		}
	}
	return "", false
}
