// Package estimate contains the pure complexity estimation logic that
// selects an execution strategy for an approved plan.
package estimate

import (
	"fmt"

	"github.com/axiomantic/spellbook/internal/models"
)

// Constants are the tunable coefficients of the token estimate. They must
// be documented and stable within a deployment: overrides come only from
// the tool config file, never per invocation.
type Constants struct {
	BaseOverhead      int
	TokensPerKB       int
	PerTaskCost       int
	PerFileCost       int
	ContextWindowSize int
}

// DefaultConstants returns the deployment defaults for the token formula.
func DefaultConstants() Constants {
	return Constants{
		BaseOverhead:      20000,
		TokensPerKB:       350,
		PerTaskCost:       3300,
		PerFileCost:       400,
		ContextWindowSize: 200000,
	}
}

// Input holds the four measurements taken from an approved plan.
type Input struct {
	PlanSizeKB int
	NumTasks   int
	NumFiles   int
	NumTracks  int
}

// Estimate is the classifier output: the token estimate, the usage ratio
// against the context window, the recommended mode, and the matched rule.
type Estimate struct {
	Tokens     int
	UsageRatio float64
	Mode       models.ExecutionMode
	Reason     string
}

// Estimate computes the token estimate and selects an execution mode.
// The classifier is side-effect free and monotonic: growing any input
// never moves the recommendation toward a less parallel mode. Rules are
// checked in order; the first match wins.
func (c Constants) Estimate(in Input) Estimate {
	tokens := c.BaseOverhead +
		in.PlanSizeKB*c.TokensPerKB +
		in.NumTasks*c.PerTaskCost +
		in.NumFiles*c.PerFileCost
	ratio := float64(tokens) / float64(c.ContextWindowSize)

	est := Estimate{Tokens: tokens, UsageRatio: ratio}

	switch {
	case in.NumTasks > 25 || ratio > 0.80:
		est.Mode = models.ModeDistributed
		est.Reason = fmt.Sprintf("plan too large for one session (%d tasks, %.0f%% of context window); must decompose", in.NumTasks, ratio*100)
	case ratio > 0.65 || (in.NumTasks > 15 && in.NumTracks >= 3):
		est.Mode = models.ModeDistributed
		est.Reason = fmt.Sprintf("good parallelization potential (%d tasks across %d tracks, %.0f%% of context window)", in.NumTasks, in.NumTracks, ratio*100)
	case in.NumTasks > 10 || ratio > 0.40:
		est.Mode = models.ModeDelegated
		est.Reason = fmt.Sprintf("moderate plan (%d tasks, %.0f%% of context window); execute in-process with worker dispatch", in.NumTasks, ratio*100)
	default:
		est.Mode = models.ModeDirect
		est.Reason = fmt.Sprintf("small plan (%d tasks, %.0f%% of context window); execute directly", in.NumTasks, ratio*100)
	}

	return est
}
