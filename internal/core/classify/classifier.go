// Package classify turns free-text user replies into tagged variants the
// state machine can branch on. One variant maps to one transition; no
// ad hoc pattern matching lives anywhere else in the flow.
package classify

import "strings"

// Reply variants.
const (
	ReplyAbort           = "abort"            // stop the workflow
	ReplySkip            = "skip"             // skip the current question
	ReplyClarify         = "clarify"          // user asked a question back
	ReplyResearchRequest = "research_request" // user wants the answer researched
	ReplyUnknown         = "unknown"          // user does not know
	ReplyDirectAnswer    = "direct_answer"    // anything substantive
)

// Abort patterns - end the session.
var abortPatterns = []string{
	"abort",
	"cancel",
	"stop the workflow",
	"give up",
	"quit",
}

// Skip patterns - move past the current question.
var skipPatterns = []string{
	"skip",
	"next question",
	"pass on this",
	"come back to",
}

// Research-request patterns - the user delegates the answer.
var researchPatterns = []string{
	"look it up",
	"research this",
	"research it",
	"find out",
	"check the code",
	"check the docs",
	"investigate",
}

// Unknown patterns - the user has no answer.
var unknownPatterns = []string{
	"i don't know",
	"i dont know",
	"no idea",
	"not sure",
	"unsure",
	"unknown",
}

// Classify maps a reply to a variant. Priority order:
// abort > skip > clarify > research request > unknown > direct answer.
// Empty input classifies as unknown, not as an answer.
func Classify(reply string) string {
	text := strings.ToLower(strings.TrimSpace(reply))
	if text == "" {
		return ReplyUnknown
	}

	if matchesAny(text, abortPatterns) {
		return ReplyAbort
	}
	if matchesAny(text, skipPatterns) {
		return ReplySkip
	}
	if strings.HasSuffix(text, "?") {
		return ReplyClarify
	}
	if matchesAny(text, researchPatterns) {
		return ReplyResearchRequest
	}
	if matchesAny(text, unknownPatterns) {
		return ReplyUnknown
	}

	return ReplyDirectAnswer
}

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
