package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/axiomantic/spellbook/internal/core/classify"
	"github.com/axiomantic/spellbook/internal/core/estimate"
	"github.com/axiomantic/spellbook/internal/core/gate"
	"github.com/axiomantic/spellbook/internal/core/phase"
	"github.com/axiomantic/spellbook/internal/core/trackgraph"
	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// SessionServiceImpl implements the SessionService interface. All phase
// semantics live in the core packages; this service loads state, calls
// capabilities, and persists the outcome.
type SessionServiceImpl struct {
	sessionRepo  secondary.SessionRepository
	artifactRepo secondary.ArtifactRepository
	workspace    secondary.WorkspaceAdapter
	research     secondary.ResearchCapability
	review       secondary.ReviewCapability
	verify       secondary.VerifyCapability
	timeout      time.Duration
	estimator    estimate.Constants
	now          func() time.Time
}

// NewSessionService creates a new SessionService with injected dependencies.
func NewSessionService(
	sessionRepo secondary.SessionRepository,
	artifactRepo secondary.ArtifactRepository,
	workspace secondary.WorkspaceAdapter,
	research secondary.ResearchCapability,
	review secondary.ReviewCapability,
	verify secondary.VerifyCapability,
	timeout time.Duration,
	estimator estimate.Constants,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessionRepo:  sessionRepo,
		artifactRepo: artifactRepo,
		workspace:    workspace,
		research:     research,
		review:       review,
		verify:       verify,
		timeout:      timeout,
		estimator:    estimator,
		now:          time.Now,
	}
}

// CreateSession starts a session in the configuring phase, or at the
// escape-hatch entry phase when a pre-existing artifact is given.
func (s *SessionServiceImpl) CreateSession(ctx context.Context, req primary.CreateSessionRequest) (*primary.CreateSessionResponse, error) {
	if req.Feature == "" {
		return nil, fmt.Errorf("feature is required")
	}
	if req.ProjectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}

	nextID, err := s.sessionRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &models.Session{
		ID:          nextID,
		Feature:     req.Feature,
		ProjectRoot: req.ProjectRoot,
		Preferences: req.Preferences.Normalize(),
		Phase:       models.PhaseConfiguring,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	session.Context.Questions = req.Questions

	if req.EscapeHatch != nil {
		entry, err := phase.EntryPhase(*req.EscapeHatch)
		if err != nil {
			return nil, err
		}
		exists, err := s.workspace.FileExists(ctx, req.EscapeHatch.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to check escape hatch artifact: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("escape hatch artifact %s does not exist", req.EscapeHatch.Path)
		}

		session.EscapeHatch = req.EscapeHatch
		session.Phase = entry
		switch req.EscapeHatch.Kind {
		case models.ArtifactDesign:
			session.Context.DesignDocPath = req.EscapeHatch.Path
		case models.ArtifactPlan:
			session.Context.PlanDocPath = req.EscapeHatch.Path
		}
	}

	record, err := sessionToRecord(session)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &primary.CreateSessionResponse{SessionID: session.ID, Session: session}, nil
}

// GetSession retrieves a session by ID.
func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return recordToSession(record)
}

// ListSessions lists sessions with optional filters.
func (s *SessionServiceImpl) ListSessions(ctx context.Context, filters primary.SessionFilters) ([]*models.Session, error) {
	records, err := s.sessionRepo.List(ctx, secondary.SessionFilters{
		Phase:   filters.Phase,
		Feature: filters.Feature,
		Limit:   filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.Session, 0, len(records))
	for _, record := range records {
		session, err := recordToSession(record)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Advance performs the current phase's work and, when its gate clears,
// moves the session forward. A blocked gate is a normal outcome reported
// in the result, not an error.
func (s *SessionServiceImpl) Advance(ctx context.Context, req primary.AdvanceRequest) (*primary.AdvanceResult, error) {
	session, err := s.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Phase.IsTerminal() {
		return nil, fmt.Errorf("session %s is terminal (%s); nothing to advance", session.ID, session.Phase)
	}

	switch session.Phase {
	case models.PhaseConfiguring:
		return s.advanceWith(ctx, session, phase.EventConfigured, &primary.AdvanceResult{
			Message: "session configured; research phase started",
		})
	case models.PhaseResearching:
		return s.advanceResearch(ctx, session)
	case models.PhaseDiscovering:
		return s.advanceDiscovery(ctx, session)
	case models.PhaseDesignReview:
		return s.advanceReview(ctx, session, req.Continue, models.ArtifactDesign)
	case models.PhasePlanning:
		return s.advancePlanning(ctx, session)
	case models.PhasePlanReview:
		return s.advanceReview(ctx, session, req.Continue, models.ArtifactPlan)
	case models.PhaseModeSelection:
		return s.advanceModeSelection(ctx, session)
	case models.PhaseImplementing:
		return &primary.AdvanceResult{
			Session: session,
			Message: "tracks are executed with the run command; advancing resumes after implementation",
		}, nil
	case models.PhaseAudit:
		return s.advanceAudit(ctx, session)
	default:
		return nil, fmt.Errorf("session %s is in unexpected phase %s", session.ID, session.Phase)
	}
}

// advanceResearch answers outstanding questions through the research
// capability, then evaluates the scored research gate. A capability
// failure degrades the affected questions to UNKNOWN findings instead
// of failing the advance.
func (s *SessionServiceImpl) advanceResearch(ctx context.Context, session *models.Session) (*primary.AdvanceResult, error) {
	open := unansweredQuestions(session.Context)
	if len(open) > 0 {
		findings, err := callCapability(ctx, s.timeout, func(ctx context.Context) ([]models.Finding, error) {
			return s.research.Research(ctx, open)
		})
		if err != nil {
			for _, q := range open {
				findings = append(findings, models.Finding{
					Question:   q,
					Answer:     fmt.Sprintf("research capability failed: %v", err),
					Confidence: models.ConfidenceUnknown,
					Unresolved: true,
				})
			}
		}
		session.Context.Findings = append(session.Context.Findings, findings...)
	}

	result := gate.ScoreResearch(session.Context.Questions, session.Context.Findings, session.Context.Ambiguities)
	if !result.Passed {
		if err := s.save(ctx, session); err != nil {
			return nil, err
		}
		return &primary.AdvanceResult{
			Session: session,
			Gate:    &result,
			Message: fmt.Sprintf("research gate blocked at %.1f; remediate or bypass with a reason", result.Score),
		}, nil
	}

	if err := s.putResearchArtifact(ctx, session); err != nil {
		return nil, err
	}

	return s.advanceWith(ctx, session, phase.EventResearchPassed, &primary.AdvanceResult{
		Gate:    &result,
		Message: "research gate passed; discovery started",
	})
}

// advanceDiscovery evaluates the discovery checklist gate.
func (s *SessionServiceImpl) advanceDiscovery(ctx context.Context, session *models.Session) (*primary.AdvanceResult, error) {
	checklist := gate.EvaluateChecklist(session.Context)
	result := gate.ScoreChecklist(checklist)
	if !result.Passed {
		return &primary.AdvanceResult{
			Session: session,
			Gate:    &result,
			Message: fmt.Sprintf("discovery gate blocked at %.1f; complete the missing items or bypass with a reason", result.Score),
		}, nil
	}

	return s.advanceWith(ctx, session, phase.EventDiscoveryPassed, &primary.AdvanceResult{
		Gate:    &result,
		Message: "discovery checklist passed; design review started",
	})
}

// advanceReview runs an external review over the phase artifact and
// applies the session's autonomy policy: autonomous never pauses,
// interactive always pauses once, mostly-autonomous pauses only on
// high-severity findings.
func (s *SessionServiceImpl) advanceReview(ctx context.Context, session *models.Session, cont bool, kind models.ArtifactKind) (*primary.AdvanceResult, error) {
	var docPath string
	var event phase.Event
	switch kind {
	case models.ArtifactDesign:
		docPath, event = session.Context.DesignDocPath, phase.EventDesignReviewed
	default:
		docPath, event = session.Context.PlanDocPath, phase.EventPlanReviewed
	}
	if docPath == "" {
		return &primary.AdvanceResult{
			Session: session,
			Message: fmt.Sprintf("no %s document recorded yet; attach it before review", kind),
		}, nil
	}

	findings, err := callCapability(ctx, s.timeout, func(ctx context.Context) ([]secondary.ReviewFinding, error) {
		return s.review.Review(ctx, secondary.ArtifactRef{Kind: kind, Path: docPath})
	})
	if err != nil {
		return &primary.AdvanceResult{
			Session: session,
			Paused:  true,
			Message: fmt.Sprintf("%s review unavailable (%v); re-run to retry or continue explicitly", kind, err),
		}, nil
	}

	if pauseForReview(session.Preferences.Autonomy, findings) && !cont {
		return &primary.AdvanceResult{
			Session: session,
			Paused:  true,
			Message: reviewSummary(kind, findings),
		}, nil
	}

	return s.advanceWith(ctx, session, event, &primary.AdvanceResult{
		Message: fmt.Sprintf("%s review complete (%d findings)", kind, len(findings)),
	})
}

// advancePlanning loads the plan document, validates that it parses into
// a well-formed track DAG, and moves to plan review.
func (s *SessionServiceImpl) advancePlanning(ctx context.Context, session *models.Session) (*primary.AdvanceResult, error) {
	if session.Context.PlanText == "" {
		if session.Context.PlanDocPath == "" {
			return &primary.AdvanceResult{
				Session: session,
				Message: "no plan recorded yet; attach the plan document first",
			}, nil
		}
		content, err := s.workspace.ReadFile(ctx, session.Context.PlanDocPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		session.Context.PlanText = string(content)
	}

	if _, err := trackgraph.Extract(session.Context.PlanText); err != nil {
		if saveErr := s.save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		return &primary.AdvanceResult{
			Session: session,
			Message: fmt.Sprintf("plan does not parse into tracks: %v", err),
		}, nil
	}

	return s.advanceWith(ctx, session, phase.EventPlanReady, &primary.AdvanceResult{
		Message: "plan parsed; plan review started",
	})
}

// advanceModeSelection runs the complexity estimator over the approved
// plan and branches to handoff (distributed) or local implementation.
func (s *SessionServiceImpl) advanceModeSelection(ctx context.Context, session *models.Session) (*primary.AdvanceResult, error) {
	if session.Context.PlanText == "" && session.Context.PlanDocPath != "" {
		content, err := s.workspace.ReadFile(ctx, session.Context.PlanDocPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		session.Context.PlanText = string(content)
	}

	tracks, err := trackgraph.Extract(session.Context.PlanText)
	if err != nil {
		return nil, fmt.Errorf("plan no longer parses: %w", err)
	}

	est := s.estimator.Estimate(planInput(session.Context.PlanText, tracks))

	event := phase.EventModeLocal
	if est.Mode == models.ModeDistributed {
		event = phase.EventModeDistributed
	}

	return s.advanceWith(ctx, session, event, &primary.AdvanceResult{
		Estimate: &est,
		Message:  fmt.Sprintf("execution mode %s: %s", est.Mode, est.Reason),
	})
}

// advanceAudit runs the verification suite once and finishes the session
// when it passes.
func (s *SessionServiceImpl) advanceAudit(ctx context.Context, session *models.Session) (*primary.AdvanceResult, error) {
	result, err := callCapability(ctx, s.timeout, func(ctx context.Context) (*secondary.VerifyResult, error) {
		return s.verify.Verify(ctx, session.ProjectRoot)
	})
	if err != nil {
		return &primary.AdvanceResult{
			Session: session,
			Message: fmt.Sprintf("audit verification unavailable: %v", err),
		}, nil
	}
	if !result.Passed {
		return &primary.AdvanceResult{
			Session: session,
			Message: fmt.Sprintf("audit failed (%s):\n%s", result.FailureCategory, result.Output),
		}, nil
	}

	return s.advanceWith(ctx, session, phase.EventAuditPassed, &primary.AdvanceResult{
		Message: "audit passed; session finished",
	})
}

// Bypass clears the current phase's failed gate with a recorded reason.
func (s *SessionServiceImpl) Bypass(ctx context.Context, req primary.BypassRequest) (*models.Session, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("bypass reason is required")
	}

	session, err := s.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var kind models.ArtifactKind
	var result models.GateResult
	switch session.Phase {
	case models.PhaseResearching:
		kind = models.ArtifactResearch
		result = gate.ScoreResearch(session.Context.Questions, session.Context.Findings, session.Context.Ambiguities)
	case models.PhaseDiscovering:
		kind = models.ArtifactDesign
		result = gate.ScoreChecklist(gate.EvaluateChecklist(session.Context))
	default:
		return nil, fmt.Errorf("phase %s has no bypassable gate", session.Phase)
	}

	if result.Passed {
		return nil, fmt.Errorf("gate already passes at %.1f; advance instead of bypassing", result.Score)
	}

	event, ok := phase.GateEvent(kind, result, true)
	if !ok {
		return nil, fmt.Errorf("phase %s has no bypass event", session.Phase)
	}

	next, err := phase.Apply(*session, event, s.now(), req.Reason)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Answer feeds a user reply to a pending research question into the
// session. The reply is classified into exactly one variant; each
// variant maps to one state change.
func (s *SessionServiceImpl) Answer(ctx context.Context, req primary.AnswerRequest) (*primary.AnswerResult, error) {
	session, err := s.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Phase.IsTerminal() {
		return nil, fmt.Errorf("session %s is terminal (%s)", session.ID, session.Phase)
	}

	variant := classify.Classify(req.Reply)
	switch variant {
	case classify.ReplyAbort:
		aborted, err := s.Abort(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return &primary.AnswerResult{Variant: variant, Session: aborted}, nil

	case classify.ReplySkip, classify.ReplyUnknown:
		session.Context.Findings = append(session.Context.Findings, models.Finding{
			Question:   req.Question,
			Answer:     req.Reply,
			Confidence: models.ConfidenceUnknown,
			Unresolved: true,
		})

	case classify.ReplyDirectAnswer:
		session.Context.Findings = append(session.Context.Findings, models.Finding{
			Question:   req.Question,
			Answer:     req.Reply,
			Confidence: models.ConfidenceHigh,
			Evidence:   []models.Reference{{Source: "user", Location: "session answer"}},
		})

	case classify.ReplyClarify, classify.ReplyResearchRequest:
		// No state change: the question stays pending. A clarifying
		// question goes back to the user; a research request is picked
		// up by the next advance.
		return &primary.AnswerResult{Variant: variant, Session: session}, nil
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return &primary.AnswerResult{Variant: variant, Session: session}, nil
}

// Abort terminates the session. Completed artifacts stay intact and
// in-flight workers are left to finish or fail on their own.
func (s *SessionServiceImpl) Abort(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := phase.Apply(*session, phase.EventAborted, s.now(), "")
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// advanceWith applies one transition, persists the session, and fills
// the result envelope.
func (s *SessionServiceImpl) advanceWith(ctx context.Context, session *models.Session, event phase.Event, result *primary.AdvanceResult) (*primary.AdvanceResult, error) {
	next, err := phase.Apply(*session, event, s.now(), "")
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	result.Session = &next
	return result, nil
}

func (s *SessionServiceImpl) save(ctx context.Context, session *models.Session) error {
	record, err := sessionToRecord(session)
	if err != nil {
		return err
	}
	return s.sessionRepo.Update(ctx, record)
}

// putResearchArtifact renders the findings document into the artifact store.
func (s *SessionServiceImpl) putResearchArtifact(ctx context.Context, session *models.Session) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Findings: %s\n", session.Feature)
	for _, f := range session.Context.Findings {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n\nConfidence: %s\n", f.Question, f.Answer, f.Confidence)
		for _, ref := range f.Evidence {
			fmt.Fprintf(&b, "- %s: %s\n", ref.Source, ref.Location)
		}
	}

	err := s.artifactRepo.Put(ctx, &secondary.ArtifactRecord{
		Key: secondary.ArtifactKey{
			Project: session.ProjectRoot,
			Feature: session.Feature,
			Kind:    string(models.ArtifactResearch),
			Name:    "findings.md",
		},
		Content: b.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to store research artifact: %w", err)
	}
	return nil
}

// unansweredQuestions returns questions with no finding yet.
func unansweredQuestions(sctx models.SessionContext) []string {
	answered := make(map[string]bool, len(sctx.Findings))
	for _, f := range sctx.Findings {
		answered[f.Question] = true
	}
	var open []string
	for _, q := range sctx.Questions {
		if !answered[q] {
			open = append(open, q)
		}
	}
	return open
}

// pauseForReview applies the autonomy policy to review findings.
func pauseForReview(autonomy models.AutonomyMode, findings []secondary.ReviewFinding) bool {
	switch autonomy {
	case models.AutonomyAutonomous:
		return false
	case models.AutonomyInteractive:
		return true
	default:
		for _, f := range findings {
			if f.Severity == secondary.SeverityHigh {
				return true
			}
		}
		return false
	}
}

func reviewSummary(kind models.ArtifactKind, findings []secondary.ReviewFinding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s review paused with %d findings; re-run with continue to proceed", kind, len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "\n- [%s] %s", f.Severity, f.Description)
	}
	return b.String()
}

// planInput measures an approved plan for the complexity estimator.
func planInput(planText string, tracks []models.Track) estimate.Input {
	tasks := 0
	files := make(map[string]bool)
	for _, tr := range tracks {
		tasks += len(tr.Tasks)
		for _, f := range tr.Files {
			files[f] = true
		}
		for _, task := range tr.Tasks {
			for _, f := range task.Files {
				files[f] = true
			}
		}
	}
	return estimate.Input{
		PlanSizeKB: len(planText) / 1024,
		NumTasks:   tasks,
		NumFiles:   len(files),
		NumTracks:  len(tracks),
	}
}

// Ensure SessionServiceImpl implements the interface
var _ primary.SessionService = (*SessionServiceImpl)(nil)
