package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/axiomantic/spellbook/internal/core/escalate"
	"github.com/axiomantic/spellbook/internal/core/packet"
	"github.com/axiomantic/spellbook/internal/core/phase"
	"github.com/axiomantic/spellbook/internal/core/trackgraph"
	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// mergeRetryLimit bounds merge attempts per track. It matches the
// circuit-breaker threshold so a stuck merge escalates instead of
// looping.
const mergeRetryLimit = 3

// CoordinatorImpl executes tracks in-process, round by round. Tracks
// within a round run concurrently in isolated workspaces; the round is
// a barrier, not a race. Merges run sequentially after the barrier;
// verification gates the round and is retried in place on failure.
type CoordinatorImpl struct {
	sessionRepo    secondary.SessionRepository
	manifestRepo   secondary.ManifestRepository
	escalationRepo secondary.EscalationRepository
	workspace      secondary.WorkspaceAdapter
	implement      secondary.ImplementCapability
	merge          secondary.MergeCapability
	verify         secondary.VerifyCapability
	timeout        time.Duration
	baseBranch     string
	now            func() time.Time
}

// NewCoordinator creates a new Coordinator with injected dependencies.
func NewCoordinator(
	sessionRepo secondary.SessionRepository,
	manifestRepo secondary.ManifestRepository,
	escalationRepo secondary.EscalationRepository,
	workspace secondary.WorkspaceAdapter,
	implement secondary.ImplementCapability,
	merge secondary.MergeCapability,
	verify secondary.VerifyCapability,
	timeout time.Duration,
) *CoordinatorImpl {
	return &CoordinatorImpl{
		sessionRepo:    sessionRepo,
		manifestRepo:   manifestRepo,
		escalationRepo: escalationRepo,
		workspace:      workspace,
		implement:      implement,
		merge:          merge,
		verify:         verify,
		timeout:        timeout,
		baseBranch:     "main",
		now:            time.Now,
	}
}

// trackRun is the in-flight state of one track during a run.
type trackRun struct {
	track     models.Track
	packet    models.WorkPacket
	workspace string
	outcome   primary.TrackOutcome
}

// Run executes the session's plan. It returns normally on escalation or
// context cancellation; partial progress is recorded in the manifest.
func (c *CoordinatorImpl) Run(ctx context.Context, req primary.RunRequest) (*primary.RunResult, error) {
	record, err := c.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	session, err := recordToSession(record)
	if err != nil {
		return nil, err
	}
	if session.Phase != models.PhaseImplementing {
		return nil, fmt.Errorf("session %s is in %s; only implementing sessions can run", session.ID, session.Phase)
	}

	tracks, err := trackgraph.Extract(session.Context.PlanText)
	if err != nil {
		return nil, fmt.Errorf("plan does not parse into tracks: %w", err)
	}
	rounds, err := trackgraph.Rounds(tracks)
	if err != nil {
		return nil, err
	}

	packets, manifest := packet.Build(packet.BuildInput{
		Feature:       session.Feature,
		ProjectRoot:   session.ProjectRoot,
		ExecutionMode: models.ModeDelegated,
		Tracks:        tracks,
		DesignDocPath: session.Context.DesignDocPath,
		PlanDocPath:   session.Context.PlanDocPath,
		Now:           c.now(),
	})
	if prev, err := c.manifestRepo.Get(ctx, session.Feature); err == nil {
		prevManifest, err := recordToManifest(prev)
		if err != nil {
			return nil, err
		}
		manifest = packet.Merge(prevManifest, manifest)
	}
	manifestJSON, err := packet.CanonicalJSON(manifest)
	if err != nil {
		return nil, err
	}
	if err := c.manifestRepo.Save(ctx, manifestToRecord(manifest, manifestJSON)); err != nil {
		return nil, err
	}

	byID := make(map[string]*trackRun, len(tracks))
	for i, tr := range tracks {
		byID[tr.ID] = &trackRun{
			track:   tr,
			packet:  packets[i],
			outcome: primary.TrackOutcome{TrackID: tr.ID, Status: models.TrackPending},
		}
	}

	perTrack := session.Preferences.Isolation == models.IsolationPerTrack
	ledger := escalate.NewLedger()
	result := &primary.RunResult{}
	var verifyCategories []string

	for roundIdx, roundIDs := range rounds {
		if ctx.Err() != nil {
			result.Aborted = true
			return result, nil
		}

		report := primary.RoundReport{Round: roundIdx}

		// Skip tracks already completed in a previous run; a failed
		// track is reset so the retry can walk the lifecycle again.
		var pending []*trackRun
		for _, id := range roundIDs {
			run := byID[id]
			if ts := manifest.TrackByID(id); ts != nil {
				switch ts.Status {
				case models.TrackCompleted:
					run.outcome.Status = models.TrackCompleted
					continue
				case models.TrackFailed:
					c.transition(ctx, session.Feature, id, models.TrackFailed, models.TrackPending)
				}
			}
			pending = append(pending, run)
		}

		var wg sync.WaitGroup
		for _, run := range pending {
			wg.Add(1)
			go func(run *trackRun) {
				defer wg.Done()
				c.executeTrack(ctx, session, run, perTrack)
			}(run)
		}
		wg.Wait()

		// Sequential merges after the barrier: a containment violation
		// fails the track; conflicts retry up to the limit and then
		// count against the circuit breaker.
		for _, run := range pending {
			if run.outcome.Status != models.TrackCompleted || !perTrack {
				continue
			}
			c.mergeTrack(ctx, run, ledger)

			if tripped := c.trippedCategory(ledger, "merge:"+run.track.ID); tripped != "" {
				escID, err := c.escalateRun(ctx, session, tripped, ledger)
				if err != nil {
					return nil, err
				}
				c.finishRound(ctx, session, &report, pending)
				result.Rounds = append(result.Rounds, report)
				result.EscalationID = escID
				c.tally(result, byID)
				return result, nil
			}
		}

		// Verification gates the round: one run per attempt, retried in
		// place on failure with each attempt recorded against the
		// breaker. The next round never starts on a base that is known
		// broken; exhausted retries escalate instead.
		for attempt := 1; ; attempt++ {
			if ctx.Err() != nil {
				c.finishRound(ctx, session, &report, pending)
				result.Rounds = append(result.Rounds, report)
				c.tally(result, byID)
				result.Aborted = true
				return result, nil
			}

			verified, category := c.verifyRound(ctx, session)
			if verified {
				report.Verified = true
				// Clearing every seen category keeps the breaker counting
				// consecutive failures only.
				for _, cat := range verifyCategories {
					ledger.RecordSuccess(cat)
				}
				verifyCategories = verifyCategories[:0]
				break
			}

			verifyCategories = append(verifyCategories, category)
			_, tripped := ledger.RecordFailure(category, fmt.Sprintf("round %d verification failed", roundIdx), c.now())
			if tripped || attempt == escalate.Threshold {
				escID, err := c.escalateRun(ctx, session, category, ledger)
				if err != nil {
					return nil, err
				}
				c.finishRound(ctx, session, &report, pending)
				result.Rounds = append(result.Rounds, report)
				result.EscalationID = escID
				c.tally(result, byID)
				return result, nil
			}
		}

		c.finishRound(ctx, session, &report, pending)
		result.Rounds = append(result.Rounds, report)
	}

	c.tally(result, byID)

	if ctx.Err() != nil {
		result.Aborted = true
		return result, nil
	}

	// Only a fully completed run advances the session.
	if result.Failed == 0 {
		next, err := phase.Apply(*session, phase.EventImplemented, c.now(), "")
		if err != nil {
			return nil, err
		}
		rec, err := sessionToRecord(&next)
		if err != nil {
			return nil, err
		}
		if err := c.sessionRepo.Update(ctx, rec); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// executeTrack runs a track's tasks sequentially inside its workspace.
func (c *CoordinatorImpl) executeTrack(ctx context.Context, session *models.Session, run *trackRun, perTrack bool) {
	workspacePath := session.ProjectRoot
	if perTrack {
		workspacePath = run.packet.WorkspacePath
		exists, err := c.workspace.WorktreeExists(ctx, workspacePath)
		if err == nil && !exists {
			err = c.workspace.CreateWorktree(ctx, session.ProjectRoot, run.packet.Branch, workspacePath)
		}
		if err != nil {
			run.outcome.Status = models.TrackFailed
			run.outcome.Error = fmt.Sprintf("workspace setup failed: %v", err)
			return
		}
	}
	run.workspace = workspacePath

	c.transition(ctx, session.Feature, run.track.ID, models.TrackPending, models.TrackInProgress)
	run.outcome.Status = models.TrackInProgress

	for _, task := range run.track.Tasks {
		implResult, err := callCapability(ctx, c.timeout, func(ctx context.Context) (*secondary.ImplementResult, error) {
			return c.implement.Implement(ctx, task, workspacePath)
		})
		if err != nil {
			run.outcome.Status = models.TrackFailed
			run.outcome.Error = fmt.Sprintf("task %q failed: %v", task.Description, err)
			return
		}
		if !implResult.TestsPassed {
			run.outcome.Status = models.TrackFailed
			run.outcome.Error = fmt.Sprintf("task %q tests failed:\n%s", task.Description, implResult.TestOutput)
			return
		}
	}

	run.outcome.Status = models.TrackCompleted
}

// mergeTrack merges one completed track branch into the base branch.
func (c *CoordinatorImpl) mergeTrack(ctx context.Context, run *trackRun, ledger *escalate.Ledger) {
	contract := secondary.MergeContract{
		TrackID:    run.track.ID,
		OwnedFiles: run.track.Files,
	}
	category := "merge:" + run.track.ID

	for attempt := 1; attempt <= mergeRetryLimit; attempt++ {
		mergeResult, err := c.merge.Merge(ctx, c.baseBranch, run.packet.Branch, contract)
		if err != nil {
			ledger.RecordFailure(category, fmt.Sprintf("merge attempt %d: %v", attempt, err), c.now())
			continue
		}

		run.outcome.MergeStatus = mergeResult.Status
		switch mergeResult.Status {
		case secondary.MergeClean:
			ledger.RecordSuccess(category)
			return
		case secondary.MergeViolation:
			// A containment violation is not retryable: the track
			// touched files outside its contract.
			run.outcome.Status = models.TrackFailed
			run.outcome.Error = fmt.Sprintf("containment violation: touched %v", mergeResult.OutOfScope)
			return
		default:
			ledger.RecordFailure(category, fmt.Sprintf("merge attempt %d: conflicts in %v", attempt, mergeResult.Conflicts), c.now())
		}
	}

	run.outcome.Status = models.TrackFailed
	run.outcome.Error = "merge conflicts persisted across retries"
}

// verifyRound runs the verification suite once and returns the outcome
// plus the failure category for the circuit breaker.
func (c *CoordinatorImpl) verifyRound(ctx context.Context, session *models.Session) (bool, string) {
	result, err := callCapability(ctx, c.timeout, func(ctx context.Context) (*secondary.VerifyResult, error) {
		return c.verify.Verify(ctx, session.ProjectRoot)
	})
	if err != nil {
		return false, "verify:unavailable"
	}
	if !result.Passed {
		category := result.FailureCategory
		if category == "" {
			category = "uncategorized"
		}
		return false, "verify:" + category
	}
	return true, "verify:uncategorized"
}

// finishRound records terminal track statuses in the manifest and the
// round report.
func (c *CoordinatorImpl) finishRound(ctx context.Context, session *models.Session, report *primary.RoundReport, runs []*trackRun) {
	for _, run := range runs {
		switch run.outcome.Status {
		case models.TrackCompleted:
			c.transition(ctx, session.Feature, run.track.ID, models.TrackInProgress, models.TrackCompleted)
		case models.TrackFailed:
			c.transition(ctx, session.Feature, run.track.ID, models.TrackInProgress, models.TrackFailed)
		}
		report.Tracks = append(report.Tracks, run.outcome)
	}
}

// transition performs a best-effort CAS status update; a lost race means
// another writer already owns the status. An applied transition also
// refreshes the stored manifest JSON and the on-disk wire file.
func (c *CoordinatorImpl) transition(ctx context.Context, feature, trackID string, from, to models.TrackState) {
	result, err := c.manifestRepo.TransitionTrack(ctx, feature, trackID, string(from), string(to))
	if err != nil || !result.Applied {
		return
	}
	_ = syncManifestArtifacts(ctx, c.manifestRepo, c.workspace, feature)
}

// trippedCategory reports the category name when its streak just hit
// the threshold.
func (c *CoordinatorImpl) trippedCategory(ledger *escalate.Ledger, category string) string {
	if len(ledger.Attempts(category)) == escalate.Threshold {
		return category
	}
	return ""
}

// escalateRun persists a tripped circuit breaker with its full attempt
// history.
func (c *CoordinatorImpl) escalateRun(ctx context.Context, session *models.Session, category string, ledger *escalate.Ledger) (string, error) {
	attempts, err := json.Marshal(ledger.Attempts(category))
	if err != nil {
		return "", fmt.Errorf("failed to marshal attempts: %w", err)
	}

	id, err := c.escalationRepo.GetNextID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to generate escalation ID: %w", err)
	}

	err = c.escalationRepo.Create(ctx, &secondary.EscalationRecord{
		ID:           id,
		SessionID:    session.ID,
		Feature:      session.Feature,
		Category:     category,
		Reason:       fmt.Sprintf("%d consecutive failures in %s; pausing for a decision", len(ledger.Attempts(category)), category),
		AttemptsJSON: string(attempts),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create escalation: %w", err)
	}
	return id, nil
}

func (c *CoordinatorImpl) tally(result *primary.RunResult, byID map[string]*trackRun) {
	for _, run := range byID {
		switch run.outcome.Status {
		case models.TrackCompleted:
			result.Completed++
		case models.TrackFailed:
			result.Failed++
		}
	}
}

// Ensure CoordinatorImpl implements the interface
var _ primary.Coordinator = (*CoordinatorImpl)(nil)
