package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/axiomantic/spellbook/internal/core/packet"
	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// DefaultWorkerCommand is the command run inside each spawned worker
// session when no override is configured. {packet} is substituted with
// the packet path.
const DefaultWorkerCommand = "spellbook worker --packet {packet}"

// HandoffServiceImpl implements the terminal dispatcher for distributed
// execution. It spawns workers (or emits instructions) and returns;
// it never blocks on a worker.
type HandoffServiceImpl struct {
	sessionRepo  secondary.SessionRepository
	manifestRepo secondary.ManifestRepository
	workspace    secondary.WorkspaceAdapter
	tmux         secondary.TmuxAdapter
}

// NewHandoffService creates a new HandoffService with injected dependencies.
// tmux may be nil when no tmux binary is available.
func NewHandoffService(
	sessionRepo secondary.SessionRepository,
	manifestRepo secondary.ManifestRepository,
	workspace secondary.WorkspaceAdapter,
	tmux secondary.TmuxAdapter,
) *HandoffServiceImpl {
	return &HandoffServiceImpl{
		sessionRepo:  sessionRepo,
		manifestRepo: manifestRepo,
		workspace:    workspace,
		tmux:         tmux,
	}
}

// Dispatch hands every unblocked track to a worker: non-terminal and
// with all dependencies completed in the manifest. Re-running dispatch
// after a round finishes picks up the tracks it unblocked.
func (s *HandoffServiceImpl) Dispatch(ctx context.Context, req primary.HandoffRequest) (*primary.HandoffResult, error) {
	record, err := s.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	session, err := recordToSession(record)
	if err != nil {
		return nil, err
	}
	if session.Phase != models.PhaseHandoff {
		return nil, fmt.Errorf("session %s is in %s; only handoff sessions dispatch workers", session.ID, session.Phase)
	}

	manifestRecord, err := s.manifestRepo.Get(ctx, session.Feature)
	if err != nil {
		return nil, fmt.Errorf("no manifest for %s; generate packets first: %w", session.Feature, err)
	}
	manifest, err := recordToManifest(manifestRecord)
	if err != nil {
		return nil, err
	}

	command := req.WorkerCommand
	if command == "" {
		command = DefaultWorkerCommand
	}

	spawn := req.Spawn && s.tmux != nil && s.tmux.Available(ctx)
	result := &primary.HandoffResult{}

	for _, track := range manifest.Tracks {
		if track.Status.Terminal() || !manifest.DependenciesCompleted(track.ID) {
			continue
		}

		packetPath := filepath.Join(session.ProjectRoot, ".spellbook", "packets", track.Packet)
		workerCmd := strings.ReplaceAll(command, "{packet}", packetPath)

		if !spawn {
			result.Instructions = append(result.Instructions,
				fmt.Sprintf("cd %s && %s", track.Worktree, workerCmd))
			continue
		}

		if exists, err := s.workspace.WorktreeExists(ctx, track.Worktree); err == nil && !exists {
			if err := s.workspace.CreateWorktree(ctx, session.ProjectRoot, track.Branch, track.Worktree); err != nil {
				return nil, fmt.Errorf("failed to create worktree for track %s: %w", track.ID, err)
			}
		}

		sessionName := fmt.Sprintf("spellbook-%s-%s", packet.Slug(session.Feature), strings.ToLower(track.ID))
		if s.tmux.SessionExists(ctx, sessionName) {
			result.Instructions = append(result.Instructions,
				fmt.Sprintf("session %s already running: %s", sessionName, s.tmux.AttachInstructions(sessionName)))
			continue
		}

		if err := s.tmux.SpawnWorkerSession(ctx, sessionName, track.Worktree, workerCmd); err != nil {
			return nil, fmt.Errorf("failed to spawn worker for track %s: %w", track.ID, err)
		}

		result.Spawned = append(result.Spawned, primary.SpawnedWorker{
			TrackID:     track.ID,
			SessionName: sessionName,
			Workspace:   track.Worktree,
		})
		result.Instructions = append(result.Instructions, s.tmux.AttachInstructions(sessionName))
	}

	return result, nil
}

// Ensure HandoffServiceImpl implements the interface
var _ primary.HandoffService = (*HandoffServiceImpl)(nil)
