package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
)

func newTestHandoffService(t *testing.T) (*HandoffServiceImpl, *mockSessionRepository, *mockManifestRepository, *mockWorkspace, *mockTmux) {
	t.Helper()
	sessions := newMockSessionRepository()
	manifests := newMockManifestRepository()
	workspace := newMockWorkspace()
	tmux := newMockTmux()
	svc := NewHandoffService(sessions, manifests, workspace, tmux)
	return svc, sessions, manifests, workspace, tmux
}

// seedHandoff seeds a handoff-phase session with generated packets.
func seedHandoff(t *testing.T, sessions *mockSessionRepository, manifests *mockManifestRepository, workspace *mockWorkspace) string {
	t.Helper()
	id := seedPlanSession(t, sessions, models.PhaseHandoff)
	gen := NewPacketService(sessions, manifests, workspace)
	gen.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	if _, err := gen.Generate(context.Background(), primary.GeneratePacketsRequest{SessionID: id}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return id
}

func TestDispatch_InstructionsOnly(t *testing.T) {
	svc, sessions, manifests, workspace, _ := newTestHandoffService(t)
	id := seedHandoff(t, sessions, manifests, workspace)

	result, err := svc.Dispatch(context.Background(), primary.HandoffRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(result.Spawned) != 0 {
		t.Errorf("Spawned = %+v without Spawn requested", result.Spawned)
	}
	// Only the dependency-free track is dispatched.
	if len(result.Instructions) != 1 {
		t.Fatalf("Instructions = %v, want 1", result.Instructions)
	}
	inst := result.Instructions[0]
	if !strings.Contains(inst, "spellbook worker --packet") {
		t.Errorf("instruction missing worker command: %s", inst)
	}
	if !strings.Contains(inst, "/tmp/project/.spellbook/packets/") {
		t.Errorf("instruction missing packet path: %s", inst)
	}
	if strings.Contains(inst, "{packet}") {
		t.Errorf("placeholder not substituted: %s", inst)
	}
}

func TestDispatch_Spawn(t *testing.T) {
	svc, sessions, manifests, workspace, tmux := newTestHandoffService(t)
	id := seedHandoff(t, sessions, manifests, workspace)

	result, err := svc.Dispatch(context.Background(), primary.HandoffRequest{SessionID: id, Spawn: true})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(result.Spawned) != 1 {
		t.Fatalf("Spawned = %+v, want 1", result.Spawned)
	}
	worker := result.Spawned[0]
	if worker.TrackID != "T1" {
		t.Errorf("TrackID = %s, want T1 (round 0)", worker.TrackID)
	}
	if !strings.HasPrefix(worker.SessionName, "spellbook-auth-tokens-") {
		t.Errorf("SessionName = %s", worker.SessionName)
	}
	if !tmux.SessionExists(context.Background(), worker.SessionName) {
		t.Error("tmux session not created")
	}
	// The isolated worktree is created before spawning.
	if exists, _ := workspace.WorktreeExists(context.Background(), worker.Workspace); !exists {
		t.Errorf("worktree %s not created", worker.Workspace)
	}
}

func TestDispatch_SpawnIsIdempotent(t *testing.T) {
	svc, sessions, manifests, workspace, tmux := newTestHandoffService(t)
	id := seedHandoff(t, sessions, manifests, workspace)
	ctx := context.Background()

	first, err := svc.Dispatch(ctx, primary.HandoffRequest{SessionID: id, Spawn: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Dispatch(ctx, primary.HandoffRequest{SessionID: id, Spawn: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Spawned) != 0 {
		t.Errorf("re-dispatch spawned again: %+v", second.Spawned)
	}
	if len(second.Instructions) != 1 || !strings.Contains(second.Instructions[0], "already running") {
		t.Errorf("Instructions = %v", second.Instructions)
	}
	if len(tmux.sessions) != len(first.Spawned) {
		t.Errorf("tmux sessions = %d, want %d", len(tmux.sessions), len(first.Spawned))
	}
}

func TestDispatch_TmuxUnavailableFallsBack(t *testing.T) {
	svc, sessions, manifests, workspace, tmux := newTestHandoffService(t)
	tmux.available = false
	id := seedHandoff(t, sessions, manifests, workspace)

	result, err := svc.Dispatch(context.Background(), primary.HandoffRequest{SessionID: id, Spawn: true})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(result.Spawned) != 0 {
		t.Errorf("Spawned = %+v with tmux unavailable", result.Spawned)
	}
	if len(result.Instructions) != 1 {
		t.Errorf("Instructions = %v, want manual fallback", result.Instructions)
	}
}

func TestDispatch_CustomWorkerCommand(t *testing.T) {
	svc, sessions, manifests, workspace, _ := newTestHandoffService(t)
	id := seedHandoff(t, sessions, manifests, workspace)

	result, err := svc.Dispatch(context.Background(), primary.HandoffRequest{
		SessionID:     id,
		WorkerCommand: "claude --packet {packet}",
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !strings.Contains(result.Instructions[0], "claude --packet /tmp/project/") {
		t.Errorf("Instructions = %v", result.Instructions)
	}
}

func TestDispatch_UnblocksDependentTracks(t *testing.T) {
	svc, sessions, manifests, workspace, _ := newTestHandoffService(t)
	id := seedHandoff(t, sessions, manifests, workspace)
	ctx := context.Background()

	// T1 blocks T2 until it completes.
	first, err := svc.Dispatch(ctx, primary.HandoffRequest{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Instructions) != 1 || !strings.Contains(first.Instructions[0], "packet-t1.md") {
		t.Fatalf("Instructions = %v, want T1 only", first.Instructions)
	}

	if _, err := manifests.TransitionTrack(ctx, "auth-tokens", "T1", "pending", "in_progress"); err != nil {
		t.Fatal(err)
	}
	if _, err := manifests.TransitionTrack(ctx, "auth-tokens", "T1", "in_progress", "completed"); err != nil {
		t.Fatal(err)
	}

	// T1 finished: it is not dispatched again, and T2 is now unblocked.
	second, err := svc.Dispatch(ctx, primary.HandoffRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(second.Instructions) != 1 {
		t.Fatalf("Instructions = %v, want T2 only", second.Instructions)
	}
	if !strings.Contains(second.Instructions[0], "packet-t2.md") {
		t.Errorf("instruction = %s, want T2's packet", second.Instructions[0])
	}
}

func TestDispatch_RequiresHandoffPhase(t *testing.T) {
	svc, sessions, _, _, _ := newTestHandoffService(t)
	id := seedPlanSession(t, sessions, models.PhaseImplementing)

	if _, err := svc.Dispatch(context.Background(), primary.HandoffRequest{SessionID: id}); err == nil {
		t.Fatal("expected error for non-handoff session")
	}
}

func TestDispatch_RequiresManifest(t *testing.T) {
	svc, sessions, _, _, _ := newTestHandoffService(t)
	id := seedPlanSession(t, sessions, models.PhaseHandoff)

	_, err := svc.Dispatch(context.Background(), primary.HandoffRequest{SessionID: id})
	if err == nil || !strings.Contains(err.Error(), "generate packets first") {
		t.Fatalf("err = %v, want missing manifest error", err)
	}
}
