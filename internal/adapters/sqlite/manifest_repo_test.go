package sqlite_test

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/axiomantic/spellbook/internal/adapters/sqlite"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

func testManifestRecord(feature string) *secondary.ManifestRecord {
	return &secondary.ManifestRecord{
		Feature:       feature,
		Created:       "2026-01-01T00:00:00Z",
		ProjectRoot:   "/tmp/project",
		ExecutionMode: "distributed",
		ManifestJSON:  `{"format_version":"1.0"}`,
		Tracks: []secondary.ManifestTrackRecord{
			{
				Feature:  feature,
				TrackID:  "T1",
				Name:     "Token model",
				Packet:   "packet-T1.md",
				Worktree: "/tmp/project-auth-track-T1",
				Branch:   "feature/auth/track-t1",
				Status:   "pending",
			},
			{
				Feature:   feature,
				TrackID:   "T2",
				Name:      "Middleware",
				Packet:    "packet-T2.md",
				Worktree:  "/tmp/project-auth-track-T2",
				Branch:    "feature/auth/track-t2",
				Status:    "pending",
				DependsOn: []string{"T1"},
			},
		},
	}
}

func TestManifestRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)
	ctx := context.Background()

	if err := repo.Save(ctx, testManifestRecord("auth")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "auth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ExecutionMode != "distributed" {
		t.Errorf("ExecutionMode = %q, want distributed", got.ExecutionMode)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("Tracks = %d, want 2", len(got.Tracks))
	}
	if !reflect.DeepEqual(got.Tracks[1].DependsOn, []string{"T1"}) {
		t.Errorf("T2 DependsOn = %v, want [T1]", got.Tracks[1].DependsOn)
	}
}

func TestManifestRepository_SaveReplacesTracks(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)
	ctx := context.Background()

	if err := repo.Save(ctx, testManifestRecord("auth")); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	// Regenerated manifest carries a merged status for T1.
	updated := testManifestRecord("auth")
	updated.Tracks[0].Status = "completed"
	updated.Tracks = updated.Tracks[:1]
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "auth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Tracks) != 1 {
		t.Fatalf("Tracks = %d, want 1 after replacement", len(got.Tracks))
	}
	if got.Tracks[0].Status != "completed" {
		t.Errorf("T1 Status = %q, want completed", got.Tracks[0].Status)
	}
}

func TestManifestRepository_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)

	if _, err := repo.Get(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestManifestRepository_TransitionTrack(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)
	ctx := context.Background()

	seedManifest(t, db, "auth")
	seedManifestTrack(t, db, "auth", "T1", "pending")

	result, err := repo.TransitionTrack(ctx, "auth", "T1", "pending", "in_progress")
	if err != nil {
		t.Fatalf("TransitionTrack failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("transition from matching status was not applied")
	}
	if result.CurrentStatus != "in_progress" {
		t.Errorf("CurrentStatus = %q, want in_progress", result.CurrentStatus)
	}

	// Stale transition: current status no longer matches `from`.
	result, err = repo.TransitionTrack(ctx, "auth", "T1", "pending", "in_progress")
	if err != nil {
		t.Fatalf("stale TransitionTrack failed: %v", err)
	}
	if result.Applied {
		t.Error("stale transition was applied")
	}
	if result.CurrentStatus != "in_progress" {
		t.Errorf("CurrentStatus = %q, want in_progress", result.CurrentStatus)
	}
}

func TestManifestRepository_TransitionTrack_UnknownTrack(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)

	seedManifest(t, db, "auth")

	if _, err := repo.TransitionTrack(context.Background(), "auth", "T9", "pending", "in_progress"); err == nil {
		t.Fatal("expected error for unknown track")
	}
}

// Two workers racing to complete the same track: exactly one CAS wins.
func TestManifestRepository_TransitionTrack_ConcurrentCompletion(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)
	ctx := context.Background()

	seedManifest(t, db, "auth")
	seedManifestTrack(t, db, "auth", "T1", "in_progress")

	const workers = 8
	results := make([]*secondary.TransitionResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.TransitionTrack(ctx, "auth", "T1", "in_progress", "completed")
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d errored: %v", i, errs[i])
		}
		if results[i].Applied {
			applied++
		} else if results[i].CurrentStatus != "completed" {
			t.Errorf("losing worker %d saw status %q, want completed", i, results[i].CurrentStatus)
		}
	}
	if applied != 1 {
		t.Errorf("applied transitions = %d, want exactly 1", applied)
	}
}

func TestManifestRepository_UpdateManifestJSON(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewManifestRepository(db, nil)
	ctx := context.Background()

	if err := repo.Save(ctx, testManifestRecord("auth")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	updated := `{"format_version":"1.0","feature":"auth"}`
	if err := repo.UpdateManifestJSON(ctx, "auth", updated); err != nil {
		t.Fatalf("UpdateManifestJSON failed: %v", err)
	}

	got, err := repo.Get(ctx, "auth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ManifestJSON != updated {
		t.Errorf("ManifestJSON = %q, want %q", got.ManifestJSON, updated)
	}
	// The track rows survive a body rewrite untouched.
	if len(got.Tracks) != 2 || got.Tracks[0].Status != "pending" {
		t.Errorf("tracks = %+v, want untouched rows", got.Tracks)
	}

	if err := repo.UpdateManifestJSON(ctx, "ghost", updated); err == nil {
		t.Error("expected error for unknown feature")
	}
}
