package sqlite_test

import (
	"context"
	"strings"
	"testing"

	"github.com/axiomantic/spellbook/internal/adapters/sqlite"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

func TestEscalationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEscalationRepository(db, nil)
	ctx := context.Background()

	seedSession(t, db, "SESS-001", "auth-tokens")

	record := &secondary.EscalationRecord{
		ID:           "ESC-001",
		SessionID:    "SESS-001",
		Feature:      "auth-tokens",
		Category:     "test_failure",
		Reason:       "token refresh test failed three times",
		AttemptsJSON: `[{"approach":"retry"},{"approach":"mock clock"},{"approach":"widen timeout"}]`,
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "ESC-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != secondary.EscalationPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.Decision != "" {
		t.Errorf("Decision = %q, want empty", got.Decision)
	}
	if !strings.Contains(got.AttemptsJSON, "mock clock") {
		t.Errorf("AttemptsJSON = %q, want full attempt history", got.AttemptsJSON)
	}
	if got.CreatedAt == "" {
		t.Error("CreatedAt not populated")
	}
	if got.ResolvedAt != "" {
		t.Errorf("ResolvedAt = %q, want empty for pending", got.ResolvedAt)
	}
}

func TestEscalationRepository_Resolve(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEscalationRepository(db, nil)
	ctx := context.Background()

	seedSession(t, db, "SESS-001", "")
	record := &secondary.EscalationRecord{
		ID:           "ESC-001",
		SessionID:    "SESS-001",
		Feature:      "auth-tokens",
		Category:     "merge_conflict",
		Reason:       "repeated merge conflicts on shared interface",
		AttemptsJSON: `[]`,
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.Resolve(ctx, "ESC-001", "architectural_review", "split the shared interface")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "ESC-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != secondary.EscalationResolved {
		t.Errorf("Status = %q, want resolved", got.Status)
	}
	if got.Decision != "architectural_review" {
		t.Errorf("Decision = %q", got.Decision)
	}
	if got.Note != "split the shared interface" {
		t.Errorf("Note = %q", got.Note)
	}
	if got.ResolvedAt == "" {
		t.Error("ResolvedAt not populated after resolve")
	}

	// Resolving twice fails: the decision is final.
	if err := repo.Resolve(ctx, "ESC-001", "accept_risk", ""); err == nil {
		t.Fatal("expected error resolving an already-resolved escalation")
	}
}

func TestEscalationRepository_Resolve_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEscalationRepository(db, nil)

	if err := repo.Resolve(context.Background(), "ESC-999", "abandon_approach", ""); err == nil {
		t.Fatal("expected error for missing escalation")
	}
}

func TestEscalationRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEscalationRepository(db, nil)
	ctx := context.Background()

	seedSession(t, db, "SESS-001", "")
	seedSession(t, db, "SESS-002", "other")

	for _, e := range []*secondary.EscalationRecord{
		{ID: "ESC-001", SessionID: "SESS-001", Feature: "a", Category: "test_failure", Reason: "r", AttemptsJSON: `[]`},
		{ID: "ESC-002", SessionID: "SESS-001", Feature: "a", Category: "merge_conflict", Reason: "r", AttemptsJSON: `[]`},
		{ID: "ESC-003", SessionID: "SESS-002", Feature: "b", Category: "test_failure", Reason: "r", AttemptsJSON: `[]`},
	} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create %s failed: %v", e.ID, err)
		}
	}
	if err := repo.Resolve(ctx, "ESC-002", "accept_risk", ""); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	bySession, err := repo.List(ctx, secondary.EscalationFilters{SessionID: "SESS-001"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(bySession) != 2 {
		t.Errorf("session filter returned %d, want 2", len(bySession))
	}

	pending, err := repo.List(ctx, secondary.EscalationFilters{SessionID: "SESS-001", Status: secondary.EscalationPending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "ESC-001" {
		t.Errorf("pending filter returned %+v, want ESC-001 only", pending)
	}
}

func TestEscalationRepository_GetNextID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEscalationRepository(db, nil)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "ESC-001" {
		t.Errorf("GetNextID = %q, want ESC-001", id)
	}
}
