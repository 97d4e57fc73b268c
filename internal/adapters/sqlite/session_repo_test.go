package sqlite_test

import (
	"context"
	"strings"
	"testing"

	"github.com/axiomantic/spellbook/internal/adapters/sqlite"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)
	ctx := context.Background()

	record := &secondary.SessionRecord{
		ID:              "SESS-001",
		Feature:         "auth-tokens",
		ProjectRoot:     "/tmp/project",
		Phase:           "configuring",
		PreferencesJSON: `{"autonomy":"autonomous"}`,
		ContextJSON:     `{}`,
		HistoryJSON:     `[]`,
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "SESS-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Feature != "auth-tokens" {
		t.Errorf("Feature = %q, want %q", got.Feature, "auth-tokens")
	}
	if got.Phase != "configuring" {
		t.Errorf("Phase = %q, want %q", got.Phase, "configuring")
	}
	if got.PreferencesJSON != `{"autonomy":"autonomous"}` {
		t.Errorf("PreferencesJSON = %q", got.PreferencesJSON)
	}
	if got.EscapeHatchJSON != "" {
		t.Errorf("EscapeHatchJSON = %q, want empty", got.EscapeHatchJSON)
	}
	if got.CreatedAt == "" {
		t.Error("CreatedAt not populated")
	}
}

func TestSessionRepository_CreateWithEscapeHatch(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)
	ctx := context.Background()

	record := &secondary.SessionRecord{
		ID:              "SESS-001",
		Feature:         "auth-tokens",
		ProjectRoot:     "/tmp/project",
		Phase:           "discovering",
		PreferencesJSON: `{}`,
		EscapeHatchJSON: `{"kind":"research","path":"docs/research.md","handling":"treat_as_ready"}`,
		ContextJSON:     `{}`,
		HistoryJSON:     `[]`,
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "SESS-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !strings.Contains(got.EscapeHatchJSON, "treat_as_ready") {
		t.Errorf("EscapeHatchJSON = %q, want escape hatch payload", got.EscapeHatchJSON)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)

	_, err := repo.GetByID(context.Background(), "SESS-999")
	if err == nil {
		t.Fatal("expected error for missing session")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want not found", err)
	}
}

func TestSessionRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)
	ctx := context.Background()

	seedSession(t, db, "SESS-001", "auth-tokens")

	record := &secondary.SessionRecord{
		ID:              "SESS-001",
		Feature:         "auth-tokens",
		ProjectRoot:     "/tmp/test-project",
		Phase:           "researching",
		PreferencesJSON: `{}`,
		ContextJSON:     `{"questions":["q1"]}`,
		HistoryJSON:     `[{"from":"configuring","to":"researching","event":"configured"}]`,
	}

	if err := repo.Update(ctx, record); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "SESS-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Phase != "researching" {
		t.Errorf("Phase = %q, want researching", got.Phase)
	}
	if !strings.Contains(got.HistoryJSON, "configured") {
		t.Errorf("HistoryJSON = %q, want transition entry", got.HistoryJSON)
	}
}

func TestSessionRepository_Update_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)

	record := &secondary.SessionRecord{
		ID:              "SESS-999",
		Feature:         "ghost",
		ProjectRoot:     "/tmp",
		Phase:           "configuring",
		PreferencesJSON: `{}`,
		ContextJSON:     `{}`,
		HistoryJSON:     `[]`,
	}

	if err := repo.Update(context.Background(), record); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSessionRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)
	ctx := context.Background()

	seedSession(t, db, "SESS-001", "feature-a")
	seedSession(t, db, "SESS-002", "feature-b")
	if _, err := db.Exec("UPDATE sessions SET phase = 'aborted' WHERE id = 'SESS-002'"); err != nil {
		t.Fatalf("failed to update seed: %v", err)
	}

	all, err := repo.List(ctx, secondary.SessionFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(all))
	}

	aborted, err := repo.List(ctx, secondary.SessionFilters{Phase: "aborted"})
	if err != nil {
		t.Fatalf("List with phase filter failed: %v", err)
	}
	if len(aborted) != 1 || aborted[0].ID != "SESS-002" {
		t.Errorf("phase filter returned %+v, want SESS-002 only", aborted)
	}

	byFeature, err := repo.List(ctx, secondary.SessionFilters{Feature: "feature-a"})
	if err != nil {
		t.Fatalf("List with feature filter failed: %v", err)
	}
	if len(byFeature) != 1 || byFeature[0].ID != "SESS-001" {
		t.Errorf("feature filter returned %+v, want SESS-001 only", byFeature)
	}

	limited, err := repo.List(ctx, secondary.SessionFilters{Limit: 1})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit filter returned %d sessions, want 1", len(limited))
	}
}

func TestSessionRepository_GetNextID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, nil)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "SESS-001" {
		t.Errorf("GetNextID = %q, want SESS-001", id)
	}

	seedSession(t, db, "SESS-001", "")

	id, err = repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "SESS-002" {
		t.Errorf("GetNextID = %q, want SESS-002", id)
	}
}

func TestSessionRepository_AuditLog(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewSessionRepository(db, sqlite.NewLogWriter(db))
	ctx := context.Background()

	record := &secondary.SessionRecord{
		ID:              "SESS-001",
		Feature:         "auth-tokens",
		ProjectRoot:     "/tmp/project",
		Phase:           "configuring",
		PreferencesJSON: `{}`,
		ContextJSON:     `{}`,
		HistoryJSON:     `[]`,
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM audit_log WHERE entity_type = 'session' AND entity_id = 'SESS-001' AND operation = 'create'",
	).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query audit log: %v", err)
	}
	if count != 1 {
		t.Errorf("audit log create entries = %d, want 1", count)
	}
}
