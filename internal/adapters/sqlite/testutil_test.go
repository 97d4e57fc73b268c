// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/axiomantic/spellbook/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query (including concurrent ones) sees the same database.
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSession inserts a test session and returns its ID.
func seedSession(t *testing.T, db *sql.DB, id, feature string) string {
	t.Helper()
	if id == "" {
		id = "SESS-001"
	}
	if feature == "" {
		feature = "test-feature"
	}
	_, err := db.Exec(
		`INSERT INTO sessions (id, feature, project_root, phase, preferences_json, context_json, history_json)
		VALUES (?, ?, '/tmp/test-project', 'configuring', '{}', '{}', '[]')`,
		id, feature,
	)
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return id
}

// seedManifest inserts a test manifest (without track rows) and returns the feature.
func seedManifest(t *testing.T, db *sql.DB, feature string) string {
	t.Helper()
	if feature == "" {
		feature = "test-feature"
	}
	_, err := db.Exec(
		`INSERT INTO manifests (feature, created, project_root, execution_mode, manifest_json)
		VALUES (?, '2026-01-01T00:00:00Z', '/tmp/test-project', 'distributed', '{}')`,
		feature,
	)
	if err != nil {
		t.Fatalf("failed to seed manifest: %v", err)
	}
	return feature
}

// seedManifestTrack inserts a test track row under an existing manifest.
func seedManifestTrack(t *testing.T, db *sql.DB, feature, trackID, status string) {
	t.Helper()
	if status == "" {
		status = "pending"
	}
	_, err := db.Exec(
		`INSERT INTO manifest_tracks (feature, track_id, name, packet, worktree, branch, status, depends_on)
		VALUES (?, ?, 'Track '||?, 'packet-'||?||'.md', '/tmp/wt-'||?, 'feature/test/track-'||?, ?, '[]')`,
		feature, trackID, trackID, trackID, trackID, trackID, status,
	)
	if err != nil {
		t.Fatalf("failed to seed manifest track: %v", err)
	}
}
