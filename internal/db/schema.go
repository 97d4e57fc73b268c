package db

// SchemaSQL is the complete schema for fresh spellbook installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Tests use
// it via GetSchemaSQL() so repository code referencing a column that does
// not exist here fails immediately with "no such column" instead of
// drifting silently.
const SchemaSQL = `
-- Sessions (root aggregate of one feature workflow)
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	feature TEXT NOT NULL,
	project_root TEXT NOT NULL,
	phase TEXT NOT NULL CHECK(phase IN ('configuring', 'researching', 'discovering', 'design_review', 'planning', 'plan_review', 'mode_selection', 'handoff', 'implementing', 'audit', 'finished', 'aborted')),
	preferences_json TEXT NOT NULL DEFAULT '{}',
	escape_hatch_json TEXT,
	context_json TEXT NOT NULL DEFAULT '{}',
	history_json TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_phase ON sessions(phase);
CREATE INDEX IF NOT EXISTS idx_sessions_feature ON sessions(feature);

-- Artifacts (durable key/value store, project+feature namespaced)
CREATE TABLE IF NOT EXISTS artifacts (
	project TEXT NOT NULL,
	feature TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project, feature, kind, name)
);

-- Manifests (single source of truth for distributed progress)
CREATE TABLE IF NOT EXISTS manifests (
	feature TEXT PRIMARY KEY,
	created TEXT NOT NULL,
	project_root TEXT NOT NULL,
	execution_mode TEXT NOT NULL,
	manifest_json TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Manifest track rows (per-track status with CAS transitions)
CREATE TABLE IF NOT EXISTS manifest_tracks (
	feature TEXT NOT NULL,
	track_id TEXT NOT NULL,
	name TEXT NOT NULL,
	packet TEXT NOT NULL,
	worktree TEXT NOT NULL,
	branch TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'failed')) DEFAULT 'pending',
	depends_on TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (feature, track_id),
	FOREIGN KEY (feature) REFERENCES manifests(feature) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_manifest_tracks_status ON manifest_tracks(status);

-- Escalations (tripped repeated-fix circuit breakers)
CREATE TABLE IF NOT EXISTS escalations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	feature TEXT NOT NULL,
	category TEXT NOT NULL,
	reason TEXT NOT NULL,
	attempts_json TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL CHECK(status IN ('pending', 'resolved')) DEFAULT 'pending',
	decision TEXT,
	note TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);

-- Audit log (entity mutations)
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Check if schema_version exists to determine if this is a fresh install
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install - create the modern schema directly and mark all
		// migrations as applied so they never run.
		if _, err = db.Exec(SchemaSQL); err != nil {
			return err
		}
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
