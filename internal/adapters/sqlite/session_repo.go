// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with SQLite.
type SessionRepository struct {
	db        *sql.DB
	logWriter secondary.LogWriter
}

// NewSessionRepository creates a new SQLite session repository.
// logWriter is optional - if nil, no audit logging is performed.
func NewSessionRepository(db *sql.DB, logWriter secondary.LogWriter) *SessionRepository {
	return &SessionRepository{db: db, logWriter: logWriter}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	var hatch sql.NullString
	if session.EscapeHatchJSON != "" {
		hatch = sql.NullString{String: session.EscapeHatchJSON, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, feature, project_root, phase, preferences_json, escape_hatch_json, context_json, history_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Feature, session.ProjectRoot, session.Phase,
		session.PreferencesJSON, hatch, session.ContextJSON, session.HistoryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogCreate(ctx, "session", session.ID)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	var (
		hatch     sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.SessionRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, feature, project_root, phase, preferences_json, escape_hatch_json, context_json, history_json, created_at, updated_at
		FROM sessions WHERE id = ?`,
		id,
	).Scan(&record.ID, &record.Feature, &record.ProjectRoot, &record.Phase,
		&record.PreferencesJSON, &hatch, &record.ContextJSON, &record.HistoryJSON,
		&createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	record.EscapeHatchJSON = hatch.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

// Update updates an existing session.
func (r *SessionRepository) Update(ctx context.Context, session *secondary.SessionRecord) error {
	var hatch sql.NullString
	if session.EscapeHatchJSON != "" {
		hatch = sql.NullString{String: session.EscapeHatchJSON, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET feature = ?, project_root = ?, phase = ?, preferences_json = ?,
			escape_hatch_json = ?, context_json = ?, history_json = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		session.Feature, session.ProjectRoot, session.Phase, session.PreferencesJSON,
		hatch, session.ContextJSON, session.HistoryJSON, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", session.ID)
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogUpdate(ctx, "session", session.ID, "phase", "", session.Phase)
	}

	return nil
}

// List retrieves sessions matching the given filters.
func (r *SessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	query := `SELECT id, feature, project_root, phase, preferences_json, escape_hatch_json, context_json, history_json, created_at, updated_at
		FROM sessions WHERE 1=1`
	args := []any{}

	if filters.Phase != "" {
		query += " AND phase = ?"
		args = append(args, filters.Phase)
	}

	if filters.Feature != "" {
		query += " AND feature = ?"
		args = append(args, filters.Feature)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []*secondary.SessionRecord
	for rows.Next() {
		var (
			hatch     sql.NullString
			createdAt time.Time
			updatedAt time.Time
		)
		record := &secondary.SessionRecord{}
		err := rows.Scan(&record.ID, &record.Feature, &record.ProjectRoot, &record.Phase,
			&record.PreferencesJSON, &hatch, &record.ContextJSON, &record.HistoryJSON,
			&createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		record.EscapeHatchJSON = hatch.String
		record.CreatedAt = createdAt.Format(time.RFC3339)
		record.UpdatedAt = updatedAt.Format(time.RFC3339)
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetNextID returns the next available session ID.
func (r *SessionRepository) GetNextID(ctx context.Context) (string, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count sessions: %w", err)
	}
	return fmt.Sprintf("SESS-%03d", count+1), nil
}

// Ensure SessionRepository implements the interface
var _ secondary.SessionRepository = (*SessionRepository)(nil)
