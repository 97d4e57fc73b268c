package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// EscalationRepository implements secondary.EscalationRepository with SQLite.
type EscalationRepository struct {
	db        *sql.DB
	logWriter secondary.LogWriter
}

// NewEscalationRepository creates a new SQLite escalation repository.
// logWriter is optional - if nil, no audit logging is performed.
func NewEscalationRepository(db *sql.DB, logWriter secondary.LogWriter) *EscalationRepository {
	return &EscalationRepository{db: db, logWriter: logWriter}
}

// Create persists a new escalation.
func (r *EscalationRepository) Create(ctx context.Context, escalation *secondary.EscalationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO escalations (id, session_id, feature, category, reason, attempts_json, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		escalation.ID, escalation.SessionID, escalation.Feature, escalation.Category,
		escalation.Reason, escalation.AttemptsJSON, secondary.EscalationPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create escalation: %w", err)
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogCreate(ctx, "escalation", escalation.ID)
	}

	return nil
}

// GetByID retrieves an escalation by its ID.
func (r *EscalationRepository) GetByID(ctx context.Context, id string) (*secondary.EscalationRecord, error) {
	record, err := scanEscalation(r.db.QueryRowContext(ctx,
		`SELECT id, session_id, feature, category, reason, attempts_json, status, decision, note, created_at, resolved_at
		FROM escalations WHERE id = ?`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return record, nil
}

// List retrieves escalations matching the given filters.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := `SELECT id, session_id, feature, category, reason, attempts_json, status, decision, note, created_at, resolved_at
		FROM escalations WHERE 1=1`
	args := []any{}

	if filters.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filters.SessionID)
	}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var records []*secondary.EscalationRecord
	for rows.Next() {
		record, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Resolve records the decision taken for a pending escalation.
func (r *EscalationRepository) Resolve(ctx context.Context, id, decision, note string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = ?, decision = ?, note = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		secondary.EscalationResolved, decision, note, id, secondary.EscalationPending,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %s not found or already resolved", id)
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogUpdate(ctx, "escalation", id, "decision", "", decision)
	}

	return nil
}

// GetNextID returns the next available escalation ID.
func (r *EscalationRepository) GetNextID(ctx context.Context) (string, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM escalations").Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count escalations: %w", err)
	}
	return fmt.Sprintf("ESC-%03d", count+1), nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEscalation(row scanner) (*secondary.EscalationRecord, error) {
	var (
		decision   sql.NullString
		note       sql.NullString
		createdAt  time.Time
		resolvedAt sql.NullTime
	)

	record := &secondary.EscalationRecord{}
	err := row.Scan(&record.ID, &record.SessionID, &record.Feature, &record.Category,
		&record.Reason, &record.AttemptsJSON, &record.Status, &decision, &note,
		&createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	record.Decision = decision.String
	record.Note = note.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	if resolvedAt.Valid {
		record.ResolvedAt = resolvedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

// Ensure EscalationRepository implements the interface
var _ secondary.EscalationRepository = (*EscalationRepository)(nil)
