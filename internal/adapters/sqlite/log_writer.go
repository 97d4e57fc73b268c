package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// LogWriter implements secondary.LogWriter backed by the audit_log table.
type LogWriter struct {
	db *sql.DB
}

// NewLogWriter creates a new SQLite audit log writer.
func NewLogWriter(db *sql.DB) *LogWriter {
	return &LogWriter{db: db}
}

// LogCreate logs a create operation for an entity.
func (w *LogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity_type, entity_id, operation) VALUES (?, ?, 'create')`,
		entityType, entityID,
	)
	if err != nil {
		return fmt.Errorf("failed to log create: %w", err)
	}
	return nil
}

// LogUpdate logs an update operation for an entity field.
func (w *LogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity_type, entity_id, operation, field_name, old_value, new_value)
		VALUES (?, ?, 'update', ?, ?, ?)`,
		entityType, entityID, fieldName, oldValue, newValue,
	)
	if err != nil {
		return fmt.Errorf("failed to log update: %w", err)
	}
	return nil
}

// Ensure LogWriter implements the interface
var _ secondary.LogWriter = (*LogWriter)(nil)
