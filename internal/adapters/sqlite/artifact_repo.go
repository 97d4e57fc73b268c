package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// ArtifactRepository implements secondary.ArtifactRepository with SQLite.
type ArtifactRepository struct {
	db *sql.DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Put upserts an artifact. Writing the same key again overwrites in place.
func (r *ArtifactRepository) Put(ctx context.Context, artifact *secondary.ArtifactRecord) error {
	k := artifact.Key
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO artifacts (project, feature, kind, name, content)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project, feature, kind, name)
		DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		k.Project, k.Feature, k.Kind, k.Name, artifact.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to put artifact %s/%s/%s/%s: %w", k.Project, k.Feature, k.Kind, k.Name, err)
	}
	return nil
}

// Get retrieves one artifact.
func (r *ArtifactRepository) Get(ctx context.Context, key secondary.ArtifactKey) (*secondary.ArtifactRecord, error) {
	var updatedAt time.Time
	record := &secondary.ArtifactRecord{Key: key}

	err := r.db.QueryRowContext(ctx,
		`SELECT content, updated_at FROM artifacts
		WHERE project = ? AND feature = ? AND kind = ? AND name = ?`,
		key.Project, key.Feature, key.Kind, key.Name,
	).Scan(&record.Content, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artifact %s/%s/%s/%s not found", key.Project, key.Feature, key.Kind, key.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

// List retrieves all artifacts in a project+feature namespace.
func (r *ArtifactRepository) List(ctx context.Context, project, feature string) ([]*secondary.ArtifactRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT project, feature, kind, name, content, updated_at FROM artifacts
		WHERE project = ? AND feature = ?
		ORDER BY kind, name`,
		project, feature,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ArtifactRecord
	for rows.Next() {
		var updatedAt time.Time
		record := &secondary.ArtifactRecord{}
		err := rows.Scan(&record.Key.Project, &record.Key.Feature, &record.Key.Kind,
			&record.Key.Name, &record.Content, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		record.UpdatedAt = updatedAt.Format(time.RFC3339)
		records = append(records, record)
	}

	return records, rows.Err()
}

// Ensure ArtifactRepository implements the interface
var _ secondary.ArtifactRepository = (*ArtifactRepository)(nil)
