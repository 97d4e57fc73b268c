package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// ManifestRepository implements secondary.ManifestRepository with SQLite.
type ManifestRepository struct {
	db        *sql.DB
	logWriter secondary.LogWriter
}

// NewManifestRepository creates a new SQLite manifest repository.
// logWriter is optional - if nil, no audit logging is performed.
func NewManifestRepository(db *sql.DB, logWriter secondary.LogWriter) *ManifestRepository {
	return &ManifestRepository{db: db, logWriter: logWriter}
}

// Save upserts the manifest and its track rows in one transaction.
// Track rows are replaced wholesale - callers merge old statuses into the
// record before saving so regeneration never loses progress.
func (r *ManifestRepository) Save(ctx context.Context, record *secondary.ManifestRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO manifests (feature, created, project_root, execution_mode, manifest_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(feature)
		DO UPDATE SET created = excluded.created, project_root = excluded.project_root,
			execution_mode = excluded.execution_mode, manifest_json = excluded.manifest_json,
			updated_at = CURRENT_TIMESTAMP`,
		record.Feature, record.Created, record.ProjectRoot, record.ExecutionMode, record.ManifestJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM manifest_tracks WHERE feature = ?", record.Feature); err != nil {
		return fmt.Errorf("failed to clear manifest tracks: %w", err)
	}

	for _, track := range record.Tracks {
		dependsOn, err := json.Marshal(track.DependsOn)
		if err != nil {
			return fmt.Errorf("failed to marshal depends_on for track %s: %w", track.TrackID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO manifest_tracks (feature, track_id, name, packet, worktree, branch, status, depends_on)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Feature, track.TrackID, track.Name, track.Packet,
			track.Worktree, track.Branch, track.Status, string(dependsOn),
		)
		if err != nil {
			return fmt.Errorf("failed to save manifest track %s: %w", track.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogUpdate(ctx, "manifest", record.Feature, "tracks", "", fmt.Sprintf("%d", len(record.Tracks)))
	}

	return nil
}

// Get retrieves the manifest for a feature including its track rows.
func (r *ManifestRepository) Get(ctx context.Context, feature string) (*secondary.ManifestRecord, error) {
	record := &secondary.ManifestRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT feature, created, project_root, execution_mode, manifest_json
		FROM manifests WHERE feature = ?`,
		feature,
	).Scan(&record.Feature, &record.Created, &record.ProjectRoot, &record.ExecutionMode, &record.ManifestJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("manifest for feature %s not found", feature)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT feature, track_id, name, packet, worktree, branch, status, depends_on
		FROM manifest_tracks WHERE feature = ?
		ORDER BY track_id`,
		feature,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			track     secondary.ManifestTrackRecord
			dependsOn string
		)
		err := rows.Scan(&track.Feature, &track.TrackID, &track.Name, &track.Packet,
			&track.Worktree, &track.Branch, &track.Status, &dependsOn)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manifest track: %w", err)
		}
		if err := json.Unmarshal([]byte(dependsOn), &track.DependsOn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal depends_on for track %s: %w", track.TrackID, err)
		}
		record.Tracks = append(record.Tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return record, nil
}

// TransitionTrack atomically moves one track status with compare-and-swap
// semantics. The UPDATE only fires when the current status matches `from`,
// so two workers racing to complete the same track cannot both win.
func (r *ManifestRepository) TransitionTrack(ctx context.Context, feature, trackID, from, to string) (*secondary.TransitionResult, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE manifest_tracks SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE feature = ? AND track_id = ? AND status = ?`,
		to, feature, trackID, from,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transition track %s: %w", trackID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check transition result: %w", err)
	}

	if affected == 0 {
		var current string
		err := r.db.QueryRowContext(ctx,
			"SELECT status FROM manifest_tracks WHERE feature = ? AND track_id = ?",
			feature, trackID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("track %s not found in manifest for feature %s", trackID, feature)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read track status: %w", err)
		}
		return &secondary.TransitionResult{Applied: false, CurrentStatus: current}, nil
	}

	if r.logWriter != nil {
		_ = r.logWriter.LogUpdate(ctx, "manifest_track", feature+"/"+trackID, "status", from, to)
	}

	return &secondary.TransitionResult{Applied: true, CurrentStatus: to}, nil
}

// UpdateManifestJSON replaces the stored manifest body. Track rows are
// left alone - they are the source of truth the JSON is derived from.
func (r *ManifestRepository) UpdateManifestJSON(ctx context.Context, feature, manifestJSON string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE manifests SET manifest_json = ?, updated_at = CURRENT_TIMESTAMP WHERE feature = ?`,
		manifestJSON, feature,
	)
	if err != nil {
		return fmt.Errorf("failed to update manifest json: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check manifest json update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("manifest for feature %s not found", feature)
	}
	return nil
}

// Ensure ManifestRepository implements the interface
var _ secondary.ManifestRepository = (*ManifestRepository)(nil)
