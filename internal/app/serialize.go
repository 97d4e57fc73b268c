package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// sessionToRecord serializes a session aggregate into its storage shape.
// The structured parts travel as JSON blobs; hot fields become columns.
func sessionToRecord(s *models.Session) (*secondary.SessionRecord, error) {
	prefs, err := json.Marshal(s.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	sctx, err := json.Marshal(s.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	record := &secondary.SessionRecord{
		ID:              s.ID,
		Feature:         s.Feature,
		ProjectRoot:     s.ProjectRoot,
		Phase:           string(s.Phase),
		PreferencesJSON: string(prefs),
		ContextJSON:     string(sctx),
		HistoryJSON:     string(history),
	}

	if s.EscapeHatch != nil {
		hatch, err := json.Marshal(s.EscapeHatch)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal escape hatch: %w", err)
		}
		record.EscapeHatchJSON = string(hatch)
	}

	return record, nil
}

// recordToSession deserializes a storage record back into the aggregate.
func recordToSession(r *secondary.SessionRecord) (*models.Session, error) {
	s := &models.Session{
		ID:          r.ID,
		Feature:     r.Feature,
		ProjectRoot: r.ProjectRoot,
		Phase:       models.Phase(r.Phase),
	}

	if err := json.Unmarshal([]byte(r.PreferencesJSON), &s.Preferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ContextJSON), &s.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.HistoryJSON), &s.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history for %s: %w", r.ID, err)
	}
	if r.EscapeHatchJSON != "" {
		s.EscapeHatch = &models.EscapeHatch{}
		if err := json.Unmarshal([]byte(r.EscapeHatchJSON), s.EscapeHatch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal escape hatch for %s: %w", r.ID, err)
		}
	}

	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			s.CreatedAt = t
		}
	}
	if r.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
			s.UpdatedAt = t
		}
	}

	return s, nil
}

// manifestToRecord serializes a manifest with its canonical JSON body.
func manifestToRecord(m models.Manifest, manifestJSON []byte) *secondary.ManifestRecord {
	record := &secondary.ManifestRecord{
		Feature:       m.Feature,
		Created:       m.Created,
		ProjectRoot:   m.ProjectRoot,
		ExecutionMode: string(m.ExecutionMode),
		ManifestJSON:  string(manifestJSON),
	}
	for _, t := range m.Tracks {
		record.Tracks = append(record.Tracks, secondary.ManifestTrackRecord{
			Feature:   m.Feature,
			TrackID:   t.ID,
			Name:      t.Name,
			Packet:    t.Packet,
			Worktree:  t.Worktree,
			Branch:    t.Branch,
			Status:    string(t.Status),
			DependsOn: t.DependsOn,
		})
	}
	return record
}

// recordToManifest reconstructs a manifest from storage. The track rows
// are authoritative for statuses; the stored JSON provides the envelope.
func recordToManifest(r *secondary.ManifestRecord) (*models.Manifest, error) {
	var m models.Manifest
	if err := json.Unmarshal([]byte(r.ManifestJSON), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest for %s: %w", r.Feature, err)
	}

	for _, row := range r.Tracks {
		if ts := m.TrackByID(row.TrackID); ts != nil {
			ts.Status = models.TrackState(row.Status)
		}
	}

	return &m, nil
}

// recordToEscalation deserializes an escalation with its attempt history.
func recordToEscalation(r *secondary.EscalationRecord) (*primary.Escalation, error) {
	e := &primary.Escalation{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Feature:    r.Feature,
		Category:   r.Category,
		Reason:     r.Reason,
		Status:     r.Status,
		Decision:   r.Decision,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
	if r.AttemptsJSON != "" {
		if err := json.Unmarshal([]byte(r.AttemptsJSON), &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempts for %s: %w", r.ID, err)
		}
	}
	return e, nil
}
