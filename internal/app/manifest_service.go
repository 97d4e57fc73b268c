package app

import (
	"context"
	"fmt"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// ManifestServiceImpl implements the worker-facing manifest surface.
type ManifestServiceImpl struct {
	manifestRepo secondary.ManifestRepository
	workspace    secondary.WorkspaceAdapter
}

// NewManifestService creates a new ManifestService with injected dependencies.
func NewManifestService(manifestRepo secondary.ManifestRepository, workspace secondary.WorkspaceAdapter) *ManifestServiceImpl {
	return &ManifestServiceImpl{manifestRepo: manifestRepo, workspace: workspace}
}

// GetManifest retrieves the manifest for a feature.
func (s *ManifestServiceImpl) GetManifest(ctx context.Context, feature string) (*models.Manifest, error) {
	record, err := s.manifestRepo.Get(ctx, feature)
	if err != nil {
		return nil, err
	}
	return recordToManifest(record)
}

// UpdateTrackStatus performs a compare-and-swap status transition for
// one track. Losing a race is reported in the result, never an error.
func (s *ManifestServiceImpl) UpdateTrackStatus(ctx context.Context, req primary.UpdateTrackStatusRequest) (*secondary.TransitionResult, error) {
	if err := validTransition(req.From, req.To); err != nil {
		return nil, err
	}
	result, err := s.manifestRepo.TransitionTrack(ctx, req.Feature, req.TrackID, string(req.From), string(req.To))
	if err != nil {
		return nil, err
	}
	if result.Applied {
		if err := syncManifestArtifacts(ctx, s.manifestRepo, s.workspace, req.Feature); err != nil {
			return nil, fmt.Errorf("track %s moved to %s but manifest rewrite failed: %w", req.TrackID, req.To, err)
		}
	}
	return result, nil
}

// validTransition enforces the track lifecycle: pending -> in_progress
// -> completed|failed. A failed track may be reset to pending for
// retry; completed is final.
func validTransition(from, to models.TrackState) error {
	switch from {
	case models.TrackPending:
		if to == models.TrackInProgress {
			return nil
		}
	case models.TrackInProgress:
		if to == models.TrackCompleted || to == models.TrackFailed {
			return nil
		}
	case models.TrackFailed:
		if to == models.TrackPending {
			return nil
		}
	}
	return fmt.Errorf("invalid track transition %s -> %s", from, to)
}

// Ensure ManifestServiceImpl implements the interface
var _ primary.ManifestService = (*ManifestServiceImpl)(nil)
