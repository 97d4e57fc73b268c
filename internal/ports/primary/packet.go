package primary

import (
	"context"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// PacketService extracts tracks from the approved plan and renders the
// work packets plus the shared manifest.
type PacketService interface {
	// ExtractTracks parses the session's plan into a validated DAG.
	ExtractTracks(ctx context.Context, sessionID string) ([]models.Track, [][]string, error)

	// Generate renders and persists all work packets and the manifest.
	// Idempotent: regenerating with unchanged input rewrites identical
	// content and never regresses track statuses.
	Generate(ctx context.Context, req GeneratePacketsRequest) (*GeneratePacketsResponse, error)
}

// GeneratePacketsRequest identifies the session whose plan to render.
type GeneratePacketsRequest struct {
	SessionID string
}

// GeneratePacketsResponse lists what was written where.
type GeneratePacketsResponse struct {
	Packets      []models.WorkPacket
	Manifest     models.Manifest
	PacketPaths  []string
	ManifestPath string
}

// ManifestService is the worker-facing surface of the manifest: reading
// progress and transitioning one's own track status.
type ManifestService interface {
	// GetManifest retrieves the manifest for a feature.
	GetManifest(ctx context.Context, feature string) (*models.Manifest, error)

	// UpdateTrackStatus performs a compare-and-swap status transition
	// for one track. Losing a race is reported, never an error.
	UpdateTrackStatus(ctx context.Context, req UpdateTrackStatusRequest) (*secondary.TransitionResult, error)
}

// UpdateTrackStatusRequest is one CAS transition attempt.
type UpdateTrackStatusRequest struct {
	Feature string
	TrackID string
	From    models.TrackState
	To      models.TrackState
}
