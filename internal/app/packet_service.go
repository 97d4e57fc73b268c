package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/axiomantic/spellbook/internal/core/packet"
	"github.com/axiomantic/spellbook/internal/core/trackgraph"
	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// PacketServiceImpl implements the PacketService interface: plan in,
// packets and manifest out, idempotently.
type PacketServiceImpl struct {
	sessionRepo  secondary.SessionRepository
	manifestRepo secondary.ManifestRepository
	workspace    secondary.WorkspaceAdapter
	now          func() time.Time
}

// NewPacketService creates a new PacketService with injected dependencies.
func NewPacketService(
	sessionRepo secondary.SessionRepository,
	manifestRepo secondary.ManifestRepository,
	workspace secondary.WorkspaceAdapter,
) *PacketServiceImpl {
	return &PacketServiceImpl{
		sessionRepo:  sessionRepo,
		manifestRepo: manifestRepo,
		workspace:    workspace,
		now:          time.Now,
	}
}

// ExtractTracks parses the session's plan into a validated DAG and the
// execution rounds it implies.
func (s *PacketServiceImpl) ExtractTracks(ctx context.Context, sessionID string) ([]models.Track, [][]string, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	tracks, err := trackgraph.Extract(session.Context.PlanText)
	if err != nil {
		return nil, nil, err
	}
	rounds, err := trackgraph.Rounds(tracks)
	if err != nil {
		return nil, nil, err
	}
	return tracks, rounds, nil
}

// Generate renders and persists all work packets and the manifest.
// Regenerating with unchanged input rewrites byte-identical content;
// existing track progress is merged in and never regressed.
func (s *PacketServiceImpl) Generate(ctx context.Context, req primary.GeneratePacketsRequest) (*primary.GeneratePacketsResponse, error) {
	session, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	tracks, err := trackgraph.Extract(session.Context.PlanText)
	if err != nil {
		return nil, fmt.Errorf("plan does not parse into tracks: %w", err)
	}

	mode := models.ModeDistributed
	if session.Phase == models.PhaseImplementing {
		mode = models.ModeDelegated
	}

	packets, manifest := packet.Build(packet.BuildInput{
		Feature:       session.Feature,
		ProjectRoot:   session.ProjectRoot,
		ExecutionMode: mode,
		Tracks:        tracks,
		DesignDocPath: session.Context.DesignDocPath,
		PlanDocPath:   session.Context.PlanDocPath,
		Now:           s.now(),
	})

	// Fold existing progress in before anything is written.
	if prev, err := s.manifestRepo.Get(ctx, session.Feature); err == nil {
		prevManifest, err := recordToManifest(prev)
		if err != nil {
			return nil, err
		}
		manifest = packet.Merge(prevManifest, manifest)
	}

	packetsDir := filepath.Join(session.ProjectRoot, ".spellbook", "packets")
	paths := make([]string, 0, len(packets))
	for i, p := range packets {
		path := filepath.Join(packetsDir, manifest.Tracks[i].Packet)
		if err := s.workspace.WriteFile(ctx, path, []byte(packet.Document(p))); err != nil {
			return nil, fmt.Errorf("failed to write packet for track %s: %w", p.TrackID, err)
		}
		paths = append(paths, path)
	}

	manifestJSON, err := packet.CanonicalJSON(manifest)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(session.ProjectRoot, packet.ManifestFileName)
	if err := s.workspace.WriteFile(ctx, manifestPath, manifestJSON); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := s.manifestRepo.Save(ctx, manifestToRecord(manifest, manifestJSON)); err != nil {
		return nil, err
	}

	return &primary.GeneratePacketsResponse{
		Packets:      packets,
		Manifest:     manifest,
		PacketPaths:  paths,
		ManifestPath: manifestPath,
	}, nil
}

// Ensure PacketServiceImpl implements the interface
var _ primary.PacketService = (*PacketServiceImpl)(nil)

func (s *PacketServiceImpl) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session, err := recordToSession(record)
	if err != nil {
		return nil, err
	}
	if session.Context.PlanText == "" {
		if session.Context.PlanDocPath == "" {
			return nil, fmt.Errorf("session %s has no plan", session.ID)
		}
		content, err := s.workspace.ReadFile(ctx, session.Context.PlanDocPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		session.Context.PlanText = string(content)
	}
	return session, nil
}
