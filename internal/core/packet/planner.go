// Package packet contains the pure planning logic that renders tracks
// into self-contained work packets and the shared manifest. No I/O here;
// persistence is the packet service's job.
package packet

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/axiomantic/spellbook/internal/models"
)

// DefaultQualityGates are the per-task gates every packet carries: a
// worker may not mark its track complete until each holds.
var DefaultQualityGates = []string{
	"all tests for the track's files pass",
	"no files outside the track's declared scope were modified",
	"the track's manifest status was updated via compare-and-swap",
}

// BuildInput is everything the planner needs, pre-fetched by the caller.
type BuildInput struct {
	Feature       string
	ProjectRoot   string
	ExecutionMode models.ExecutionMode
	Tracks        []models.Track
	DesignDocPath string
	PlanDocPath   string
	Now           time.Time
}

// Build renders one packet per track plus the shared manifest. Branch
// names follow feature/<slug>/track-<id>; workspaces are sibling
// directories of the project root so no track ever shares a worktree.
// Output is deterministic for identical input except Manifest.Created.
func Build(in BuildInput) ([]models.WorkPacket, models.Manifest) {
	slug := Slug(in.Feature)
	parent := filepath.Dir(in.ProjectRoot)
	base := filepath.Base(in.ProjectRoot)

	manifest := models.Manifest{
		FormatVersion: models.ManifestFormatVersion,
		Feature:       in.Feature,
		Created:       in.Now.UTC().Format(time.RFC3339),
		ProjectRoot:   in.ProjectRoot,
		ExecutionMode: in.ExecutionMode,
	}

	packets := make([]models.WorkPacket, 0, len(in.Tracks))
	for _, tr := range in.Tracks {
		trackSlug := strings.ToLower(tr.ID)
		branch := fmt.Sprintf("feature/%s/track-%s", slug, trackSlug)
		workspace := filepath.Join(parent, fmt.Sprintf("%s-%s-track-%s", base, slug, trackSlug))
		packetFile := fmt.Sprintf("packet-%s.md", trackSlug)

		packets = append(packets, models.WorkPacket{
			Feature:       in.Feature,
			TrackID:       tr.ID,
			TrackName:     tr.Name,
			DependsOn:     tr.DependsOn,
			Tasks:         tr.Tasks,
			Files:         tr.Files,
			DesignDocPath: in.DesignDocPath,
			PlanDocPath:   in.PlanDocPath,
			Branch:        branch,
			WorkspacePath: workspace,
			ManifestPath:  filepath.Join(in.ProjectRoot, ManifestFileName),
			QualityGates:  DefaultQualityGates,
		})

		manifest.Tracks = append(manifest.Tracks, models.TrackStatus{
			ID:            tr.ID,
			Name:          tr.Name,
			Packet:        packetFile,
			Worktree:      workspace,
			Branch:        branch,
			Status:        models.TrackPending,
			DependsOn:     append([]string{}, tr.DependsOn...),
			WorkspacePath: workspace,
		})
	}

	return packets, manifest
}

// ManifestFileName is the manifest's fixed name inside the project root.
const ManifestFileName = "spellbook-manifest.json"

// Merge folds a freshly built manifest over a previous one for the same
// feature. The created timestamp and any track progress survive:
// regeneration never duplicates entries and never regresses a status.
func Merge(prev *models.Manifest, next models.Manifest) models.Manifest {
	if prev == nil || prev.Feature != next.Feature {
		return next
	}

	next.Created = prev.Created
	for i := range next.Tracks {
		old := prev.TrackByID(next.Tracks[i].ID)
		if old != nil && old.Status != models.TrackPending {
			next.Tracks[i].Status = old.Status
		}
	}
	return next
}

// Document renders the packet as the worker-facing markdown file. The
// rendering is fully determined by the packet contents, which makes
// regeneration byte-identical.
func Document(p models.WorkPacket) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Work Packet: %s / track %s\n\n", p.Feature, p.TrackID)
	fmt.Fprintf(&b, "Track: %s\n", p.TrackName)
	fmt.Fprintf(&b, "Branch: %s\n", p.Branch)
	fmt.Fprintf(&b, "Workspace: %s\n\n", p.WorkspacePath)

	b.WriteString("## Dependencies\n\n")
	if len(p.DependsOn) == 0 {
		b.WriteString("None. This track may start immediately.\n")
	} else {
		fmt.Fprintf(&b, "Before starting, check %s and confirm every track below is `completed`:\n\n", p.ManifestPath)
		for _, dep := range p.DependsOn {
			fmt.Fprintf(&b, "- track %s\n", dep)
		}
	}

	b.WriteString("\n## Tasks\n\n")
	for _, task := range p.Tasks {
		if len(task.Files) > 0 {
			fmt.Fprintf(&b, "- [ ] %s (files: %s)\n", task.Description, strings.Join(task.Files, ", "))
		} else {
			fmt.Fprintf(&b, "- [ ] %s\n", task.Description)
		}
	}

	if len(p.Files) > 0 {
		b.WriteString("\n## Owned files\n\n")
		b.WriteString("This track owns exactly these paths; touching anything else is a containment violation:\n\n")
		for _, f := range p.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\n## References\n\n")
	if p.DesignDocPath != "" {
		fmt.Fprintf(&b, "- Design: %s\n", p.DesignDocPath)
	}
	if p.PlanDocPath != "" {
		fmt.Fprintf(&b, "- Plan: %s\n", p.PlanDocPath)
	}
	fmt.Fprintf(&b, "- Manifest: %s\n", p.ManifestPath)

	b.WriteString("\n## Quality gates\n\n")
	b.WriteString("Each task must pass these before the track is marked complete:\n\n")
	for _, g := range p.QualityGates {
		fmt.Fprintf(&b, "- %s\n", g)
	}

	return b.String()
}

// CanonicalJSON serializes a value to RFC 8785 canonical JSON so that
// identical inputs always produce identical bytes.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return canonical, nil
}

// Slug converts a feature name into a branch-safe slug.
func Slug(feature string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(feature) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
