package app

import (
	"context"
	"path/filepath"

	"github.com/axiomantic/spellbook/internal/core/packet"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// syncManifestArtifacts rebuilds the stored manifest JSON and rewrites
// the on-disk manifest from the track rows after an applied status
// transition. Workers that poll the file for their dependencies would
// otherwise read statuses frozen at generation time.
func syncManifestArtifacts(ctx context.Context, repo secondary.ManifestRepository, workspace secondary.WorkspaceAdapter, feature string) error {
	record, err := repo.Get(ctx, feature)
	if err != nil {
		return err
	}
	manifest, err := recordToManifest(record)
	if err != nil {
		return err
	}
	data, err := packet.CanonicalJSON(*manifest)
	if err != nil {
		return err
	}
	if err := repo.UpdateManifestJSON(ctx, feature, string(data)); err != nil {
		return err
	}
	return workspace.WriteFile(ctx, filepath.Join(record.ProjectRoot, packet.ManifestFileName), data)
}
