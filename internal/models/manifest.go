package models

// ManifestFormatVersion is the wire format version of the manifest file.
const ManifestFormatVersion = "1.0"

// TrackState enumerates the lifecycle of a track in the manifest.
type TrackState string

const (
	TrackPending    TrackState = "pending"
	TrackInProgress TrackState = "in_progress"
	TrackCompleted  TrackState = "completed"
	TrackFailed     TrackState = "failed"
)

// Terminal reports whether the state ends a track's execution.
func (s TrackState) Terminal() bool {
	return s == TrackCompleted || s == TrackFailed
}

// TrackStatus is one track's entry in the manifest. Workers read the
// whole manifest but update only their own track's status.
type TrackStatus struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Packet        string     `json:"packet"`
	Worktree      string     `json:"worktree"`
	Branch        string     `json:"branch"`
	Status        TrackState `json:"status"`
	DependsOn     []string   `json:"depends_on"`
	WorkspacePath string     `json:"-"`
}

// Manifest is the single source of truth for distributed progress and
// the wire contract between the orchestrator and out-of-process workers.
type Manifest struct {
	FormatVersion string        `json:"format_version"`
	Feature       string        `json:"feature"`
	Created       string        `json:"created"`
	ProjectRoot   string        `json:"project_root"`
	ExecutionMode ExecutionMode `json:"execution_mode"`
	Tracks        []TrackStatus `json:"tracks"`
}

// TrackByID returns the manifest entry for a track, or nil.
func (m *Manifest) TrackByID(id string) *TrackStatus {
	for i := range m.Tracks {
		if m.Tracks[i].ID == id {
			return &m.Tracks[i]
		}
	}
	return nil
}

// DependenciesCompleted reports whether every dependency of the given
// track is completed. Packets are only handed to workers once this holds.
func (m *Manifest) DependenciesCompleted(id string) bool {
	ts := m.TrackByID(id)
	if ts == nil {
		return false
	}
	for _, dep := range ts.DependsOn {
		depStatus := m.TrackByID(dep)
		if depStatus == nil || depStatus.Status != TrackCompleted {
			return false
		}
	}
	return true
}
