// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import "context"

// SessionRepository defines the secondary port for session persistence.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *SessionRecord) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)

	// Update updates an existing session.
	Update(ctx context.Context, session *SessionRecord) error

	// List retrieves sessions matching the given filters.
	List(ctx context.Context, filters SessionFilters) ([]*SessionRecord, error)

	// GetNextID returns the next available session ID.
	GetNextID(ctx context.Context) (string, error)
}

// SessionRecord represents a session as stored in persistence. The
// structured aggregates (preferences, context, history) are serialized
// JSON blobs; the hot fields are real columns.
type SessionRecord struct {
	ID              string
	Feature         string
	ProjectRoot     string
	Phase           string
	PreferencesJSON string
	EscapeHatchJSON string
	ContextJSON     string
	HistoryJSON     string
	CreatedAt       string
	UpdatedAt       string
}

// SessionFilters contains filter options for querying sessions.
type SessionFilters struct {
	Phase   string
	Feature string
	Limit   int
}

// ArtifactRepository is the durable key/value artifact store. Records
// are addressed by a project+feature namespace plus kind and name.
type ArtifactRepository interface {
	// Put upserts an artifact; identical content overwrites in place.
	Put(ctx context.Context, artifact *ArtifactRecord) error

	// Get retrieves one artifact.
	Get(ctx context.Context, key ArtifactKey) (*ArtifactRecord, error)

	// List retrieves all artifacts in a project+feature namespace.
	List(ctx context.Context, project, feature string) ([]*ArtifactRecord, error)
}

// ArtifactKey addresses one artifact in the store.
type ArtifactKey struct {
	Project string
	Feature string
	Kind    string
	Name    string
}

// ArtifactRecord is one stored artifact.
type ArtifactRecord struct {
	Key       ArtifactKey
	Content   string
	UpdatedAt string
}

// ManifestRepository persists the distributed-progress manifest with
// per-track compare-and-swap status transitions.
type ManifestRepository interface {
	// Save upserts the manifest and its track rows. Existing track
	// statuses are preserved by the caller (merge before save).
	Save(ctx context.Context, record *ManifestRecord) error

	// Get retrieves the manifest for a feature.
	Get(ctx context.Context, feature string) (*ManifestRecord, error)

	// TransitionTrack atomically moves one track from one status to
	// another. When the current status does not match `from`, nothing is
	// written and the actual current status is returned - two workers can
	// never mark the same track twice.
	TransitionTrack(ctx context.Context, feature, trackID, from, to string) (*TransitionResult, error)

	// UpdateManifestJSON replaces the stored manifest body without
	// touching the track rows. The rows stay authoritative; the JSON is
	// derived from them after a status change.
	UpdateManifestJSON(ctx context.Context, feature, manifestJSON string) error
}

// ManifestRecord is the manifest as stored in persistence.
type ManifestRecord struct {
	Feature       string
	Created       string
	ProjectRoot   string
	ExecutionMode string
	ManifestJSON  string
	Tracks        []ManifestTrackRecord
}

// ManifestTrackRecord is one track-status row.
type ManifestTrackRecord struct {
	Feature   string
	TrackID   string
	Name      string
	Packet    string
	Worktree  string
	Branch    string
	Status    string
	DependsOn []string
}

// TransitionResult reports the outcome of a CAS status transition.
type TransitionResult struct {
	Applied       bool
	CurrentStatus string
}

// EscalationRepository persists circuit-breaker escalations.
type EscalationRepository interface {
	// Create persists a new escalation with its full attempt history.
	Create(ctx context.Context, escalation *EscalationRecord) error

	// GetByID retrieves an escalation by its ID.
	GetByID(ctx context.Context, id string) (*EscalationRecord, error)

	// List retrieves escalations matching the given filters.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)

	// Resolve records the decision taken for a pending escalation.
	Resolve(ctx context.Context, id, decision, note string) error

	// GetNextID returns the next available escalation ID.
	GetNextID(ctx context.Context) (string, error)
}

// EscalationRecord represents an escalation as stored in persistence.
// AttemptsJSON holds the full history of attempted fixes.
type EscalationRecord struct {
	ID           string
	SessionID    string
	Feature      string
	Category     string
	Reason       string
	AttemptsJSON string
	Status       string
	Decision     string
	Note         string
	CreatedAt    string
	ResolvedAt   string
}

// Escalation status constants.
const (
	EscalationPending  = "pending"
	EscalationResolved = "resolved"
)

// EscalationFilters contains filter options for querying escalations.
type EscalationFilters struct {
	SessionID string
	Status    string
}
