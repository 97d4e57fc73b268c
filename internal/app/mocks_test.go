package app

// ============================================================================
// Mock Implementations
// ============================================================================

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// mockSessionRepository implements secondary.SessionRepository for testing.
type mockSessionRepository struct {
	mu        sync.Mutex
	sessions  map[string]*secondary.SessionRecord
	createErr error
	updateErr error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*secondary.SessionRecord)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[id]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, fmt.Errorf("session %s not found", id)
}

func (m *mockSessionRepository) Update(ctx context.Context, session *secondary.SessionRecord) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return fmt.Errorf("session %s not found", session.ID)
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.SessionRecord
	for _, session := range m.sessions {
		if filters.Phase != "" && session.Phase != filters.Phase {
			continue
		}
		if filters.Feature != "" && session.Feature != filters.Feature {
			continue
		}
		cp := *session
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockSessionRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("SESS-%03d", len(m.sessions)+1), nil
}

// mockArtifactRepository implements secondary.ArtifactRepository for testing.
type mockArtifactRepository struct {
	mu        sync.Mutex
	artifacts map[secondary.ArtifactKey]*secondary.ArtifactRecord
}

func newMockArtifactRepository() *mockArtifactRepository {
	return &mockArtifactRepository{artifacts: make(map[secondary.ArtifactKey]*secondary.ArtifactRecord)}
}

func (m *mockArtifactRepository) Put(ctx context.Context, artifact *secondary.ArtifactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *artifact
	m.artifacts[artifact.Key] = &cp
	return nil
}

func (m *mockArtifactRepository) Get(ctx context.Context, key secondary.ArtifactKey) (*secondary.ArtifactRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if artifact, ok := m.artifacts[key]; ok {
		cp := *artifact
		return &cp, nil
	}
	return nil, errors.New("artifact not found")
}

func (m *mockArtifactRepository) List(ctx context.Context, project, feature string) ([]*secondary.ArtifactRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.ArtifactRecord
	for key, artifact := range m.artifacts {
		if key.Project == project && key.Feature == feature {
			cp := *artifact
			result = append(result, &cp)
		}
	}
	return result, nil
}

// mockManifestRepository implements secondary.ManifestRepository for testing.
type mockManifestRepository struct {
	mu        sync.Mutex
	manifests map[string]*secondary.ManifestRecord
	saveErr   error
}

func newMockManifestRepository() *mockManifestRepository {
	return &mockManifestRepository{manifests: make(map[string]*secondary.ManifestRecord)}
}

func (m *mockManifestRepository) Save(ctx context.Context, record *secondary.ManifestRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	cp.Tracks = append([]secondary.ManifestTrackRecord{}, record.Tracks...)
	m.manifests[record.Feature] = &cp
	return nil
}

func (m *mockManifestRepository) Get(ctx context.Context, feature string) (*secondary.ManifestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.manifests[feature]; ok {
		cp := *record
		cp.Tracks = append([]secondary.ManifestTrackRecord{}, record.Tracks...)
		return &cp, nil
	}
	return nil, fmt.Errorf("manifest for feature %s not found", feature)
}

func (m *mockManifestRepository) TransitionTrack(ctx context.Context, feature, trackID, from, to string) (*secondary.TransitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.manifests[feature]
	if !ok {
		return nil, fmt.Errorf("manifest for feature %s not found", feature)
	}
	for i := range record.Tracks {
		if record.Tracks[i].TrackID != trackID {
			continue
		}
		if record.Tracks[i].Status != from {
			return &secondary.TransitionResult{Applied: false, CurrentStatus: record.Tracks[i].Status}, nil
		}
		record.Tracks[i].Status = to
		return &secondary.TransitionResult{Applied: true, CurrentStatus: to}, nil
	}
	return nil, fmt.Errorf("track %s not found", trackID)
}

func (m *mockManifestRepository) UpdateManifestJSON(ctx context.Context, feature, manifestJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.manifests[feature]
	if !ok {
		return fmt.Errorf("manifest for feature %s not found", feature)
	}
	record.ManifestJSON = manifestJSON
	return nil
}

// mockEscalationRepository implements secondary.EscalationRepository for testing.
type mockEscalationRepository struct {
	mu          sync.Mutex
	escalations map[string]*secondary.EscalationRecord
}

func newMockEscalationRepository() *mockEscalationRepository {
	return &mockEscalationRepository{escalations: make(map[string]*secondary.EscalationRecord)}
}

func (m *mockEscalationRepository) Create(ctx context.Context, escalation *secondary.EscalationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *escalation
	if cp.Status == "" {
		cp.Status = secondary.EscalationPending
	}
	m.escalations[escalation.ID] = &cp
	return nil
}

func (m *mockEscalationRepository) GetByID(ctx context.Context, id string) (*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if escalation, ok := m.escalations[id]; ok {
		cp := *escalation
		return &cp, nil
	}
	return nil, fmt.Errorf("escalation %s not found", id)
}

func (m *mockEscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.EscalationRecord
	for _, escalation := range m.escalations {
		if filters.SessionID != "" && escalation.SessionID != filters.SessionID {
			continue
		}
		if filters.Status != "" && escalation.Status != filters.Status {
			continue
		}
		cp := *escalation
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockEscalationRepository) Resolve(ctx context.Context, id, decision, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	escalation, ok := m.escalations[id]
	if !ok || escalation.Status != secondary.EscalationPending {
		return fmt.Errorf("escalation %s not found or already resolved", id)
	}
	escalation.Status = secondary.EscalationResolved
	escalation.Decision = decision
	escalation.Note = note
	return nil
}

func (m *mockEscalationRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("ESC-%03d", len(m.escalations)+1), nil
}

// mockWorkspace implements secondary.WorkspaceAdapter in memory.
type mockWorkspace struct {
	mu          sync.Mutex
	files       map[string][]byte
	worktrees   map[string]bool
	worktreeErr error
}

func newMockWorkspace() *mockWorkspace {
	return &mockWorkspace{files: make(map[string][]byte), worktrees: make(map[string]bool)}
}

func (m *mockWorkspace) CreateWorktree(ctx context.Context, repoRoot, branchName, targetPath string) error {
	if m.worktreeErr != nil {
		return m.worktreeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worktrees[targetPath] = true
	return nil
}

func (m *mockWorkspace) RemoveWorktree(ctx context.Context, repoRoot, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worktrees, path)
	return nil
}

func (m *mockWorkspace) WorktreeExists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worktrees[path], nil
}

func (m *mockWorkspace) WriteFile(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte{}, content...)
	return nil
}

func (m *mockWorkspace) ReadFile(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if content, ok := m.files[path]; ok {
		return append([]byte{}, content...), nil
	}
	return nil, fmt.Errorf("file %s not found", path)
}

func (m *mockWorkspace) CreateDirectory(ctx context.Context, path string) error {
	return nil
}

func (m *mockWorkspace) FileExists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

// mockTmux implements secondary.TmuxAdapter for testing.
type mockTmux struct {
	mu        sync.Mutex
	available bool
	sessions  map[string]string // name -> command
	spawnErr  error
}

func newMockTmux() *mockTmux {
	return &mockTmux{available: true, sessions: make(map[string]string)}
}

func (m *mockTmux) Available(ctx context.Context) bool { return m.available }

func (m *mockTmux) SpawnWorkerSession(ctx context.Context, sessionName, workingDir, command string) error {
	if m.spawnErr != nil {
		return m.spawnErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionName] = command
	return nil
}

func (m *mockTmux) SessionExists(ctx context.Context, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[name]
	return ok
}

func (m *mockTmux) AttachInstructions(sessionName string) string {
	return "tmux attach -t " + sessionName
}

// Capability fakes. Each records calls so tests can assert retry counts.

type mockResearch struct {
	mu       sync.Mutex
	calls    int
	findings []models.Finding
	errs     []error // consumed per call; nil past the end
}

func (m *mockResearch) Research(ctx context.Context, questions []string) ([]models.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if m.findings != nil {
		return m.findings, nil
	}
	findings := make([]models.Finding, 0, len(questions))
	for _, q := range questions {
		findings = append(findings, models.Finding{
			Question:   q,
			Answer:     "answered",
			Confidence: models.ConfidenceHigh,
			Evidence:   []models.Reference{{Source: "code", Location: "main.go"}},
		})
	}
	return findings, nil
}

type mockReview struct {
	findings []secondary.ReviewFinding
	err      error
	calls    int
}

func (m *mockReview) Review(ctx context.Context, artifact secondary.ArtifactRef) ([]secondary.ReviewFinding, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.findings, nil
}

type mockImplement struct {
	mu       sync.Mutex
	calls    []string // task descriptions in call order
	failTask string   // task description that fails its tests
	err      error
}

func (m *mockImplement) Implement(ctx context.Context, task models.Task, workspacePath string) (*secondary.ImplementResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, task.Description)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if task.Description == m.failTask {
		return &secondary.ImplementResult{TestsPassed: false, TestOutput: "assertion failed"}, nil
	}
	return &secondary.ImplementResult{TestsPassed: true, FilesChanged: task.Files}, nil
}

type mockMerge struct {
	mu      sync.Mutex
	calls   []string // track branches in merge order
	results map[string]*secondary.MergeResult
}

func newMockMerge() *mockMerge {
	return &mockMerge{results: make(map[string]*secondary.MergeResult)}
}

func (m *mockMerge) Merge(ctx context.Context, baseBranch, trackBranch string, contract secondary.MergeContract) (*secondary.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, trackBranch)
	if result, ok := m.results[contract.TrackID]; ok {
		return result, nil
	}
	return &secondary.MergeResult{Status: secondary.MergeClean}, nil
}

type mockVerify struct {
	mu      sync.Mutex
	calls   int
	results []*secondary.VerifyResult // consumed per call; pass past the end
}

func (m *mockVerify) Verify(ctx context.Context, projectRoot string) (*secondary.VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.results) > 0 {
		result := m.results[0]
		m.results = m.results[1:]
		return result, nil
	}
	return &secondary.VerifyResult{Passed: true}, nil
}
