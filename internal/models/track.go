package models

// Task is one unit of work inside a track.
type Task struct {
	Description string
	Files       []string
}

// Track is an independently executable subset of a plan's tasks.
// Tracks form a DAG by DependsOn; they are created once by the
// extractor from the approved plan and are read-only thereafter.
type Track struct {
	ID        string
	Name      string
	DependsOn []string
	Tasks     []Task
	Files     []string
}

// WorkPacket is the fully self-contained rendering of one track: the
// task subset, the files the track owns, references (paths, not inline
// copies) to the shared design and plan documents, and the workspace
// the worker must use. One-to-one with Track.
type WorkPacket struct {
	Feature       string
	TrackID       string
	TrackName     string
	DependsOn     []string
	Tasks         []Task
	Files         []string
	DesignDocPath string
	PlanDocPath   string
	Branch        string
	WorkspacePath string
	ManifestPath  string
	QualityGates  []string
}
