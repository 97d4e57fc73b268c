// Package worker shells out to a configured agent command for every
// capability call. The orchestrator never interprets feature content
// itself; it sends a JSON request on stdin and reads a JSON response
// from stdout.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/axiomantic/spellbook/internal/models"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

// Adapter runs one external command per capability call. The command is
// invoked through the shell so users can configure pipelines or wrapper
// scripts.
type Adapter struct {
	command string
}

// NewAdapter creates a capability adapter for the given shell command.
// An empty command yields an adapter whose calls fail; the services
// downgrade those failures to data.
func NewAdapter(command string) *Adapter {
	return &Adapter{command: command}
}

var _ secondary.ResearchCapability = (*Adapter)(nil)
var _ secondary.ReviewCapability = (*Adapter)(nil)
var _ secondary.ImplementCapability = (*Adapter)(nil)
var _ secondary.MergeCapability = (*Adapter)(nil)
var _ secondary.VerifyCapability = (*Adapter)(nil)

// request is the stdin envelope. Exactly one payload field is set,
// matching Capability.
type request struct {
	Capability string `json:"capability"`

	Questions []string             `json:"questions,omitempty"`
	Artifact  *secondary.ArtifactRef `json:"artifact,omitempty"`
	Task      *models.Task         `json:"task,omitempty"`
	Workspace string               `json:"workspace,omitempty"`

	BaseBranch  string                   `json:"base_branch,omitempty"`
	TrackBranch string                   `json:"track_branch,omitempty"`
	Contract    *secondary.MergeContract `json:"contract,omitempty"`

	ProjectRoot string `json:"project_root,omitempty"`
}

func (a *Adapter) Research(ctx context.Context, questions []string) ([]models.Finding, error) {
	var findings []models.Finding
	err := a.call(ctx, request{Capability: "research", Questions: questions}, &findings)
	return findings, err
}

func (a *Adapter) Review(ctx context.Context, artifact secondary.ArtifactRef) ([]secondary.ReviewFinding, error) {
	var findings []secondary.ReviewFinding
	err := a.call(ctx, request{Capability: "review", Artifact: &artifact}, &findings)
	return findings, err
}

func (a *Adapter) Implement(ctx context.Context, task models.Task, workspacePath string) (*secondary.ImplementResult, error) {
	var result secondary.ImplementResult
	err := a.call(ctx, request{Capability: "implement", Task: &task, Workspace: workspacePath}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Adapter) Merge(ctx context.Context, baseBranch, trackBranch string, contract secondary.MergeContract) (*secondary.MergeResult, error) {
	var result secondary.MergeResult
	err := a.call(ctx, request{
		Capability:  "merge",
		BaseBranch:  baseBranch,
		TrackBranch: trackBranch,
		Contract:    &contract,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Adapter) Verify(ctx context.Context, projectRoot string) (*secondary.VerifyResult, error) {
	var result secondary.VerifyResult
	err := a.call(ctx, request{Capability: "verify", ProjectRoot: projectRoot}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Adapter) call(ctx context.Context, req request, out any) error {
	if a.command == "" {
		return fmt.Errorf("no worker command configured for capability %s", req.Capability)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", req.Capability, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", a.command)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s capability failed: %w: %s", req.Capability, err, stderr.String())
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("%s capability returned malformed output: %w", req.Capability, err)
	}
	return nil
}
