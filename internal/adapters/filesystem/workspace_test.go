package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axiomantic/spellbook/internal/adapters/filesystem"
)

func TestWorkspaceAdapter_FileOperations(t *testing.T) {
	tmpDir := t.TempDir()
	adapter := filesystem.NewWorkspaceAdapter()
	ctx := context.Background()

	path := filepath.Join(tmpDir, "packets", "packet-T1.md")

	// File should not exist initially
	exists, err := adapter.FileExists(ctx, path)
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if exists {
		t.Error("expected file to not exist")
	}

	// WriteFile creates parent directories
	err = adapter.WriteFile(ctx, path, []byte("# Work Packet: T1\n"))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err = adapter.FileExists(ctx, path)
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist after write")
	}

	content, err := adapter.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "# Work Packet: T1\n" {
		t.Errorf("content = %q", content)
	}

	// Rewriting replaces content in full
	err = adapter.WriteFile(ctx, path, []byte("updated"))
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	content, err = adapter.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile after rewrite failed: %v", err)
	}
	if string(content) != "updated" {
		t.Errorf("content after rewrite = %q", content)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", entry.Name())
		}
	}
}

func TestWorkspaceAdapter_ReadFile_NotFound(t *testing.T) {
	adapter := filesystem.NewWorkspaceAdapter()

	_, err := adapter.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.md"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWorkspaceAdapter_CreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	adapter := filesystem.NewWorkspaceAdapter()
	ctx := context.Background()

	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := adapter.CreateDirectory(ctx, nested); err != nil {
		t.Fatalf("CreateDirectory failed: %v", err)
	}

	info, err := os.Stat(nested)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}

	// A directory is not a file
	exists, err := adapter.FileExists(ctx, nested)
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if exists {
		t.Error("FileExists reported true for a directory")
	}
}

func TestWorkspaceAdapter_WorktreeExists(t *testing.T) {
	tmpDir := t.TempDir()
	adapter := filesystem.NewWorkspaceAdapter()
	ctx := context.Background()

	exists, err := adapter.WorktreeExists(ctx, filepath.Join(tmpDir, "missing"))
	if err != nil {
		t.Fatalf("WorktreeExists failed: %v", err)
	}
	if exists {
		t.Error("expected missing worktree to report false")
	}

	wt := filepath.Join(tmpDir, "wt")
	if err := os.MkdirAll(wt, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	exists, err = adapter.WorktreeExists(ctx, wt)
	if err != nil {
		t.Fatalf("WorktreeExists failed: %v", err)
	}
	if !exists {
		t.Error("expected existing directory to report true")
	}
}

func TestWorkspaceAdapter_CreateWorktree_NoRepo(t *testing.T) {
	adapter := filesystem.NewWorkspaceAdapter()

	err := adapter.CreateWorktree(context.Background(), t.TempDir(), "feature/x/track-t1", t.TempDir())
	if err == nil {
		t.Fatal("expected error for non-repository root")
	}
	if !strings.Contains(err.Error(), "no git repository") {
		t.Errorf("error = %q", err)
	}
}
