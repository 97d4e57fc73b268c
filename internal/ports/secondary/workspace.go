// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import "context"

// WorkspaceAdapter defines the secondary port for filesystem and git
// worktree operations. A worktree is exclusively owned by one track for
// its lifetime; the adapter only creates and removes, never shares.
type WorkspaceAdapter interface {
	// Worktree operations
	CreateWorktree(ctx context.Context, repoRoot, branchName, targetPath string) error
	RemoveWorktree(ctx context.Context, repoRoot, path string) error
	WorktreeExists(ctx context.Context, path string) (bool, error)

	// File operations
	WriteFile(ctx context.Context, path string, content []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	CreateDirectory(ctx context.Context, path string) error
	FileExists(ctx context.Context, path string) (bool, error)
}
