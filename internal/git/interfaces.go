package git

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
)

// Backend is the version-control surface the history walker drives.
// Repository implements it over go-git; MockRepository scripts it in tests.
type Backend interface {
	// Root returns the absolute path of the working tree.
	Root() string

	// Head captures where HEAD currently points.
	Head() (HeadState, error)

	// DirtyPaths lists staged, unstaged and untracked paths. Empty means clean.
	DirtyPaths() ([]string, error)

	// Commits returns every commit reachable from any local or
	// remote-tracking branch, each once, in an order that is stable for a
	// given repository state.
	Commits(ctx context.Context) ([]plumbing.Hash, error)

	// CommitInfo describes one commit.
	CommitInfo(hash plumbing.Hash) (CommitInfo, error)

	// ForceCheckout overwrites the tracked files with the commit's tree,
	// discarding local modifications, and detaches HEAD at the commit.
	// Untracked and ignored files survive.
	ForceCheckout(hash plumbing.Hash) error

	// Checkout is the non-forcing variant of ForceCheckout; it fails rather
	// than discard local modifications.
	Checkout(hash plumbing.Hash) error

	// SetHeadBranch attaches HEAD to the named branch without touching files.
	SetHeadBranch(branch plumbing.ReferenceName) error

	// Close releases any resources held by the repository.
	Close() error
}

// Compile-time interface conformance checks.
var (
	_ Backend = (*Repository)(nil)
	_ Backend = (*MockRepository)(nil)
)
