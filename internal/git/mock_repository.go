package git

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// MockRepository is a test double for Repository.
// It keeps HEAD and the "checked out" commit in memory and records every
// mutating call, so tests can assert what the walker did without a real
// Git repository.
type MockRepository struct {
	RootDir    string
	State      HeadState
	Dirty      []string
	CommitList []plumbing.Hash
	Infos      map[plumbing.Hash]CommitInfo

	HeadErr     error
	StatusErr   error
	CommitsErr  error
	CheckoutErr map[plumbing.Hash]error // per-commit ForceCheckout failures
	RestoreErr  error                   // returned by Checkout
	SetHeadErr  error

	// Current is the commit whose tree is "on disk".
	Current plumbing.Hash

	ForceCheckouts []plumbing.Hash
	Checkouts      []plumbing.Hash
	HeadBranches   []plumbing.ReferenceName
	Closed         bool
}

// NewMockRepository creates a clean mock on branch at the last of commits.
// With no commits the branch is unborn.
func NewMockRepository(root string, branch plumbing.ReferenceName, commits ...plumbing.Hash) *MockRepository {
	m := &MockRepository{
		RootDir:    root,
		CommitList: commits,
		State:      HeadState{Branch: branch, Unborn: len(commits) == 0},
	}
	if len(commits) > 0 {
		m.State.Hash = commits[len(commits)-1]
		m.Current = m.State.Hash
	}
	return m
}

// Root returns the configured root directory.
func (m *MockRepository) Root() string {
	return m.RootDir
}

// Head returns the current in-memory HEAD.
func (m *MockRepository) Head() (HeadState, error) {
	return m.State, m.HeadErr
}

// DirtyPaths returns the predefined dirty paths or error.
func (m *MockRepository) DirtyPaths() ([]string, error) {
	return m.Dirty, m.StatusErr
}

// Commits returns the predefined commits or error.
func (m *MockRepository) Commits(_ context.Context) ([]plumbing.Hash, error) {
	return m.CommitList, m.CommitsErr
}

// CommitInfo returns the predefined info, or one holding only the SHA.
func (m *MockRepository) CommitInfo(hash plumbing.Hash) (CommitInfo, error) {
	if info, ok := m.Infos[hash]; ok {
		return info, nil
	}
	return CommitInfo{SHA: hash.String()}, nil
}

// ForceCheckout records the call and detaches HEAD at hash.
func (m *MockRepository) ForceCheckout(hash plumbing.Hash) error {
	m.ForceCheckouts = append(m.ForceCheckouts, hash)
	if err := m.CheckoutErr[hash]; err != nil {
		return err
	}
	m.Current = hash
	m.State = HeadState{Hash: hash}
	return nil
}

// Checkout records the call and detaches HEAD at hash.
func (m *MockRepository) Checkout(hash plumbing.Hash) error {
	m.Checkouts = append(m.Checkouts, hash)
	if m.RestoreErr != nil {
		return m.RestoreErr
	}
	m.Current = hash
	m.State = HeadState{Hash: hash}
	return nil
}

// SetHeadBranch records the call and attaches HEAD to branch.
func (m *MockRepository) SetHeadBranch(branch plumbing.ReferenceName) error {
	m.HeadBranches = append(m.HeadBranches, branch)
	if m.SetHeadErr != nil {
		return m.SetHeadErr
	}
	if m.State.Hash.IsZero() {
		return fmt.Errorf("set HEAD to %s: no commit checked out", branch)
	}
	m.State.Branch = branch
	return nil
}

// Close marks the mock closed.
func (m *MockRepository) Close() error {
	m.Closed = true
	return nil
}
