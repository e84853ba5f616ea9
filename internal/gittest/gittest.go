// Package gittest builds throwaway Git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a repository in a temporary directory with helpers that fail
// the test on error.
type Repo struct {
	t        *testing.T
	Dir      string
	Repo     *gogit.Repository
	Worktree *gogit.Worktree
	when     time.Time
}

// New initializes an empty repository whose initial branch is branch.
func New(t *testing.T, branch string) *Repo {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	return &Repo{
		t:        t,
		Dir:      dir,
		Repo:     repo,
		Worktree: wt,
		when:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Path returns the absolute path of rel inside the working tree.
func (r *Repo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// WriteFile writes content to rel without staging it.
func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	full := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("WriteFile: %v", err)
	}
}

// Write writes content to rel and stages it.
func (r *Repo) Write(rel, content string) {
	r.t.Helper()
	r.WriteFile(rel, content)
	if _, err := r.Worktree.Add(rel); err != nil {
		r.t.Fatalf("Add(%s): %v", rel, err)
	}
}

// Remove deletes rel from the working tree and the index.
func (r *Repo) Remove(rel string) {
	r.t.Helper()
	if _, err := r.Worktree.Remove(rel); err != nil {
		r.t.Fatalf("Remove(%s): %v", rel, err)
	}
}

// Commit records the staged changes. Each commit is one minute after the last.
func (r *Repo) Commit(msg string) plumbing.Hash {
	r.t.Helper()
	r.when = r.when.Add(time.Minute)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: r.when}
	hash, err := r.Worktree.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("Commit(%q): %v", msg, err)
	}
	return hash
}

// CreateBranch creates branch at HEAD and switches to it.
func (r *Repo) CreateBranch(branch string) {
	r.t.Helper()
	err := r.Worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	})
	if err != nil {
		r.t.Fatalf("Checkout(create %s): %v", branch, err)
	}
}

// Switch checks out an existing branch.
func (r *Repo) Switch(branch string) {
	r.t.Helper()
	err := r.Worktree.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)})
	if err != nil {
		r.t.Fatalf("Checkout(%s): %v", branch, err)
	}
}

// MoveToRemote replaces the local branch with refs/remotes/<remote>/<branch>
// and points the symbolic refs/remotes/<remote>/HEAD at it, the way a fresh
// clone leaves branches other than the default one.
func (r *Repo) MoveToRemote(remote, branch string) {
	r.t.Helper()
	local := plumbing.NewBranchReferenceName(branch)
	ref, err := r.Repo.Reference(local, false)
	if err != nil {
		r.t.Fatalf("Reference(%s): %v", local, err)
	}

	remoteRef := plumbing.NewRemoteReferenceName(remote, branch)
	refs := []*plumbing.Reference{
		plumbing.NewHashReference(remoteRef, ref.Hash()),
		plumbing.NewSymbolicReference(plumbing.NewRemoteHEADReferenceName(remote), remoteRef),
	}
	for _, ref := range refs {
		if err := r.Repo.Storer.SetReference(ref); err != nil {
			r.t.Fatalf("SetReference(%s): %v", ref.Name(), err)
		}
	}
	if err := r.Repo.Storer.RemoveReference(local); err != nil {
		r.t.Fatalf("RemoveReference(%s): %v", local, err)
	}
}

// Detach checks out hash with a detached HEAD.
func (r *Repo) Detach(hash plumbing.Hash) {
	r.t.Helper()
	if err := r.Worktree.Checkout(&gogit.CheckoutOptions{Hash: hash}); err != nil {
		r.t.Fatalf("Checkout(%s): %v", hash, err)
	}
}

// Head returns the raw HEAD reference.
func (r *Repo) Head() *plumbing.Reference {
	r.t.Helper()
	ref, err := r.Repo.Reference(plumbing.HEAD, false)
	if err != nil {
		r.t.Fatalf("Reference(HEAD): %v", err)
	}
	return ref
}

// Snapshot reads every file of the working tree outside .git, keyed by
// slash-separated relative path.
func (r *Repo) Snapshot() map[string]string {
	r.t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(r.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.Dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		r.t.Fatalf("Snapshot: %v", err)
	}
	return files
}
