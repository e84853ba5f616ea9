package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrBareRepository is returned when the repository has no working tree.
var ErrBareRepository = errors.New("repository has no working tree")

// Repository is a go-git backed Backend rooted at a discovered working tree.
type Repository struct {
	repo     *git.Repository
	worktree *git.Worktree
	root     string
	logger   *slog.Logger

	// shadowed holds untracked files that a checked-out tree overwrote,
	// until a checkout no longer tracks their path.
	shadowed map[string]shadowedFile
}

type shadowedFile struct {
	data []byte
	mode fs.FileMode
	link string
}

// Open discovers the repository containing path, walking up to the
// nearest .git directory.
func Open(path string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, fmt.Errorf("%w: %s", ErrBareRepository, path)
		}
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}

	logger.Debug("opened repository", "root", root)

	return &Repository{
		repo:     repo,
		worktree: wt,
		root:     root,
		logger:   logger,
		shadowed: make(map[string]shadowedFile),
	}, nil
}

// Root returns the absolute path of the working tree.
func (r *Repository) Root() string {
	return r.root
}

// Head captures where HEAD currently points.
func (r *Repository) Head() (HeadState, error) {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return HeadState{}, fmt.Errorf("read HEAD: %w", err)
	}

	if ref.Type() != plumbing.SymbolicReference {
		return HeadState{Hash: ref.Hash()}, nil
	}

	state := HeadState{Branch: ref.Target()}
	resolved, err := r.repo.Reference(ref.Target(), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		state.Unborn = true
		return state, nil
	}
	if err != nil {
		return HeadState{}, fmt.Errorf("resolve %s: %w", ref.Target(), err)
	}
	state.Hash = resolved.Hash()
	return state, nil
}

// DirtyPaths lists staged, unstaged and untracked paths, sorted.
// Ignored files are not reported.
func (r *Repository) DirtyPaths() ([]string, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	var dirty []string
	for name, st := range status {
		if st.Staging != git.Unmodified || st.Worktree != git.Unmodified {
			dirty = append(dirty, name)
		}
	}
	sort.Strings(dirty)
	return dirty, nil
}

// Commits walks every local and remote-tracking branch, in reference-name
// order, pre-order from its tip, and returns each commit the first time it
// is reached. Symbolic references such as refs/remotes/origin/HEAD are skipped.
func (r *Repository) Commits(ctx context.Context) ([]plumbing.Hash, error) {
	tips, err := r.branchTips()
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]bool)
	var commits []plumbing.Hash

	for _, ref := range tips {
		if seen[ref.Hash()] {
			continue
		}

		tip, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("read tip of %s: %w", ref.Name().Short(), err)
		}

		before := len(commits)
		err = object.NewCommitPreorderIter(tip, seen, nil).ForEach(func(c *object.Commit) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			seen[c.Hash] = true
			commits = append(commits, c.Hash)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk history of %s: %w", ref.Name().Short(), err)
		}

		r.logger.Debug("walked branch",
			"branch", ref.Name().Short(),
			"tip", ref.Hash().String(),
			"new_commits", len(commits)-before,
		)
	}

	return commits, nil
}

func (r *Repository) branchTips() ([]*plumbing.Reference, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}

	var tips []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if ref.Name().IsBranch() || ref.Name().IsRemote() {
			tips = append(tips, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}

	sort.Slice(tips, func(i, j int) bool {
		return tips[i].Name() < tips[j].Name()
	})
	return tips, nil
}

// CommitInfo describes one commit.
func (r *Repository) CommitInfo(hash plumbing.Hash) (CommitInfo, error) {
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return CommitInfo{
		SHA:     c.Hash.String(),
		When:    c.Committer.When,
		Author:  AuthorInfo{Name: c.Author.Name, Email: c.Author.Email},
		Message: firstLine(c.Message),
	}, nil
}

// ForceCheckout overwrites the tracked files of the working tree with the
// commit's tree and detaches HEAD at it. Local modifications to tracked
// files are discarded. Untracked and ignored files are left in place; one
// that the commit's tree overwrites is kept aside and written back by the
// first later checkout that does not track its path.
func (r *Repository) ForceCheckout(hash plumbing.Hash) error {
	if err := r.materialize(hash, git.HardReset); err != nil {
		return fmt.Errorf("force checkout %s: %w", hash, err)
	}
	return nil
}

// Checkout is ForceCheckout that refuses to discard modified tracked files.
func (r *Repository) Checkout(hash plumbing.Hash) error {
	modified, err := r.modifiedTracked()
	if err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}
	if len(modified) > 0 {
		return fmt.Errorf("checkout %s: %w: %v", hash, git.ErrUnstagedChanges, modified)
	}
	if err := r.materialize(hash, git.MergeReset); err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}
	return nil
}

// materialize resets the index and working tree to the commit, restricted
// to the paths tracked now or by the commit, so files git does not track
// survive.
func (r *Repository) materialize(hash plumbing.Hash, mode git.ResetMode) error {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	tracked := make(map[string]bool, len(idx.Entries))
	for _, e := range idx.Entries {
		tracked[e.Name] = true
	}

	target := make(map[string]bool)
	err = tree.Files().ForEach(func(f *object.File) error {
		target[f.Name] = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("read tree: %w", err)
	}

	files := make([]string, 0, len(tracked)+len(target))
	for name := range tracked {
		files = append(files, name)
	}
	for name := range target {
		if tracked[name] {
			continue
		}
		files = append(files, name)
		if err := r.shadow(name); err != nil {
			return err
		}
	}
	sort.Strings(files)

	// Reset moves the branch HEAD points to, so detach first.
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, hash)); err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	// An empty file list would reset every path, untracked ones included.
	if len(files) > 0 {
		if err := r.worktree.Reset(&git.ResetOptions{Commit: hash, Mode: mode, Files: files}); err != nil {
			return err
		}
	}

	return r.unshadow(target)
}

// shadow keeps a copy of an untracked file about to be overwritten by a
// tracked one. The first copy wins: later ones were written by a checkout.
func (r *Repository) shadow(name string) error {
	if _, ok := r.shadowed[name]; ok {
		return nil
	}

	wfs := r.worktree.Filesystem
	info, err := wfs.Lstat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat untracked %s: %w", name, err)
	}

	var saved shadowedFile
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		saved.link, err = wfs.Readlink(name)
	case info.Mode().IsRegular():
		saved.data, err = util.ReadFile(wfs, name)
		saved.mode = info.Mode().Perm()
	default:
		return fmt.Errorf("untracked %s is in the way of a tracked file", name)
	}
	if err != nil {
		return fmt.Errorf("save untracked %s: %w", name, err)
	}

	r.logger.Debug("keeping untracked file aside", "path", name)
	r.shadowed[name] = saved
	return nil
}

// unshadow writes back the kept files whose path the current tree does
// not track.
func (r *Repository) unshadow(target map[string]bool) error {
	wfs := r.worktree.Filesystem
	for name, saved := range r.shadowed {
		if target[name] {
			continue
		}

		if saved.link != "" {
			err := wfs.Symlink(saved.link, name)
			if err != nil && !errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("restore untracked %s: %w", name, err)
			}
		} else if err := util.WriteFile(wfs, name, saved.data, saved.mode); err != nil {
			return fmt.Errorf("restore untracked %s: %w", name, err)
		}

		r.logger.Debug("restored untracked file", "path", name)
		delete(r.shadowed, name)
	}
	return nil
}

// modifiedTracked lists tracked paths with changes in the working tree or
// the index. Untracked files are not reported.
func (r *Repository) modifiedTracked() ([]string, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	var modified []string
	for name, st := range status {
		if st.Worktree == git.Untracked {
			continue
		}
		if st.Staging != git.Unmodified || st.Worktree != git.Unmodified {
			modified = append(modified, name)
		}
	}
	sort.Strings(modified)
	return modified, nil
}

// SetHeadBranch points HEAD at branch as a symbolic reference.
// The branch must exist; the working tree is not touched.
func (r *Repository) SetHeadBranch(branch plumbing.ReferenceName) error {
	if !branch.IsBranch() {
		return fmt.Errorf("set HEAD: %s is not a branch", branch)
	}
	if _, err := r.repo.Reference(branch, false); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", branch.Short(), err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", branch.Short(), err)
	}
	return nil
}

// Close is a no-op; go-git keeps no open handles between calls.
func (r *Repository) Close() error {
	return nil
}
