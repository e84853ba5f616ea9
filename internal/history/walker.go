// Package history scans every commit reachable from any branch by checking
// each one out in turn and scanning the working tree, then puts the tree
// and HEAD back where they were.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/masmgr/keycheck-go/internal/git"
	"github.com/masmgr/keycheck-go/internal/scanner"
)

// TreeScanner scans a directory tree. *scanner.Scanner implements it.
type TreeScanner interface {
	ScanTree(ctx context.Context, root string) ([]scanner.Finding, error)
}

// Options configures a Walker.
type Options struct {
	Logger *slog.Logger
	// OnCommit is called before each commit is checked out; index is 1-based.
	OnCommit func(index, total int, commit plumbing.Hash)
}

// CommitFindings groups the findings discovered while a commit was checked out.
type CommitFindings struct {
	Commit   plumbing.Hash
	Findings []scanner.Finding
}

// Walker drives one history scan. It owns the repository for the duration
// of a walk and must not be used concurrently.
type Walker struct {
	repo    git.Backend
	scanner TreeScanner
	opts    Options
}

// NewWalker creates a Walker over repo.
func NewWalker(repo git.Backend, s TreeScanner, opts Options) *Walker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Walker{repo: repo, scanner: s, opts: opts}
}

// Walk scans every commit and returns all findings. A path that leaks in
// several commits is reported once per commit.
func (w *Walker) Walk(ctx context.Context) ([]scanner.Finding, error) {
	results, err := w.WalkDetailed(ctx)
	if err != nil {
		return nil, err
	}

	var all []scanner.Finding
	for _, r := range results {
		all = append(all, r.Findings...)
	}
	return all, nil
}

// WalkDetailed is Walk with findings grouped by commit, in walk order.
// Commits without findings are omitted.
//
// The working tree must be clean. Once any commit has been checked out,
// the original commit and branch are restored before WalkDetailed
// returns, including on error and panic. A restore failure is returned
// as a *RestoreError joined with the walk error, if any.
func (w *Walker) WalkDetailed(ctx context.Context) (results []CommitFindings, err error) {
	log := w.opts.Logger

	start, err := w.precheck()
	if err != nil {
		return nil, err
	}

	commits, err := w.repo.Commits(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryRead, err)
	}
	if len(commits) == 0 {
		log.Info("repository has no commits; nothing to scan")
		return nil, nil
	}
	if start.Unborn {
		return nil, &PreconditionError{Reason: "HEAD is on " + start.Branch.Short() + ", which has no commits to return to"}
	}

	log.Info("scanning history", "commits", len(commits), "head", start.String())

	defer func() {
		if rerr := w.restore(start, err); rerr != nil {
			log.Error("failed to restore working tree", "head", start.String(), "error", rerr)
			results = nil
			err = errors.Join(err, rerr)
		}
	}()

	for i, commit := range commits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.opts.OnCommit != nil {
			w.opts.OnCommit(i+1, len(commits), commit)
		}

		if err := w.repo.ForceCheckout(commit); err != nil {
			return nil, &CheckoutError{Commit: commit, Err: err}
		}

		findings, err := w.scanner.ScanTree(ctx, w.repo.Root())
		if err != nil {
			return nil, fmt.Errorf("scan commit %s: %w", commit, err)
		}

		log.Debug("scanned commit", "commit", commit.String(), "index", i+1, "findings", len(findings))

		if len(findings) > 0 {
			results = append(results, CommitFindings{Commit: commit, Findings: findings})
		}
	}

	return results, nil
}

// precheck captures HEAD and refuses to continue over uncommitted work.
func (w *Walker) precheck() (git.HeadState, error) {
	start, err := w.repo.Head()
	if err != nil {
		return git.HeadState{}, fmt.Errorf("%w: %w", ErrHistoryRead, err)
	}

	dirty, err := w.repo.DirtyPaths()
	if err != nil {
		return git.HeadState{}, fmt.Errorf("%w: worktree status: %w", ErrPrecondition, err)
	}
	if len(dirty) > 0 {
		w.opts.Logger.Warn("working tree has uncommitted changes; commit or stash them before scanning history",
			"paths", len(dirty))
		return git.HeadState{}, &PreconditionError{Reason: "uncommitted changes", Dirty: dirty}
	}

	w.opts.Logger.Debug("captured HEAD", "head", start.String())
	return start, nil
}

// restore puts the captured commit back with a non-forcing checkout and
// re-attaches HEAD to the captured branch. When the walk stopped because a
// checkout failed part way, the tree may hold files written by that
// checkout; the precheck proved none of them are user edits, so the
// checkout is retried with force.
func (w *Walker) restore(start git.HeadState, walkErr error) error {
	err := w.repo.Checkout(start.Hash)
	if err != nil && errors.Is(walkErr, ErrCheckout) {
		w.opts.Logger.Warn("non-forcing restore failed after an aborted checkout; forcing", "error", err)
		err = w.repo.ForceCheckout(start.Hash)
	}
	if err != nil {
		return &RestoreError{Commit: start.Hash, Branch: start.Branch, Err: err}
	}

	if !start.Detached() {
		if err := w.repo.SetHeadBranch(start.Branch); err != nil {
			return &RestoreError{Commit: start.Hash, Branch: start.Branch, Err: err}
		}
	}

	w.opts.Logger.Debug("restored HEAD", "head", start.String())
	return nil
}
