package history

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Walk failure classes. Use errors.Is against these.
var (
	// ErrPrecondition means the walk refused to start; nothing was changed.
	ErrPrecondition = errors.New("working tree is not safe to walk")

	// ErrHistoryRead means the repository history could not be read.
	ErrHistoryRead = errors.New("cannot read repository history")

	// ErrCheckout means a commit could not be materialized.
	ErrCheckout = errors.New("cannot check out commit")

	// ErrRestore means the working tree could not be put back. The tree may
	// be left on a historical commit.
	ErrRestore = errors.New("cannot restore working tree")
)

// PreconditionError lists why the walk did not start.
type PreconditionError struct {
	Reason string
	Dirty  []string
}

func (e *PreconditionError) Error() string {
	if len(e.Dirty) > 0 {
		return fmt.Sprintf("%s: %s (%d uncommitted paths, first %q)", ErrPrecondition, e.Reason, len(e.Dirty), e.Dirty[0])
	}
	return fmt.Sprintf("%s: %s", ErrPrecondition, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// CheckoutError wraps a failed checkout of one commit.
type CheckoutError struct {
	Commit plumbing.Hash
	Err    error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrCheckout, e.Commit, e.Err)
}

func (e *CheckoutError) Unwrap() []error { return []error{ErrCheckout, e.Err} }

// RestoreError reports that the original HEAD could not be put back.
type RestoreError struct {
	Commit plumbing.Hash
	Branch plumbing.ReferenceName // empty when the walk started detached
	Err    error
}

func (e *RestoreError) Error() string {
	target := e.Commit.String()
	if e.Branch != "" {
		target = e.Branch.Short() + " (" + target + ")"
	}
	return fmt.Sprintf("%s to %s: %v", ErrRestore, target, e.Err)
}

func (e *RestoreError) Unwrap() []error { return []error{ErrRestore, e.Err} }
