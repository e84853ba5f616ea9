package git

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// CommitInfo represents minimal information about a Git commit.
type CommitInfo struct {
	SHA     string
	When    time.Time
	Author  AuthorInfo
	Message string
}

// ShortSHA returns the first eight characters of the commit SHA.
func (c CommitInfo) ShortSHA() string {
	if len(c.SHA) <= 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// AuthorInfo represents commit author information.
type AuthorInfo struct {
	Name  string
	Email string
}

// HeadState is what HEAD pointed at when it was captured.
type HeadState struct {
	// Hash is the commit HEAD resolves to. Zero when Unborn.
	Hash plumbing.Hash
	// Branch is the branch HEAD is attached to; empty when detached.
	Branch plumbing.ReferenceName
	// Unborn is set when HEAD names a branch that has no commits yet.
	Unborn bool
}

// Detached reports whether HEAD points straight at a commit.
func (h HeadState) Detached() bool {
	return h.Branch == ""
}

// String describes the state for logs and error messages.
func (h HeadState) String() string {
	switch {
	case h.Unborn:
		return h.Branch.Short() + " (no commits)"
	case h.Detached():
		return "detached at " + h.Hash.String()
	default:
		return h.Branch.Short() + " at " + h.Hash.String()
	}
}

// firstLine returns a commit message subject.
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx != -1 {
		return message[:idx]
	}
	return message
}
