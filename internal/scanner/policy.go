package scanner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const (
	// DefaultIgnoreFile is read from the scan root when present.
	DefaultIgnoreFile = ".keycheckignore"

	gitignoreFile = ".gitignore"
	gitDir        = ".git"
	commentPrefix = "#"
)

// PolicyOptions selects the rules a Policy is composed of.
type PolicyOptions struct {
	// IgnoreFile is a gitignore-syntax file relative to the root.
	// Empty means DefaultIgnoreFile; "-" disables it.
	IgnoreFile string
	// Exclude holds doublestar globs matched against slash-separated relative paths.
	Exclude []string
	// NoGitignore turns off .gitignore handling.
	NoGitignore bool
}

// Policy decides which paths under a root are skipped.
//
// Standard ignore sources are off: hidden files are scanned, ignore files
// above the root are not consulted and .git/info/exclude is not read. Only
// .gitignore files inside the root, the optional ignore file and the
// configured globs apply. The .git directory itself is always skipped.
// A Policy is read-only after construction and safe for concurrent use.
type Policy struct {
	matcher gitignore.Matcher
	exclude []string
}

// NewPolicy builds the exclusion policy for root.
func NewPolicy(root string, opts PolicyOptions) (*Policy, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	fs := osfs.New(root)

	var patterns []gitignore.Pattern
	if !opts.NoGitignore {
		ps, err := readGitignores(fs, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("read .gitignore files: %w", err)
		}
		patterns = append(patterns, ps...)
	}

	ignoreFile := opts.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = DefaultIgnoreFile
	}
	if ignoreFile != "-" {
		ps, err := readIgnoreFile(fs, nil, ignoreFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ignoreFile, err)
		}
		// Appended last so the ignore file wins over .gitignore.
		patterns = append(patterns, ps...)
	}

	return &Policy{
		matcher: gitignore.NewMatcher(patterns),
		exclude: opts.Exclude,
	}, nil
}

// Excluded reports whether the slash-separated path rel, relative to the
// policy root, should be skipped.
func (p *Policy) Excluded(rel string, isDir bool) bool {
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return false
	}

	parts := strings.Split(rel, "/")
	if parts[0] == gitDir {
		return true
	}

	if p.matcher.Match(parts, isDir) {
		return true
	}

	for _, pattern := range p.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		// A directory glob like "vendor/**" also prunes the directory itself.
		if isDir {
			if matched, _ := doublestar.Match(pattern, rel+"/"); matched {
				return true
			}
		}
	}

	return false
}

// readGitignores collects .gitignore patterns from dir and below, skipping
// .git and directories already ignored by the patterns found so far.
func readGitignores(fs billy.Filesystem, dir []string, inherited []gitignore.Pattern) ([]gitignore.Pattern, error) {
	ps, err := readIgnoreFile(fs, dir, gitignoreFile)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fs.Join(dir...))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return ps, nil
		}
		return nil, err
	}

	scope := append(append([]gitignore.Pattern{}, inherited...), ps...)
	matcher := gitignore.NewMatcher(scope)

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == gitDir {
			continue
		}
		child := append(append([]string{}, dir...), entry.Name())
		if matcher.Match(child, true) {
			continue
		}
		sub, err := readGitignores(fs, child, scope)
		if err != nil {
			return nil, err
		}
		ps = append(ps, sub...)
	}

	return ps, nil
}

// readIgnoreFile parses one gitignore-syntax file scoped to dir.
// A missing file yields no patterns.
func readIgnoreFile(fs billy.Filesystem, dir []string, name string) ([]gitignore.Pattern, error) {
	data, err := readAll(fs, fs.Join(append(append([]string{}, dir...), name)...))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var ps []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, commentPrefix) || strings.TrimSpace(line) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, dir))
	}
	return ps, nil
}

func readAll(fs billy.Filesystem, name string) ([]byte, error) {
	fi, err := fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, nil
	}

	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
