package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/masmgr/keycheck-go/internal/detect"
)

// Finding is the first key-like match in one file.
type Finding struct {
	Path string // slash-separated, relative to the scan root
	Line int    // 1-based
}

// String returns "path:line".
func (f Finding) String() string {
	return fmt.Sprintf("%s:%d", f.Path, f.Line)
}

// Options tunes a scan.
type Options struct {
	// Workers bounds the number of files read concurrently.
	// Zero or less means runtime.NumCPU().
	Workers int
	// MaxFileBytes skips files larger than this. Zero means no limit.
	MaxFileBytes int64
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Scan walks root and checks every file the policy admits with d.
// Files are read by a bounded worker pool; the result is sorted by path.
// Unreadable files and files that are not valid UTF-8 are skipped.
func Scan(ctx context.Context, root string, policy *Policy, d detect.Detector, opts Options) ([]Finding, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", absRoot)
	}

	var (
		mu       sync.Mutex
		findings []Finding
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Workers)

	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if path == absRoot {
			return nil
		}
		if err := groupCtx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if policy.Excluded(rel, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || policy.Excluded(rel, false) {
			return nil
		}

		group.Go(func() error {
			line, found, err := scanFile(path, d, opts.MaxFileBytes)
			if err != nil {
				log.Debug("skipping file", "path", rel, "error", err)
				return nil
			}
			if found {
				mu.Lock()
				findings = append(findings, Finding{Path: rel, Line: line})
				mu.Unlock()
			}
			return nil
		})
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	SortFindings(findings)
	return findings, nil
}

var errNotText = errors.New("not valid UTF-8 text")

func scanFile(path string, d detect.Detector, maxBytes int64) (int, bool, error) {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false, err
		}
		if info.Size() > maxBytes {
			return 0, false, fmt.Errorf("size %d exceeds limit %d", info.Size(), maxBytes)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}
	if !utf8.Valid(content) {
		return 0, false, errNotText
	}

	line, found := detect.FirstMatchLine(d, content)
	return line, found, nil
}

// SortFindings orders findings by path, then line.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Line < findings[j].Line
	})
}

// Scanner binds a detector and policy rules so a tree can be scanned by
// path alone. The policy is rebuilt on every call, so ignore files are
// read from the tree as it is at that moment.
type Scanner struct {
	detector detect.Detector
	policy   PolicyOptions
	opts     Options
}

// New creates a Scanner.
func New(d detect.Detector, policy PolicyOptions, opts Options) *Scanner {
	return &Scanner{detector: d, policy: policy, opts: opts}
}

// ScanTree builds the exclusion policy for root and scans it.
func (s *Scanner) ScanTree(ctx context.Context, root string) ([]Finding, error) {
	policy, err := NewPolicy(root, s.policy)
	if err != nil {
		return nil, err
	}
	return Scan(ctx, root, policy, s.detector, s.opts)
}
