// Package shellhist finds key-like strings in the history files of the
// login shells installed on the machine, and optionally strips them.
package shellhist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/masmgr/keycheck-go/internal/detect"
)

// DefaultShellsFile lists the installed login shells.
const DefaultShellsFile = "/etc/shells"

// DefaultHistoryFiles maps a shell path to its history file, relative to
// the home directory.
var DefaultHistoryFiles = map[string]string{
	"/bin/bash":     ".bash_history",
	"/bin/zsh":      ".zsh_history",
	"/bin/tcsh":     ".history",
	"/usr/bin/fish": ".config/fish/fish_history",
}

// ErrNoHomeDir is returned when the current user's home directory is unknown.
var ErrNoHomeDir = errors.New("cannot determine the home directory of the current user")

// Options configures a Cleaner.
type Options struct {
	// ShellsFile defaults to DefaultShellsFile.
	ShellsFile string
	// HomeDir defaults to os.UserHomeDir().
	HomeDir string
	// HistoryFiles is merged over DefaultHistoryFiles.
	HistoryFiles map[string]string
	Logger       *slog.Logger
}

// Result describes one history file that contained keys.
type Result struct {
	Shell string
	Path  string
	// Lines holds the 1-based line of every match, in file order.
	Lines []int
	// Cleaned is true when the matches were removed from the file.
	Cleaned bool
}

// Cleaner reports and removes keys in shell history files.
type Cleaner struct {
	detector detect.Detector
	opts     Options
	files    map[string]string
}

// New creates a Cleaner that matches keys with d.
func New(d detect.Detector, opts Options) *Cleaner {
	if opts.ShellsFile == "" {
		opts.ShellsFile = DefaultShellsFile
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	files := make(map[string]string, len(DefaultHistoryFiles)+len(opts.HistoryFiles))
	for shell, file := range DefaultHistoryFiles {
		files[shell] = file
	}
	for shell, file := range opts.HistoryFiles {
		files[shell] = file
	}

	return &Cleaner{detector: d, opts: opts, files: files}
}

// Report lists every match in every existing history file. Files are not
// modified.
func (c *Cleaner) Report() ([]Result, error) {
	return c.run(false)
}

// Clean removes every match from every existing history file, keeping the
// rest of each line and the file's permissions.
func (c *Cleaner) Clean() ([]Result, error) {
	return c.run(true)
}

func (c *Cleaner) run(clean bool) ([]Result, error) {
	targets, err := c.targets()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, t := range targets {
		r, found, err := c.process(t, clean)
		if err != nil {
			return results, err
		}
		if found {
			results = append(results, r)
		}
	}
	return results, nil
}

type target struct {
	shell string
	path  string
}

// targets resolves the installed shells to the history files that exist.
// A history file shared by several shells is listed once.
func (c *Cleaner) targets() ([]target, error) {
	shells, err := ReadShells(c.opts.ShellsFile)
	if err != nil {
		return nil, err
	}

	home := c.opts.HomeDir
	if home == "" {
		home, err = os.UserHomeDir()
		if err != nil || home == "" {
			return nil, ErrNoHomeDir
		}
	}

	seen := make(map[string]bool)
	var targets []target
	for _, shell := range shells {
		file, ok := c.files[shell]
		if !ok {
			c.opts.Logger.Debug("no known history file for shell", "shell", shell)
			continue
		}
		path := filepath.Join(home, filepath.FromSlash(file))
		if seen[path] {
			continue
		}
		seen[path] = true

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.opts.Logger.Debug("history file not present", "shell", shell, "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		targets = append(targets, target{shell: shell, path: path})
	}
	return targets, nil
}

func (c *Cleaner) process(t target, clean bool) (Result, bool, error) {
	content, err := os.ReadFile(t.path)
	if err != nil {
		return Result{}, false, fmt.Errorf("read history file %s: %w", t.path, err)
	}

	lines := detect.AllMatchLines(c.detector, content)
	if len(lines) == 0 {
		return Result{}, false, nil
	}

	r := Result{Shell: t.shell, Path: t.path, Lines: lines}
	if !clean {
		return r, true, nil
	}

	info, err := os.Stat(t.path)
	if err != nil {
		return r, true, fmt.Errorf("stat %s: %w", t.path, err)
	}
	if err := os.WriteFile(t.path, detect.Redact(c.detector, content), info.Mode().Perm()); err != nil {
		return r, true, fmt.Errorf("rewrite history file %s: %w", t.path, err)
	}
	r.Cleaned = true
	c.opts.Logger.Info("removed keys from history file", "path", t.path, "matches", len(lines))
	return r, true, nil
}

// ReadShells returns the shells listed in path, one per line. Comment
// lines and blank lines are skipped.
func ReadShells(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shells file: %w", err)
	}

	var shells []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		shells = append(shells, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read shells file: %w", err)
	}
	return shells, nil
}
