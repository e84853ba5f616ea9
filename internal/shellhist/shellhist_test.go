package shellhist

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/masmgr/keycheck-go/internal/detect"
)

const key = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fixture struct {
	home   string
	shells string
}

func newFixture(t *testing.T, shells string) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{home: filepath.Join(dir, "home"), shells: filepath.Join(dir, "shells")}
	if err := os.MkdirAll(fx.home, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(fx.shells, []byte(shells), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return fx
}

func (fx fixture) write(t *testing.T, rel, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(fx.home, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	return path
}

func (fx fixture) cleaner() *Cleaner {
	return New(detect.MustPatternDetector(""), Options{
		ShellsFile: fx.shells,
		HomeDir:    fx.home,
		Logger:     slog.New(slog.DiscardHandler),
	})
}

func TestReadShells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shells")
	content := "# /etc/shells: valid login shells\n/bin/sh\n\n  /bin/bash  \n#/bin/csh\n/usr/bin/fish\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	shells, err := ReadShells(path)
	if err != nil {
		t.Fatalf("ReadShells: %v", err)
	}
	expected := []string{"/bin/sh", "/bin/bash", "/usr/bin/fish"}
	if !reflect.DeepEqual(shells, expected) {
		t.Errorf("ReadShells = %v, expected %v", shells, expected)
	}
}

func TestReadShells_Missing(t *testing.T) {
	_, err := ReadShells(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, expected fs.ErrNotExist", err)
	}
}

func TestReport_ListsEveryMatchLine(t *testing.T) {
	fx := newFixture(t, "/bin/sh\n/bin/bash\n/bin/zsh\n/usr/bin/fish\n")
	bash := fx.write(t, ".bash_history", "ls\nexport PK="+key+"\ncd /tmp\ncast send --private-key "+key+" "+key+"\n", 0o600)
	fx.write(t, ".zsh_history", "git status\n", 0o600)
	fish := fx.write(t, ".config/fish/fish_history", "- cmd: echo "+key+"\n", 0o600)

	results, err := fx.cleaner().Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	expected := []Result{
		{Shell: "/bin/bash", Path: bash, Lines: []int{2, 4, 4}},
		{Shell: "/usr/bin/fish", Path: fish, Lines: []int{1}},
	}
	if !reflect.DeepEqual(results, expected) {
		t.Errorf("Report = %+v, expected %+v", results, expected)
	}

	data, _ := os.ReadFile(bash)
	if !strings.Contains(string(data), key) {
		t.Error("Report modified the history file")
	}
}

func TestClean_StripsKeysAndKeepsMode(t *testing.T) {
	fx := newFixture(t, "/bin/bash\n")
	bash := fx.write(t, ".bash_history", "ls\nexport PK="+key+"\ncd /tmp\n", 0o600)

	results, err := fx.cleaner().Clean()
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(results) != 1 || !results[0].Cleaned || !reflect.DeepEqual(results[0].Lines, []int{2}) {
		t.Fatalf("Clean = %+v", results)
	}

	data, err := os.ReadFile(bash)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "ls\nexport PK=\ncd /tmp\n" {
		t.Errorf("history = %q", data)
	}

	info, err := os.Stat(bash)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, expected 0600", info.Mode().Perm())
	}

	again, err := fx.cleaner().Clean()
	if err != nil {
		t.Fatalf("Clean (again): %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Clean = %+v, expected nothing left", again)
	}
}

func TestClean_LeavesCleanFilesUntouched(t *testing.T) {
	fx := newFixture(t, "/bin/zsh\n")
	zsh := fx.write(t, ".zsh_history", ": 1700000000:0;make test\n", 0o644)
	before, _ := os.Stat(zsh)

	results, err := fx.cleaner().Clean()
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Clean = %+v, expected none", results)
	}
	after, _ := os.Stat(zsh)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("clean history file was rewritten")
	}
}

func TestTargets(t *testing.T) {
	tests := []struct {
		name     string
		shells   string
		files    map[string]string
		extra    map[string]string
		expected []string
	}{
		{
			name:     "Unknown shells skipped",
			shells:   "/bin/sh\n/bin/dash\n/bin/bash\n",
			files:    map[string]string{".bash_history": "x"},
			expected: []string{".bash_history"},
		},
		{
			name:     "Missing history files skipped",
			shells:   "/bin/bash\n/bin/zsh\n",
			files:    map[string]string{".zsh_history": "x"},
			expected: []string{".zsh_history"},
		},
		{
			name:     "Duplicate shells listed once",
			shells:   "/bin/bash\n/bin/bash\n",
			files:    map[string]string{".bash_history": "x"},
			expected: []string{".bash_history"},
		},
		{
			name:     "Configured shells added",
			shells:   "/usr/bin/bash\n/bin/tcsh\n",
			files:    map[string]string{".bash_history": "x", ".history": "x"},
			extra:    map[string]string{"/usr/bin/bash": ".bash_history"},
			expected: []string{".bash_history", ".history"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.shells)
			for rel, content := range tt.files {
				fx.write(t, rel, content, 0o600)
			}
			c := New(detect.MustPatternDetector(""), Options{
				ShellsFile:   fx.shells,
				HomeDir:      fx.home,
				HistoryFiles: tt.extra,
				Logger:       slog.New(slog.DiscardHandler),
			})

			targets, err := c.targets()
			if err != nil {
				t.Fatalf("targets: %v", err)
			}
			var got []string
			for _, tg := range targets {
				rel, _ := filepath.Rel(fx.home, tg.path)
				got = append(got, filepath.ToSlash(rel))
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("targets = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestReport_MissingShellsFile(t *testing.T) {
	c := New(detect.MustPatternDetector(""), Options{
		ShellsFile: filepath.Join(t.TempDir(), "absent"),
		HomeDir:    t.TempDir(),
		Logger:     slog.New(slog.DiscardHandler),
	})
	if _, err := c.Report(); err == nil {
		t.Fatal("expected error for a missing shells file")
	}
}

func TestReport_NoHomeDir(t *testing.T) {
	fx := newFixture(t, "/bin/bash\n")
	t.Setenv("HOME", "")

	c := New(detect.MustPatternDetector(""), Options{
		ShellsFile: fx.shells,
		Logger:     slog.New(slog.DiscardHandler),
	})
	if _, err := c.Report(); !errors.Is(err, ErrNoHomeDir) {
		t.Fatalf("err = %v, expected ErrNoHomeDir", err)
	}
}
