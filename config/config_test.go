package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Detector.Pattern != "0x([A-Fa-f0-9]{64})" {
		t.Errorf("Detector.Pattern = %q, expected the 0x + 64 hex pattern", cfg.Detector.Pattern)
	}
	if cfg.Scan.IgnoreFile != ".keycheckignore" {
		t.Errorf("Scan.IgnoreFile = %q, expected %q", cfg.Scan.IgnoreFile, ".keycheckignore")
	}
	if cfg.Scan.Workers != 0 {
		t.Errorf("Scan.Workers = %d, expected 0", cfg.Scan.Workers)
	}
	if cfg.Output.Format != "console" {
		t.Errorf("Output.Format = %q, expected %q", cfg.Output.Format, "console")
	}
	if cfg.ShellHistory.ShellsFile != "/etc/shells" {
		t.Errorf("ShellHistory.ShellsFile = %q, expected %q", cfg.ShellHistory.ShellsFile, "/etc/shells")
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.File != "" {
		t.Errorf("Logging = %+v, expected warn level on stderr", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keycheck.json")
	content := `{
  "scan": {"workers": 4},
  "filters": {"exclude": ["vendor/**", "**/*.min.js"]},
  "shellHistory": {"historyFiles": {"/usr/local/bin/zsh": ".zsh_history"}}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Scan.Workers != 4 {
		t.Errorf("Scan.Workers = %d, expected 4", cfg.Scan.Workers)
	}
	if !reflect.DeepEqual(cfg.Filters.Exclude, []string{"vendor/**", "**/*.min.js"}) {
		t.Errorf("Filters.Exclude = %v", cfg.Filters.Exclude)
	}
	if cfg.ShellHistory.HistoryFiles["/usr/local/bin/zsh"] != ".zsh_history" {
		t.Errorf("ShellHistory.HistoryFiles = %v", cfg.ShellHistory.HistoryFiles)
	}
	// Untouched sections keep their defaults.
	if cfg.Scan.IgnoreFile != ".keycheckignore" || cfg.Detector.Pattern == "" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadConfig(missing) = %+v, expected defaults", cfg)
	}
}

func TestLoadConfig_DefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(`{"output": {"format": "json"}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, expected %q from %s", cfg.Output.Format, "json", DefaultFileName)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{name: "Malformed JSON", content: `{"scan": `, errPart: "parse"},
		{name: "Negative workers", content: `{"scan": {"workers": -1}}`, errPart: "scan.workers"},
		{name: "Negative max bytes", content: `{"scan": {"maxFileBytes": -5}}`, errPart: "scan.maxFileBytes"},
		{name: "Negative top", content: `{"output": {"top": -2}}`, errPart: "output.top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "keycheck.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keycheck.json")
	cfg := DefaultConfig()
	cfg.Filters.Exclude = []string{"testdata/**"}
	cfg.Logging.File = "/var/log/keycheck.log"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip = %+v, expected %+v", loaded, cfg)
	}
}
