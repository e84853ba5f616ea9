package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/masmgr/keycheck-go/internal/detect"
)

// DefaultFileName is looked up in the working directory, then in the
// home directory, when no config path is given.
const DefaultFileName = ".keycheck.json"

// Config is the root configuration structure.
type Config struct {
	Detector     DetectorConfig     `json:"detector"`
	Scan         ScanConfig         `json:"scan"`
	Filters      FilterConfig       `json:"filters"`
	Output       OutputConfig       `json:"output"`
	ShellHistory ShellHistoryConfig `json:"shellHistory"`
	Logging      LoggingConfig      `json:"logging"`
}

// DetectorConfig selects what counts as a key.
type DetectorConfig struct {
	Pattern string `json:"pattern"` // Default: 0x([A-Fa-f0-9]{64})
}

// ScanConfig tunes the content scanner.
type ScanConfig struct {
	IgnoreFile   string `json:"ignoreFile"`   // Default: .keycheckignore; "-" disables
	NoGitignore  bool   `json:"noGitignore"`  // Skip .gitignore files inside the root
	Workers      int    `json:"workers"`      // 0 means one per CPU
	MaxFileBytes int64  `json:"maxFileBytes"` // 0 means no limit
}

// FilterConfig holds file path filtering options.
type FilterConfig struct {
	Exclude []string `json:"exclude"` // doublestar globs relative to the scan root
}

// OutputConfig holds report defaults.
type OutputConfig struct {
	Format string `json:"format"`
	Top    int    `json:"top"`  // 0 shows every finding
	Path   string `json:"path"` // empty writes to stdout
}

// ShellHistoryConfig locates shell history files.
type ShellHistoryConfig struct {
	ShellsFile   string            `json:"shellsFile"`   // Default: /etc/shells
	HistoryFiles map[string]string `json:"historyFiles"` // shell path -> file under $HOME, merged over the built-ins
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level      string `json:"level"` // debug, info, warn, error
	File       string `json:"file"`  // empty logs to stderr
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			Pattern: detect.DefaultPattern,
		},
		Scan: ScanConfig{
			IgnoreFile: ".keycheckignore",
		},
		Filters: FilterConfig{
			Exclude: []string{},
		},
		Output: OutputConfig{
			Format: "console",
		},
		ShellHistory: ShellHistoryConfig{
			ShellsFile:   "/etc/shells",
			HistoryFiles: map[string]string{},
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative, got %d", c.Scan.Workers)
	}
	if c.Scan.MaxFileBytes < 0 {
		return fmt.Errorf("scan.maxFileBytes must not be negative, got %d", c.Scan.MaxFileBytes)
	}
	if c.Output.Top < 0 {
		return fmt.Errorf("output.top must not be negative, got %d", c.Output.Top)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must not be negative")
	}
	return nil
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{DefaultFileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, DefaultFileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
