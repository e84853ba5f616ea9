package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/config"
)

// Exit codes.
const (
	ExitClean    = 0
	ExitFindings = 1
	ExitError    = 2
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "keycheck",
		Usage:     "Find leaked private keys in a working tree, its Git history and shell history",
		Version:   "1.0.0",
		ArgsUsage: "[path]",
		Commands: []*cli.Command{
			ScanCmd(),
			HistoryCmd(),
			ShellHistoryCmd(),
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: ./" + config.DefaultFileName + " or ~/" + config.DefaultFileName + ")",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug details to stderr or the log file",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write diagnostic logs to this file, rotated (default: stderr)",
			},
		}, scanFlags()...),
		// Running without a subcommand scans the given path, or the current directory.
		Action: scanAction,
		// Exit codes are mapped by Run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Common flags shared across scanning commands
func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "pattern",
			Usage: "Regular expression a key must match (default: 0x followed by 64 hex digits)",
		},
		&cli.StringFlag{
			Name:  "ignore-file",
			Usage: "Ignore file at the scan root, in .gitignore syntax; \"-\" disables (default: .keycheckignore)",
		},
		&cli.BoolFlag{
			Name:  "no-gitignore",
			Usage: "Do not honour .gitignore files inside the scanned tree",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (can be specified multiple times)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Files read concurrently (default: one per CPU)",
		},
		&cli.Int64Flag{
			Name:  "max-file-bytes",
			Usage: "Skip files larger than this many bytes (default: no limit)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Show at most this many findings (default: all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
	}
}

// loadConfig loads configuration from file or defaults and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if fc, ok := flagSetIn(c, "pattern"); ok {
		cfg.Detector.Pattern = fc.String("pattern")
	}
	if fc, ok := flagSetIn(c, "ignore-file"); ok {
		cfg.Scan.IgnoreFile = fc.String("ignore-file")
	}
	if fc, ok := flagSetIn(c, "no-gitignore"); ok {
		cfg.Scan.NoGitignore = fc.Bool("no-gitignore")
	}
	if fc, ok := flagSetIn(c, "exclude"); ok {
		cfg.Filters.Exclude = fc.StringSlice("exclude")
	}
	if fc, ok := flagSetIn(c, "workers"); ok {
		cfg.Scan.Workers = fc.Int("workers")
	}
	if fc, ok := flagSetIn(c, "max-file-bytes"); ok {
		cfg.Scan.MaxFileBytes = fc.Int64("max-file-bytes")
	}
	if fc, ok := flagSetIn(c, "format"); ok {
		cfg.Output.Format = fc.String("format")
	}
	if fc, ok := flagSetIn(c, "top"); ok {
		cfg.Output.Top = fc.Int("top")
	}
	if fc, ok := flagSetIn(c, "output"); ok {
		cfg.Output.Path = fc.String("output")
	}
	if fc, ok := flagSetIn(c, "log-file"); ok {
		cfg.Logging.File = fc.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagSetIn returns the innermost context in which name was given. Scan
// flags exist on both the app and its commands, and a command context only
// sees its own copy.
func flagSetIn(c *cli.Context, name string) (*cli.Context, bool) {
	for _, fc := range c.Lineage() {
		if fc.IsSet(name) {
			return fc, true
		}
	}
	return nil, false
}

// ExitCode maps an error returned by App().Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitClean
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitError
}

// Run executes the CLI application.
func Run() {
	err := App().Run(os.Args)
	code := ExitCode(err)
	if err != nil && err.Error() != "" {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
