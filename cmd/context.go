package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/config"
	"github.com/masmgr/keycheck-go/internal/detect"
	"github.com/masmgr/keycheck-go/internal/output"
	"github.com/masmgr/keycheck-go/internal/scanner"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all commands.
type CommandContext struct {
	Config   *config.Config
	Logger   *slog.Logger
	Detector *detect.PatternDetector
	Path     string

	logCloser io.Closer
}

// NewCommandContext creates a context from CLI flags.
// It loads configuration, applies flag overrides, sets up logging and
// compiles the key pattern.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, closer := newLogger(cfg.Logging, c.Bool("verbose"), c.App.ErrWriter)

	d, err := detect.NewPatternDetector(cfg.Detector.Pattern)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("invalid key pattern: %w", err)
	}

	path := "."
	if c.NArg() > 0 {
		path = c.Args().Get(0)
	}

	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Detector:  d,
		Path:      path,
		logCloser: closer,
	}, nil
}

// Close releases the log file, if any.
func (ctx *CommandContext) Close() error {
	if ctx.logCloser == nil {
		return nil
	}
	return ctx.logCloser.Close()
}

// PolicyOptions returns the exclusion settings for the scanner.
func (ctx *CommandContext) PolicyOptions() scanner.PolicyOptions {
	return scanner.PolicyOptions{
		IgnoreFile:  ctx.Config.Scan.IgnoreFile,
		Exclude:     ctx.Config.Filters.Exclude,
		NoGitignore: ctx.Config.Scan.NoGitignore,
	}
}

// ScannerOptions returns the worker and size settings for the scanner.
func (ctx *CommandContext) ScannerOptions() scanner.Options {
	return scanner.Options{
		Workers:      ctx.Config.Scan.Workers,
		MaxFileBytes: ctx.Config.Scan.MaxFileBytes,
		Logger:       ctx.Logger,
	}
}

// NewScanner builds a tree scanner from the configuration.
func (ctx *CommandContext) NewScanner() *scanner.Scanner {
	return scanner.New(ctx.Detector, ctx.PolicyOptions(), ctx.ScannerOptions())
}

// OutputOptions creates OutputOptions from the configuration.
func (ctx *CommandContext) OutputOptions() (output.OutputOptions, error) {
	format, err := output.ParseFormat(ctx.Config.Output.Format)
	if err != nil {
		return output.OutputOptions{}, err
	}
	return output.OutputOptions{
		Format:     format,
		Top:        ctx.Config.Output.Top,
		OutputPath: ctx.Config.Output.Path,
	}, nil
}

// Stdout returns the writer for user-facing messages.
func Stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}
