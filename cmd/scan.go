package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/internal/output"
)

// ScanCmd creates the scan command for the working tree.
func ScanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a directory tree for private keys",
		ArgsUsage: "[path]",
		Flags:     scanFlags(),
		Action:    scanAction,
	}
}

func scanAction(c *cli.Context) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cc.Close()

	opts, err := cc.OutputOptions()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(cc.Path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cc.Path, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	cc.Logger.Debug("scanning tree", "root", root, "workers", cc.Config.Scan.Workers)

	findings, err := cc.NewScanner().ScanTree(ctx, root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	report := &output.FindingReport{
		Mode:        output.ModeScan,
		Root:        root,
		GeneratedAt: time.Now(),
		Items:       scanItems(findings),
	}
	if err := writeReport(c, report, opts); err != nil {
		return err
	}

	cc.Logger.Info("scan completed", "findings", len(findings), "elapsed", time.Since(start))
	return findingsExit(len(findings))
}
