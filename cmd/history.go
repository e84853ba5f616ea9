package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/internal/git"
	"github.com/masmgr/keycheck-go/internal/history"
	"github.com/masmgr/keycheck-go/internal/output"
)

// HistoryCmd creates the history command.
func HistoryCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Check out and scan every commit reachable from any branch, then restore the working tree",
		ArgsUsage: "[repository path]",
		Flags:     scanFlags(),
		Action:    historyAction,
	}
}

func historyAction(c *cli.Context) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cc.Close()

	opts, err := cc.OutputOptions()
	if err != nil {
		return err
	}

	repo, err := git.Open(cc.Path, cc.Logger)
	if err != nil {
		return fmt.Errorf("invalid Git repository - please run from or specify a path inside the project: %w", err)
	}
	defer repo.Close()

	var scanned int
	walker := history.NewWalker(repo, cc.NewScanner(), history.Options{
		Logger: cc.Logger,
		OnCommit: func(index, total int, commit plumbing.Hash) {
			scanned = index
			cc.Logger.Debug("checking out commit", "index", index, "total", total, "commit", commit.String())
		},
	})

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, err := walker.WalkDetailed(ctx)
	if err != nil {
		return explainHistoryError(c, err)
	}

	items, err := historyItems(repo, results)
	if err != nil {
		return err
	}

	report := &output.FindingReport{
		Mode:           output.ModeHistory,
		Root:           repo.Root(),
		GeneratedAt:    time.Now(),
		CommitsScanned: scanned,
		Items:          items,
	}
	if err := writeReport(c, report, opts); err != nil {
		return err
	}

	cc.Logger.Info("history scan completed", "commits", scanned, "findings", len(items), "elapsed", time.Since(start))
	return findingsExit(len(items))
}

// explainHistoryError prints guidance for the failures a user must act on.
func explainHistoryError(c *cli.Context, err error) error {
	w := c.App.ErrWriter
	switch {
	case errors.Is(err, history.ErrRestore):
		var re *history.RestoreError
		target := "the original branch"
		if errors.As(err, &re) {
			target = re.Commit.String()
			if re.Branch != "" {
				target = re.Branch.Short()
			}
		}
		red := color.New(color.FgRed, color.Bold)
		red.Fprintln(w, "!!! The working tree could not be restored.")
		red.Fprintf(w, "!!! HEAD may be left on a historical commit. Run `git checkout %s` to recover.\n", target)
	case errors.Is(err, history.ErrPrecondition):
		color.New(color.FgYellow).Fprintln(w, "Commit or stash your changes, then run the history scan again.")
	}
	return err
}
