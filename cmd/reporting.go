package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/internal/git"
	"github.com/masmgr/keycheck-go/internal/history"
	"github.com/masmgr/keycheck-go/internal/output"
	"github.com/masmgr/keycheck-go/internal/scanner"
)

func writeReport(c *cli.Context, report *output.FindingReport, opts output.OutputOptions) error {
	writer := output.NewReportWriter(opts.Format)
	if cw, ok := writer.(*output.ConsoleWriter); ok && opts.OutputPath == "" {
		cw.Out = Stdout(c)
	}
	if err := writer.Write(report, opts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func scanItems(findings []scanner.Finding) []output.FindingItem {
	items := make([]output.FindingItem, len(findings))
	for i, f := range findings {
		items[i] = output.FindingItem{Path: f.Path, Line: f.Line}
	}
	return items
}

// historyItems attaches commit metadata to each finding, in walk order.
func historyItems(repo git.Backend, results []history.CommitFindings) ([]output.FindingItem, error) {
	var items []output.FindingItem
	for _, r := range results {
		info, err := repo.CommitInfo(r.Commit)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", r.Commit, err)
		}
		for _, f := range r.Findings {
			items = append(items, output.FindingItem{Path: f.Path, Line: f.Line, Commit: &info})
		}
	}
	return items, nil
}

// findingsExit turns a finding count into the command result.
func findingsExit(n int) error {
	if n > 0 {
		return cli.Exit("", ExitFindings)
	}
	return nil
}
