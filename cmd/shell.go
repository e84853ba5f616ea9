package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/keycheck-go/internal/shellhist"
)

// ShellHistoryCmd creates the shell-history command.
func ShellHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell-history",
		Usage: "Report private keys in the history files of installed shells, or remove them",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "Remove every key from the history files instead of reporting",
			},
			&cli.StringFlag{
				Name:  "shells-file",
				Usage: "File listing installed shells (default: /etc/shells)",
			},
			&cli.StringFlag{
				Name:  "home",
				Usage: "Home directory holding the history files (default: current user's)",
			},
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "Regular expression a key must match (default: 0x followed by 64 hex digits)",
			},
		},
		Action: shellHistoryAction,
	}
}

func shellHistoryAction(c *cli.Context) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cc.Close()

	shellsFile := cc.Config.ShellHistory.ShellsFile
	if c.IsSet("shells-file") {
		shellsFile = c.String("shells-file")
	}

	cleaner := shellhist.New(cc.Detector, shellhist.Options{
		ShellsFile:   shellsFile,
		HomeDir:      c.String("home"),
		HistoryFiles: cc.Config.ShellHistory.HistoryFiles,
		Logger:       cc.Logger,
	})

	out := Stdout(c)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	deleting := c.Bool("delete")
	var results []shellhist.Result
	if deleting {
		results, err = cleaner.Clean()
	} else {
		results, err = cleaner.Report()
	}
	if errors.Is(err, shellhist.ErrNoHomeDir) {
		yellow.Fprintln(out, "Failed to find the home directory for the current user.")
		return nil
	}

	// Results gathered before a failure are still shown.
	for _, r := range results {
		if deleting {
			yellow.Fprintf(out, "Private keys found in history file %s, removed %d.\n", r.Path, len(r.Lines))
			continue
		}
		for _, line := range r.Lines {
			red.Fprintf(out, "Private key found on line %d in file %s\n", line, r.Path)
		}
	}
	if err != nil {
		return fmt.Errorf("shell history: %w", err)
	}

	if len(results) == 0 {
		color.New(color.FgGreen).Fprintln(out, "No private keys found in shell history.")
		return nil
	}
	if deleting {
		return nil
	}
	return findingsExit(len(results))
}
