package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

// ConsoleWriter writes finding reports for a terminal.
type ConsoleWriter struct {
	// Out overrides the destination; nil means OutputPath or stdout.
	Out io.Writer
}

// Write outputs the finding report to the console.
func (w *ConsoleWriter) Write(report *FindingReport, options OutputOptions) error {
	out := w.Out
	if out == nil {
		o, file, err := openOutputWriter(options.OutputPath)
		if err != nil {
			return err
		}
		if file != nil {
			defer file.Close()
		}
		out = o
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintf(out, "Root: %s\n", report.Root)
	if report.Mode == ModeHistory {
		fmt.Fprintf(out, "Commits scanned: %d\n", report.CommitsScanned)
	}

	if len(report.Items) == 0 {
		green.Fprintln(out, "No private keys found.")
		return nil
	}

	items := limitTop(report.Items, options.Top)

	if report.Mode != ModeHistory {
		yellow.Fprintln(out, "Warning: private keys found in the following files:")
		for _, item := range items {
			red.Fprintln(out, item.Location())
		}
		printOmitted(out, len(report.Items)-len(items))
		return nil
	}

	files, commits := distinctCounts(report.Items)
	yellow.Fprintf(out, "Warning: private keys found in %d files across %d commits:\n\n", files, commits)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Commit\tLocation\tAuthor\tMessage")
	for _, item := range items {
		sha, author, msg := "", "", ""
		if item.Commit != nil {
			sha = item.Commit.ShortSHA()
			author = item.Commit.Author.Name
			msg = truncateMessage(item.Commit.Message, 50)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sha, red.Sprint(item.Location()), author, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printOmitted(out, len(report.Items)-len(items))
	return nil
}

func printOmitted(out io.Writer, n int) {
	if n > 0 {
		fmt.Fprintf(out, "... and %d more\n", n)
	}
}

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}
