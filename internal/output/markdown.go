package output

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownWriter writes finding reports as Markdown.
type MarkdownWriter struct{}

// Write outputs the finding report as Markdown.
func (w *MarkdownWriter) Write(report *FindingReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	// Header
	fmt.Fprintf(out, "# %s Private Key Scan Results\n\n", statusEmoji(len(report.Items)))
	fmt.Fprintf(out, "**Root:** %s\n\n", report.Root)
	fmt.Fprintf(out, "**Generated:** %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	if report.Mode == ModeHistory {
		fmt.Fprintf(out, "**Commits Scanned:** %d\n\n", report.CommitsScanned)
	}
	fmt.Fprintf(out, "**Total Findings:** %d\n\n", len(report.Items))

	if len(report.Items) == 0 {
		fmt.Fprintln(out, "No private keys found.")
		return nil
	}

	fmt.Fprintln(out, "## Findings")
	fmt.Fprintln(out)
	if report.Mode == ModeHistory {
		fmt.Fprintln(out, "| # | Path | Line | Commit | Author | Message |")
		fmt.Fprintln(out, "|---|------|------|--------|--------|---------|")
	} else {
		fmt.Fprintln(out, "| # | Path | Line |")
		fmt.Fprintln(out, "|---|------|------|")
	}

	for i, item := range items {
		if report.Mode != ModeHistory {
			fmt.Fprintf(out, "| %d | `%s` | %d |\n", i+1, item.Path, item.Line)
			continue
		}
		sha, author, msg := "", "", ""
		if c := item.Commit; c != nil {
			sha = "`" + c.ShortSHA() + "`"
			author = escapeMarkdown(c.Author.Name)
			msg = escapeMarkdown(truncateMessage(c.Message, 60))
		}
		fmt.Fprintf(out, "| %d | `%s` | %d | %s | %s | %s |\n", i+1, item.Path, item.Line, sha, author, msg)
	}

	if omitted := len(report.Items) - len(items); omitted > 0 {
		fmt.Fprintf(out, "\n_%d more findings omitted._\n", omitted)
	}

	return nil
}

func statusEmoji(findings int) string {
	if findings > 0 {
		return "🔴"
	}
	return "🟢"
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
