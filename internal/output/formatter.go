package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/masmgr/keycheck-go/internal/git"
)

// Compile-time interface conformance checks.
var (
	_ ReportWriter = (*ConsoleWriter)(nil)
	_ ReportWriter = (*JSONWriter)(nil)
	_ ReportWriter = (*CSVWriter)(nil)
	_ ReportWriter = (*MarkdownWriter)(nil)
	_ ReportWriter = (*CIWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// Formats lists every supported format.
var Formats = []OutputFormat{FormatConsole, FormatJSON, FormatCSV, FormatMarkdown, FormatCI}

// ParseFormat validates a format name. The empty string means console.
func ParseFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatConsole, nil
	}
	f := OutputFormat(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (expected one of console, json, csv, markdown, ci)", s)
}

// ReportMode tells which command produced a report.
type ReportMode string

const (
	ModeScan    ReportMode = "scan"
	ModeHistory ReportMode = "history"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int
	OutputPath string
}

// FindingReport holds the findings of one scan or history walk.
type FindingReport struct {
	Mode        ReportMode
	Root        string
	GeneratedAt time.Time
	// CommitsScanned is only set in history mode.
	CommitsScanned int
	Items          []FindingItem
}

// FindingItem is one reported file and line. Commit is nil for a
// working-tree scan.
type FindingItem struct {
	Path   string
	Line   int
	Commit *git.CommitInfo
}

// Location returns "path:line".
func (i FindingItem) Location() string {
	return fmt.Sprintf("%s:%d", i.Path, i.Line)
}

// ReportWriter writes finding reports.
type ReportWriter interface {
	Write(report *FindingReport, options OutputOptions) error
}

// NewReportWriter creates a report writer for the specified format.
func NewReportWriter(format OutputFormat) ReportWriter {
	switch format {
	case FormatJSON:
		return &JSONWriter{}
	case FormatCSV:
		return &CSVWriter{}
	case FormatMarkdown:
		return &MarkdownWriter{}
	case FormatCI:
		return &CIWriter{}
	default:
		return &ConsoleWriter{}
	}
}
