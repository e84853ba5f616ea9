package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// CIWriter writes finding reports as NDJSON (one JSON object per line) for CI pipelines.
type CIWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type           string `json:"type"`
	Mode           string `json:"mode"`
	TotalFindings  int    `json:"totalFindings"`
	Files          int    `json:"files"`
	Commits        int    `json:"commits,omitempty"`
	CommitsScanned int    `json:"commitsScanned,omitempty"`
}

// CIFinding represents a single finding in CI output.
type CIFinding struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Commit string `json:"commit,omitempty"`
}

// Write outputs the finding report as NDJSON.
func (w *CIWriter) Write(report *FindingReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	files, commits := distinctCounts(report.Items)
	summary := CISummary{
		Type:           "summary",
		Mode:           string(report.Mode),
		TotalFindings:  len(report.Items),
		Files:          files,
		Commits:        commits,
		CommitsScanned: report.CommitsScanned,
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, item := range items {
		entry := CIFinding{Type: "finding", Path: item.Path, Line: item.Line}
		if item.Commit != nil {
			entry.Commit = item.Commit.SHA
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}

	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
