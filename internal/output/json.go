package output

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSONWriter writes finding reports as JSON.
type JSONWriter struct{}

// JSONReport is the JSON output structure for a finding report.
type JSONReport struct {
	Mode           string     `json:"mode"`
	Root           string     `json:"root"`
	GeneratedAt    string     `json:"generatedAt"`
	CommitsScanned *int       `json:"commitsScanned,omitempty"`
	TotalFindings  int        `json:"totalFindings"`
	Items          []JSONItem `json:"items"`
}

// JSONItem is the JSON output structure for a single finding.
type JSONItem struct {
	Path   string      `json:"path"`
	Line   int         `json:"line"`
	Commit *JSONCommit `json:"commit,omitempty"`
}

// JSONCommit identifies the commit a finding was seen in.
type JSONCommit struct {
	SHA     string `json:"sha"`
	Author  string `json:"author,omitempty"`
	Email   string `json:"email,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message,omitempty"`
}

// Write outputs the finding report as JSON.
func (w *JSONWriter) Write(report *FindingReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	jsonItems := make([]JSONItem, len(items))
	for i, item := range items {
		jsonItems[i] = JSONItem{Path: item.Path, Line: item.Line}
		if c := item.Commit; c != nil {
			jsonItems[i].Commit = &JSONCommit{
				SHA:     c.SHA,
				Author:  c.Author.Name,
				Email:   c.Author.Email,
				Message: c.Message,
			}
			if !c.When.IsZero() {
				jsonItems[i].Commit.Date = c.When.Format(time.RFC3339)
			}
		}
	}

	jsonReport := JSONReport{
		Mode:          string(report.Mode),
		Root:          report.Root,
		GeneratedAt:   report.GeneratedAt.Format(time.RFC3339),
		TotalFindings: len(report.Items),
		Items:         jsonItems,
	}
	if report.Mode == ModeHistory {
		n := report.CommitsScanned
		jsonReport.CommitsScanned = &n
	}

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jsonReport); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
