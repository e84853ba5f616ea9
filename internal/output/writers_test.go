package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleWriter_Scan(t *testing.T) {
	var buf bytes.Buffer
	if err := (&ConsoleWriter{Out: &buf}).Write(scanReport(), OutputOptions{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"Root: /work/wallet",
		"Warning: private keys found in the following files:",
		"config/keys.env:7\n",
		"scripts/deploy.sh:12\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("console output missing %q:\n%s", want, got)
		}
	}
}

func TestConsoleWriter_NoFindings(t *testing.T) {
	report := scanReport()
	report.Items = nil

	var buf bytes.Buffer
	if err := (&ConsoleWriter{Out: &buf}).Write(report, OutputOptions{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No private keys found.") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestConsoleWriter_History(t *testing.T) {
	var buf bytes.Buffer
	if err := (&ConsoleWriter{Out: &buf}).Write(historyReport(), OutputOptions{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"Commits scanned: 3", "1 files across 1 commits", "4b825dc6", "config/keys.env:7", "Ada"} {
		if !strings.Contains(got, want) {
			t.Errorf("console output missing %q:\n%s", want, got)
		}
	}
}

func TestConsoleWriter_TopLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := (&ConsoleWriter{Out: &buf}).Write(scanReport(), OutputOptions{Top: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	if strings.Contains(got, "scripts/deploy.sh") || !strings.Contains(got, "... and 1 more") {
		t.Errorf("console output with Top=1:\n%s", got)
	}
}

func TestJSONWriter_Write(t *testing.T) {
	tests := []struct {
		name       string
		report     *FindingReport
		wantCommit bool
	}{
		{name: "Scan", report: scanReport()},
		{name: "History", report: historyReport(), wantCommit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := t.TempDir() + "/report.json"
			if err := (&JSONWriter{}).Write(tt.report, OutputOptions{OutputPath: path}); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			data, err := readTestFile(path)
			if err != nil {
				t.Fatalf("Failed to read output: %v", err)
			}

			var got JSONReport
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, data)
			}
			if got.Mode != string(tt.report.Mode) || got.Root != "/work/wallet" || got.GeneratedAt != "2026-03-04T05:06:07Z" {
				t.Errorf("header = %+v", got)
			}
			if got.TotalFindings != len(tt.report.Items) || len(got.Items) != len(tt.report.Items) {
				t.Fatalf("items = %+v", got.Items)
			}
			if got.Items[0].Path != "config/keys.env" || got.Items[0].Line != 7 {
				t.Errorf("item = %+v", got.Items[0])
			}
			if (got.Items[0].Commit != nil) != tt.wantCommit {
				t.Errorf("commit = %+v, want present=%v", got.Items[0].Commit, tt.wantCommit)
			}
			if (got.CommitsScanned != nil) != tt.wantCommit {
				t.Errorf("commitsScanned = %v, want present=%v", got.CommitsScanned, tt.wantCommit)
			}
		})
	}
}

func TestCSVWriter_Write(t *testing.T) {
	tests := []struct {
		name     string
		report   *FindingReport
		expected [][]string
	}{
		{
			name:   "Scan",
			report: scanReport(),
			expected: [][]string{
				{"Path", "Line"},
				{"config/keys.env", "7"},
				{"scripts/deploy.sh", "12"},
			},
		},
		{
			name:   "History",
			report: historyReport(),
			expected: [][]string{
				{"Path", "Line", "Commit", "Author", "Date", "Message"},
				{"config/keys.env", "7", "4b825dc642cb6eb9a060e54bf8d69288fbee4904", "Ada", "2026-03-04T05:06:07", "add signer_config | temp"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := t.TempDir() + "/report.csv"
			if err := (&CSVWriter{}).Write(tt.report, OutputOptions{OutputPath: path}); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			data, err := readTestFile(path)
			if err != nil {
				t.Fatalf("Failed to read output: %v", err)
			}
			records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}
			if len(records) != len(tt.expected) {
				t.Fatalf("records = %v, expected %v", records, tt.expected)
			}
			for i := range records {
				if strings.Join(records[i], ",") != strings.Join(tt.expected[i], ",") {
					t.Errorf("row %d = %v, expected %v", i, records[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMarkdownWriter_Write(t *testing.T) {
	path := t.TempDir() + "/report.md"
	if err := (&MarkdownWriter{}).Write(historyReport(), OutputOptions{OutputPath: path}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := readTestFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	got := string(data)
	for _, want := range []string{
		"# \U0001F534 Private Key Scan Results",
		"**Commits Scanned:** 3",
		"**Total Findings:** 1",
		"| 1 | `config/keys.env` | 7 | `4b825dc6` | Ada | add signer\\_config \\| temp |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}

func TestMarkdownWriter_NoFindings(t *testing.T) {
	report := scanReport()
	report.Items = nil
	path := t.TempDir() + "/report.md"
	if err := (&MarkdownWriter{}).Write(report, OutputOptions{OutputPath: path}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, _ := readTestFile(path)
	if !strings.Contains(string(data), "No private keys found.") || strings.Contains(string(data), "## Findings") {
		t.Errorf("markdown = %s", data)
	}
}
