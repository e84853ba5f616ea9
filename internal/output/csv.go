package output

import (
	"encoding/csv"
	"os"
	"strconv"
)

// CSVWriter writes finding reports as CSV.
type CSVWriter struct{}

// Write outputs the finding report as CSV. History reports carry the
// commit columns.
func (w *CSVWriter) Write(report *FindingReport, options OutputOptions) error {
	items := limitTop(report.Items, options.Top)

	writer, file, err := createCSVWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	history := report.Mode == ModeHistory

	headers := []string{"Path", "Line"}
	if history {
		headers = append(headers, "Commit", "Author", "Date", "Message")
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, item := range items {
		row := []string{item.Path, strconv.Itoa(item.Line)}
		if history {
			if c := item.Commit; c != nil {
				row = append(row, c.SHA, c.Author.Name, formatCommitDate(c.When), c.Message)
			} else {
				row = append(row, "", "", "", "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func createCSVWriter(outputPath string) (*csv.Writer, *os.File, error) {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(out), file, nil
}
