package output

import (
	"io"
	"os"
	"time"
)

const reportDateTimeLayout = "2006-01-02T15:04:05"

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

func formatCommitDate(when time.Time) string {
	if when.IsZero() {
		return ""
	}
	return when.Format(reportDateTimeLayout)
}

// distinctCounts returns the number of different paths and commits among items.
func distinctCounts(items []FindingItem) (files, commits int) {
	paths := make(map[string]struct{})
	shas := make(map[string]struct{})
	for _, item := range items {
		paths[item.Path] = struct{}{}
		if item.Commit != nil {
			shas[item.Commit.SHA] = struct{}{}
		}
	}
	return len(paths), len(shas)
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}
