package report

import (
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/routescan/internal/model"
)

// Writer renders reports in one output format.
type Writer interface {
	// Write outputs the report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)

	// WriteDiff outputs the changes between two reports of the same target.
	WriteDiff(older, newer *model.Report, diff *model.ReportDiff) (int, error)
}

// MultiWriter writes to multiple Writers in order and stops on the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDiff outputs the diff to all configured Writers.
func (m *MultiWriter) WriteDiff(older, newer *model.Report, diff *model.ReportDiff) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDiff(older, newer, diff)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// categoryTitle returns the display name of a category, e.g. "Archives".
// A Caser keeps state, so each call gets its own.
func categoryTitle(c model.Category) string {
	return cases.Title(language.English).String(c.String())
}

// formatBytes renders a size for humans, e.g. "1.2 MB".
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// categoryRow is one line of a per-category summary.
type categoryRow struct {
	Category model.Category
	Title    string
	Count    int
}

// categoryRows returns the non-empty categories of report in table order.
func categoryRows(report *model.Report) []categoryRow {
	counts := report.CategoryCounts()
	var rows []categoryRow
	for _, c := range model.AllCategories() {
		if counts[c] == 0 {
			continue
		}
		rows = append(rows, categoryRow{Category: c, Title: categoryTitle(c), Count: counts[c]})
	}
	return rows
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func sortedMetadataKeys(metadata map[string]string) []string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
