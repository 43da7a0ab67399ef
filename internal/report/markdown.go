package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/routescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCategories(md, report)
	w.writeRoutes(md, report)
	w.writeFiles(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	info := report.ScanInfo

	md.H1("routescan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + info.TargetURL + "`"},
		{"Scan Date", info.ScanDate},
		{"Duration", info.Duration},
		{"Routes", strconv.Itoa(info.TotalRoutes)},
		{"Files", strconv.Itoa(info.TotalFiles) + " (" + formatBytes(report.TotalBytes()) + ")"},
		{"Failures", strconv.Itoa(len(report.Failures))},
	}
	if info.SessionID != "" {
		rows = append(rows, []string{"Scan ID", "`" + info.SessionID + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert highlights the files most likely to leak information.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	counts := report.CategoryCounts()
	switch {
	case counts[model.CategoryConfig] > 0:
		md.Cautionf("%d configuration file(s) were publicly reachable.", counts[model.CategoryConfig])
	case counts[model.CategoryData]+counts[model.CategoryArchives] > 0:
		md.Warningf("%d data file(s) or archive(s) were publicly reachable.",
			counts[model.CategoryData]+counts[model.CategoryArchives])
	case len(report.Failures) > 0:
		md.Note(fmt.Sprintf("%d locator(s) could not be processed; see Failures.", len(report.Failures)))
	case len(report.Files) == 0 && len(report.Routes) == 0:
		md.Note("Nothing was reachable from the target.")
	default:
		md.Tip("No configuration, data or archive files were found.")
	}
	md.PlainText("")
}

// writeCategories writes the per-category table and a pie chart.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, report *model.Report) {
	rows := categoryRows(report)
	if len(rows) == 0 {
		return
	}

	md.H2("Files by Category")
	md.PlainText("")

	tableRows := make([][]string, 0, len(rows))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Files by Category"),
		piechart.WithShowData(true),
	)
	for _, row := range rows {
		tableRows = append(tableRows, []string{row.Title, strconv.Itoa(row.Count)})
		chart.LabelAndIntValue(row.Title, uint64(row.Count))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Files"},
		Rows:   tableRows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRoutes writes the discovered routes.
func (w *MarkdownWriter) writeRoutes(md *markdown.Markdown, report *model.Report) {
	md.H2("Routes")
	md.PlainText("")

	if len(report.Routes) == 0 {
		md.PlainText("No routes discovered.")
		md.PlainText("")
		return
	}

	routes := make([]string, len(report.Routes))
	for i, r := range report.Routes {
		routes[i] = "`" + r + "`"
	}
	md.BulletList(routes...)
	md.PlainText("")
}

// writeFiles writes the downloaded files and their metadata.
func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, report *model.Report) {
	md.H2("Files")
	md.PlainText("")

	if len(report.Files) == 0 {
		md.PlainText("No files downloaded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Files))
	for i, f := range report.Files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "-"
		}
		rows[i] = []string{
			truncateString(f.URL, 80),
			categoryTitle(f.Category),
			contentType,
			formatBytes(f.Size),
			"`" + truncateString(f.Hash, 16) + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Category", "Content Type", "Size", "SHA-256"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range report.Files {
		if len(f.Metadata) == 0 {
			continue
		}
		md.Details(f.URL, metadataTable(f.Metadata))
	}
	md.PlainText("")
}

// metadataTable renders metadata as a Markdown table string.
func metadataTable(metadata map[string]string) string {
	keys := sortedMetadataKeys(metadata)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, truncateString(metadata[k], 80)}
	}

	inner := markdown.NewMarkdown(io.Discard)
	inner.PlainText("")
	inner.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows:   rows,
	})
	return inner.String()
}

// writeFailures writes the locators that could not be processed.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.Report) {
	if len(report.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{truncateString(f.URL, 80), string(f.Kind), truncateString(f.Message, 100)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteDiff outputs the comparison of two runs in Markdown format.
func (w *MarkdownWriter) WriteDiff(older, newer *model.Report, diff *model.ReportDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("routescan Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Older", "Newer"},
		Rows: [][]string{
			{"Target", "`" + older.ScanInfo.TargetURL + "`", "`" + newer.ScanInfo.TargetURL + "`"},
			{"Scan Date", older.ScanInfo.ScanDate, newer.ScanInfo.ScanDate},
			{"Routes", strconv.Itoa(older.ScanInfo.TotalRoutes), strconv.Itoa(newer.ScanInfo.TotalRoutes)},
			{"Files", strconv.Itoa(older.ScanInfo.TotalFiles), strconv.Itoa(newer.ScanInfo.TotalFiles)},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("No changes between the two runs.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	writeRouteList(md, "Added Routes", diff.AddedRoutes)
	writeRouteList(md, "Removed Routes", diff.RemovedRoutes)
	writeFileList(md, "Added Files", diff.AddedFiles)
	writeFileList(md, "Removed Files", diff.RemovedFiles)

	if len(diff.ChangedFiles) > 0 {
		md.H2("Changed Files")
		md.PlainText("")
		rows := make([][]string, len(diff.ChangedFiles))
		for i, c := range diff.ChangedFiles {
			rows[i] = []string{
				truncateString(c.URL, 80),
				"`" + truncateString(c.OldHash, 16) + "`",
				"`" + truncateString(c.NewHash, 16) + "`",
				formatBytes(c.OldSize) + " → " + formatBytes(c.NewSize),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Old SHA-256", "New SHA-256", "Size"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func writeRouteList(md *markdown.Markdown, title string, routes []string) {
	if len(routes) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")
	items := make([]string, len(routes))
	for i, r := range routes {
		items[i] = "`" + r + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writeFileList(md *markdown.Markdown, title string, files []model.FileRecord) {
	if len(files) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")
	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{truncateString(f.URL, 80), categoryTitle(f.Category), formatBytes(f.Size)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Category", "Size"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [routescan](https://github.com/nao1215/routescan)*")
}
