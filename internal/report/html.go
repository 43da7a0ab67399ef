package report

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"io"

	"github.com/nao1215/routescan/internal/model"
)

//go:embed templates/report.html.tmpl
var reportTemplate string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"bytes": formatBytes,
}).Parse(reportTemplate))

// errDiffNotSupported is returned by writers that only render full reports.
var errDiffNotSupported = errors.New("diff output is not supported by this writer")

// HTMLWriter renders a report as a static HTML page. Every value taken from
// the crawl is escaped by html/template.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{baseWriter: newBaseWriter(output)}
}

// htmlView is the data passed to the template.
type htmlView struct {
	Report     *model.Report
	Categories []categoryRow
	TotalSize  string
}

// Write renders the report.
func (w *HTMLWriter) Write(report *model.Report) (int, error) {
	var buf bytes.Buffer
	view := htmlView{
		Report:     report,
		Categories: categoryRows(report),
		TotalSize:  formatBytes(report.TotalBytes()),
	}
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// WriteDiff is not supported for HTML output.
func (w *HTMLWriter) WriteDiff(_, _ *model.Report, _ *model.ReportDiff) (int, error) {
	return 0, errDiffNotSupported
}
