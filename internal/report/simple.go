package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/routescan/internal/model"
)

// SimpleWriter outputs the human-readable console summary.
//
// Colors are applied only when enabled and when color output is not
// globally disabled (NO_COLOR, non-terminal stdout).
type SimpleWriter struct {
	baseWriter

	// verbose lists every route and file instead of only the summary.
	verbose bool

	// colored enables ANSI colors for headings and warnings.
	colored bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every route and file.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables colored output.
func WithColor(colored bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colored = colored
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// paint applies attrs when colors are enabled.
func (w *SimpleWriter) paint(s string, attrs ...color.Attribute) string {
	if !w.colored {
		return s
	}
	return color.New(attrs...).Sprint(s)
}

// Write outputs the report summary.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "ROUTESCAN REPORT")
	w.writeScanInfo(&sb, report)
	w.writeCategories(&sb, report)
	if w.verbose {
		w.writeRoutes(&sb, report)
		w.writeFiles(&sb, report)
	}
	w.writeFailures(&sb, report)
	w.writeFooter(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(w.paint(centered(title, 70), color.Bold))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeScanInfo(sb *strings.Builder, report *model.Report) {
	info := report.ScanInfo
	fmt.Fprintf(sb, "Target:     %s\n", info.TargetURL)
	fmt.Fprintf(sb, "Scan Date:  %s\n", info.ScanDate)
	fmt.Fprintf(sb, "Duration:   %s\n", info.Duration)
	fmt.Fprintf(sb, "Routes:     %d\n", info.TotalRoutes)
	fmt.Fprintf(sb, "Files:      %d (%s)\n", info.TotalFiles, formatBytes(report.TotalBytes()))
	if info.OutputDir != "" {
		fmt.Fprintf(sb, "Output:     %s\n", info.OutputDir)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCategories(sb *strings.Builder, report *model.Report) {
	rows := categoryRows(report)
	if len(rows) == 0 {
		return
	}

	sb.WriteString(w.paint("FILES BY CATEGORY", color.Bold))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for _, row := range rows {
		label := fmt.Sprintf("  %-12s %5d", row.Title+":", row.Count)
		if row.Category == model.CategoryConfig || row.Category == model.CategoryData {
			label = w.paint(label, color.FgYellow)
		}
		sb.WriteString(label)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRoutes(sb *strings.Builder, report *model.Report) {
	if len(report.Routes) == 0 {
		return
	}
	sb.WriteString(w.paint("ROUTES", color.Bold))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for _, r := range report.Routes {
		fmt.Fprintf(sb, "  %s\n", r)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFiles(sb *strings.Builder, report *model.Report) {
	if len(report.Files) == 0 {
		return
	}
	sb.WriteString(w.paint("FILES", color.Bold))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for _, f := range report.Files {
		fmt.Fprintf(sb, "  [%s] %s (%s)\n", f.Category, f.URL, formatBytes(f.Size))
		for _, k := range sortedMetadataKeys(f.Metadata) {
			fmt.Fprintf(sb, "      %s: %s\n", k, truncateString(f.Metadata[k], 60))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.Report) {
	if len(report.Failures) == 0 {
		return
	}
	sb.WriteString(w.paint(fmt.Sprintf("FAILURES (%d)", len(report.Failures)), color.FgRed, color.Bold))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for _, f := range report.Failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Kind, f.URL)
		if w.verbose {
			fmt.Fprintf(sb, "      %s\n", f.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if report.ScanInfo.TotalRoutes == 0 && report.ScanInfo.TotalFiles == 0 {
		sb.WriteString(w.paint("Nothing was reachable from the target.", color.FgYellow))
	} else {
		sb.WriteString(w.paint(fmt.Sprintf("Found %d route(s) and %d file(s).",
			report.ScanInfo.TotalRoutes, report.ScanInfo.TotalFiles), color.FgGreen))
	}
	sb.WriteString("\n")
}

// WriteDiff outputs the comparison of two runs as plain text.
func (w *SimpleWriter) WriteDiff(older, newer *model.Report, diff *model.ReportDiff) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "ROUTESCAN COMPARISON")
	fmt.Fprintf(&sb, "Target:  %s\n", newer.ScanInfo.TargetURL)
	fmt.Fprintf(&sb, "Older:   %s (%d routes, %d files)\n",
		older.ScanInfo.ScanDate, older.ScanInfo.TotalRoutes, older.ScanInfo.TotalFiles)
	fmt.Fprintf(&sb, "Newer:   %s (%d routes, %d files)\n\n",
		newer.ScanInfo.ScanDate, newer.ScanInfo.TotalRoutes, newer.ScanInfo.TotalFiles)

	if !diff.HasChanges() {
		sb.WriteString(w.paint("No changes.", color.FgGreen))
		sb.WriteString("\n")
		return io.WriteString(w.output, sb.String())
	}

	for _, r := range diff.AddedRoutes {
		sb.WriteString(w.paint("+ route "+r, color.FgGreen))
		sb.WriteString("\n")
	}
	for _, r := range diff.RemovedRoutes {
		sb.WriteString(w.paint("- route "+r, color.FgRed))
		sb.WriteString("\n")
	}
	for _, f := range diff.AddedFiles {
		sb.WriteString(w.paint(fmt.Sprintf("+ file  %s [%s]", f.URL, f.Category), color.FgGreen))
		sb.WriteString("\n")
	}
	for _, f := range diff.RemovedFiles {
		sb.WriteString(w.paint(fmt.Sprintf("- file  %s [%s]", f.URL, f.Category), color.FgRed))
		sb.WriteString("\n")
	}
	for _, c := range diff.ChangedFiles {
		sb.WriteString(w.paint(fmt.Sprintf("~ file  %s (%s -> %s)",
			c.URL, truncateString(c.OldHash, 12), truncateString(c.NewHash, 12)), color.FgYellow))
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

// centered pads s with leading spaces to center it in width columns.
func centered(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
