// Package report builds the aggregate report of a crawl and renders it.
//
// Build turns the accumulated routes, files and failures of one session
// into a model.Report. The writers render a report, or the difference
// between two reports, in one format each:
//   - JSONWriter: report.json, the machine-readable artifact
//   - HTMLWriter: report.html, a static page for humans
//   - MarkdownWriter: report.md, for sharing in issues and wikis
//   - SimpleWriter: the plain-text console summary
//
// WriteArtifacts writes the file artifacts of a session into its reports
// directory.
package report
