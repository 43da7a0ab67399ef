package model

import (
	"fmt"
	"time"
)

// ScanDateFormat is the layout of ScanInfo.ScanDate.
const ScanDateFormat = "2006-01-02 15:04:05"

// Report is the aggregate result of one crawl run.
// It is produced once at the end of a run and never modified afterwards.
type Report struct {
	// ScanInfo summarizes the run.
	ScanInfo ScanInfo `json:"scan_info"`

	// Routes is the sorted list of discovered paths.
	Routes []string `json:"routes"`

	// Files lists every persisted resource, sorted by URL.
	Files []FileRecord `json:"files"`

	// Failures lists locators that could not be processed.
	Failures []Failure `json:"failures,omitempty"`
}

// ScanInfo summarizes a run.
type ScanInfo struct {
	// TargetURL is the URL the crawl started from.
	TargetURL string `json:"target_url"`

	// ScanDate is when the report was built, formatted with ScanDateFormat.
	ScanDate string `json:"scan_date"`

	// Duration is the human-readable run duration, e.g. "12.34 seconds".
	Duration string `json:"duration"`

	// TotalRoutes is len(Report.Routes).
	TotalRoutes int `json:"total_routes"`

	// TotalFiles is len(Report.Files).
	TotalFiles int `json:"total_files"`

	// SessionID is the ID of the session that produced the report.
	SessionID string `json:"session_id,omitempty"`

	// OutputDir is the session storage root.
	OutputDir string `json:"output_dir,omitempty"`
}

// FormatDuration renders d the way ScanInfo.Duration expects.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f seconds", d.Seconds())
}

// CategoryCounts returns the number of files per category.
// Categories without files are omitted.
func (r *Report) CategoryCounts() map[Category]int {
	counts := make(map[Category]int)
	for _, f := range r.Files {
		counts[f.Category]++
	}
	return counts
}

// TotalBytes returns the combined size of all persisted files.
func (r *Report) TotalBytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// FileByURL returns the record downloaded from url, if any.
func (r *Report) FileByURL(url string) (FileRecord, bool) {
	for _, f := range r.Files {
		if f.URL == url {
			return f, true
		}
	}
	return FileRecord{}, false
}
