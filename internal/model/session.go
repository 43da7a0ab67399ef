package model

import (
	"path/filepath"
	"time"
)

// ReportsDirName is the name of the per-session report directory.
const ReportsDirName = "reports"

// Session identifies one crawl run and its on-disk namespace.
// It is created once at crawl start and never modified afterwards.
type Session struct {
	// ID is a random identifier for the run.
	ID string `json:"id"`

	// Target is the target URL exactly as the crawl starts from it.
	Target string `json:"target"`

	// Host is the target's host[:port].
	Host string `json:"host"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// Dir is the session storage root, e.g. scans/example.com_20250101_120000.
	Dir string `json:"dir"`
}

// CategoryDir returns the directory that holds files of the given category.
func (s *Session) CategoryDir(c Category) string {
	return filepath.Join(s.Dir, c.String())
}

// ReportsDir returns the directory that holds report artifacts and the log.
func (s *Session) ReportsDir() string {
	return filepath.Join(s.Dir, ReportsDirName)
}

// LogPath returns the path of the session event log.
func (s *Session) LogPath() string {
	return filepath.Join(s.ReportsDir(), "scan.log")
}
