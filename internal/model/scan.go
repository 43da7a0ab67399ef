package model

import (
	"errors"
	"log/slog"
	"time"
)

// Scan is the unit of work for one target. Pipeline steps fill it in
// order: session setup, crawl, report, history.
type Scan struct {
	// Target is the target URL as given by the user.
	Target string

	// Session is set by the setup step. Nil means setup did not complete.
	Session *Session

	// StartedAt is when the scan was created.
	StartedAt time.Time

	// Duration is the wall-clock time of the crawl.
	Duration time.Duration

	// Routes, Files and Failures are the crawl results.
	Routes   []string
	Files    []FileRecord
	Failures []Failure

	// Report is set by the report step.
	Report *Report

	// Logger is the session logger (console + scan.log).
	// Steps fall back to their own logger while it is nil.
	Logger *slog.Logger

	// StepErrors holds errors of steps that failed without aborting the scan.
	StepErrors []error

	// Cancelled is true if the context was cancelled mid-pipeline.
	Cancelled bool

	cleanups []func() error
}

// NewScan creates a Scan for target.
func NewScan(target string) *Scan {
	return &Scan{
		Target:    target,
		StartedAt: time.Now(),
	}
}

// OnClose registers fn to run when the scan is closed.
// Functions run in reverse registration order.
func (s *Scan) OnClose(fn func() error) {
	s.cleanups = append(s.cleanups, fn)
}

// Close runs all registered cleanup functions.
func (s *Scan) Close() error {
	var errs []error
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.cleanups = nil
	return errors.Join(errs...)
}

// Err returns all step errors joined, or nil.
func (s *Scan) Err() error {
	return errors.Join(s.StepErrors...)
}
