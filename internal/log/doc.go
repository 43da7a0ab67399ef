// Package log provides the scan event log, built on top of the standard
// slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Redaction of sensitive query parameters inside logged URLs
//   - Fan-out of one record to several handlers (console and scan.log)
//
// # Usage
//
//	logFile, _ := os.Create(session.LogPath())
//	logger := log.NewScanLogger(os.Stderr, logFile, verbose)
//	logger.Info("visiting", "url", "http://example.com/?token=abc") // token=***REDACTED***
//
// The console receives Info and above (Debug with verbose); the log file
// always receives Debug and above so a finished scan.log is complete.
package log
