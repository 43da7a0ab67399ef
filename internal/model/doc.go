// Package model defines the core data structures used throughout routescan.
//
// This package contains the following main types:
//   - Category: Coarse classification bucket derived from a file extension
//   - Session: Identity and on-disk namespace of one crawl run
//   - FileRecord: Metadata of one persisted resource
//   - Report: The final, write-once scan result
//   - Scan: The per-target unit of work passed through the pipeline
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, download, report and database packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
