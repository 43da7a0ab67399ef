// Package pipeline runs the scan of a target as an ordered list of steps.
//
// A scan goes through session setup, crawl, report and history. Each step
// receives the model.Scan filled in by the previous steps. Setup is
// critical: without a session directory nothing can be persisted, so its
// failure stops the pipeline. Failures of later steps are recorded on the
// scan and the remaining steps still run.
//
// When the context is cancelled, the pipeline skips the steps that would
// do new work but still runs the finalizing ones, so that the report of a
// partial crawl is written and stored.
//
// BatchProcessor scans several targets concurrently with errgroup.
package pipeline
