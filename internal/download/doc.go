// Package download persists non-HTML resources found during a crawl.
//
// A Downloader streams one resource into root/<category>/<name>, verifies
// it by hashing the persisted artifact, and returns a model.FileRecord.
// A Pool runs downloads with bounded concurrency so the page loop never
// waits on an individual file.
package download
