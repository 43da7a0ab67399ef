// Package fingerprint extracts identifying metadata from downloaded files.
//
// Image EXIF tags, PDF info dictionaries with their XMP packets, and
// spreadsheet document properties regularly leak author names, internal
// hostnames, software versions and GPS positions. The extractors read the
// persisted artifact, never the network stream, and return a flat
// string map that ends up in FileRecord.Metadata.
package fingerprint
