package fingerprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the largest file an extractor will read.
const DefaultMaxFileSize = 32 * 1024 * 1024 // 32MB

// ErrFileTooLarge is returned when a file exceeds the extractor's size limit.
var ErrFileTooLarge = errors.New("file too large for metadata extraction")

// Extractor extracts metadata from one file format.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extensions lists the lowercase file extensions the extractor handles,
	// including the leading dot.
	Extensions() []string

	// Extract reads the file at path. A file without metadata yields an
	// empty map and no error.
	Extract(path string) (map[string]string, error)
}

// Fingerprinter dispatches files to the extractor registered for their extension.
type Fingerprinter struct {
	byExtension map[string]Extractor
}

// Option configures a Fingerprinter.
type Option func(*fingerprinterConfig)

type fingerprinterConfig struct {
	maxFileSize int64
	extractors  []Extractor
}

// WithMaxFileSize sets the size limit applied by the built-in extractors.
func WithMaxFileSize(n int64) Option {
	return func(c *fingerprinterConfig) {
		c.maxFileSize = n
	}
}

// WithExtractor registers an additional extractor. It takes precedence over
// built-in extractors for the extensions it lists.
func WithExtractor(e Extractor) Option {
	return func(c *fingerprinterConfig) {
		c.extractors = append(c.extractors, e)
	}
}

// New creates a Fingerprinter with the EXIF, PDF and spreadsheet extractors.
func New(opts ...Option) *Fingerprinter {
	cfg := &fingerprinterConfig{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(cfg)
	}

	builtins := []Extractor{
		NewEXIFExtractor(cfg.maxFileSize),
		NewPDFExtractor(cfg.maxFileSize),
		NewSpreadsheetExtractor(),
	}

	f := &Fingerprinter{byExtension: make(map[string]Extractor)}
	for _, e := range append(builtins, cfg.extractors...) {
		for _, ext := range e.Extensions() {
			f.byExtension[ext] = e
		}
	}
	return f
}

// Supports reports whether a registered extractor handles path.
func (f *Fingerprinter) Supports(path string) bool {
	_, ok := f.byExtension[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract returns the metadata of the file at path, or nil if no extractor
// handles its extension.
func (f *Fingerprinter) Extract(path string) (map[string]string, error) {
	e, ok := f.byExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}
	metadata, err := e.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("%s metadata: %w", e.Name(), err)
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}

// readLimited reads the whole file, refusing files larger than limit.
func readLimited(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}
	return os.ReadFile(path) //nolint:gosec // path is a file this process just wrote
}
