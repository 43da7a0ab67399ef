package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/transport"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 5 * time.Minute

// copyBufferSize is the chunk size used when streaming a body to disk.
const copyBufferSize = 32 * 1024

// Fetcher retrieves a locator. *transport.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*transport.Response, error)
}

// MetadataExtractor collects content metadata from a persisted file.
// *fingerprint.Fingerprinter implements it.
type MetadataExtractor interface {
	Extract(path string) (map[string]string, error)
}

// ProgressFunc is called while a body is streamed to disk with the total
// number of bytes written so far.
type ProgressFunc func(locator string, written int64)

// Downloader fetches resources and persists them below a storage root.
// It is safe for concurrent use; file names are reserved under a mutex so
// two downloads never write to the same path.
type Downloader struct {
	fetcher   Fetcher
	timeout   time.Duration
	extractor MetadataExtractor
	progress  ProgressFunc
	logger    *slog.Logger
	hashFile  func(path string) (string, int64, error)

	mu sync.Mutex
	// reserved holds every path handed out during the session.
	reserved map[string]bool
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout sets the per-download deadline.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.timeout = d
	}
}

// WithExtractor enables metadata extraction for persisted files.
func WithExtractor(e MetadataExtractor) Option {
	return func(dl *Downloader) {
		dl.extractor = e
	}
}

// WithProgress sets a callback receiving bytes-written updates.
func WithProgress(fn ProgressFunc) Option {
	return func(dl *Downloader) {
		dl.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(dl *Downloader) {
		dl.logger = logger
	}
}

// New creates a Downloader that retrieves resources with fetcher.
func New(fetcher Fetcher, opts ...Option) *Downloader {
	dl := &Downloader{
		fetcher:  fetcher,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
		hashFile: HashFile,
		reserved: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl
}

// Download fetches locator and writes it to root/<category>/<name>.
//
// A non-2xx response yields *model.HTTPError and nothing is written.
// Transport failures yield *model.NetworkError and write failures
// *model.FilesystemError; in both cases any partial file is removed.
// The returned record's hash and size describe the persisted file.
func (dl *Downloader) Download(ctx context.Context, locator string, category model.Category, root string) (*model.FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dl.timeout)
	defer cancel()

	resp, err := dl.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if !model.IsSuccessStatus(resp.StatusCode) {
		return nil, &model.HTTPError{URL: locator, StatusCode: resp.StatusCode}
	}

	dir := filepath.Join(root, category.String())
	dest := dl.reserve(dir, FileName(locator), locator)

	written, err := dl.persist(resp.Body, dir, dest, locator)
	if err != nil {
		dl.release(dest)
		return nil, err
	}

	digest, size, err := dl.hashFile(dest)
	if err == nil && size != written {
		err = fmt.Errorf("persisted %d bytes, streamed %d", size, written)
	}
	if err != nil {
		dl.discard(dest)
		return nil, &model.FilesystemError{Op: "verify", Path: dest, Err: err}
	}

	record := &model.FileRecord{
		URL:         locator,
		Category:    category,
		ContentType: resp.ContentType,
		FilePath:    dest,
		Hash:        digest,
		Size:        size,
	}

	if dl.extractor != nil {
		metadata, err := dl.extractor.Extract(dest)
		if err != nil {
			dl.logger.Debug("metadata extraction failed", "url", locator, "path", dest, "error", err)
		} else if len(metadata) > 0 {
			record.Metadata = metadata
		}
	}

	dl.logger.Debug("download complete",
		"url", locator,
		"path", dest,
		"bytes", size,
		"sha256", digest,
	)
	return record, nil
}

// persist streams body into a temporary file in dir and renames it to dest
// once the body has been fully written. It returns the number of bytes written.
func (dl *Downloader) persist(body io.Reader, dir, dest, locator string) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".part-*")
	if err != nil {
		return 0, &model.FilesystemError{Op: "create", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()

	written, copyErr := dl.copyBody(tmp, body, locator)
	closeErr := tmp.Close()

	if copyErr == nil && closeErr != nil {
		copyErr = &model.FilesystemError{Op: "close", Path: tmpPath, Err: closeErr}
	}
	if copyErr != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // already failing
		return 0, copyErr
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // already failing
		return 0, &model.FilesystemError{Op: "rename", Path: dest, Err: err}
	}
	return written, nil
}

// copyBody copies body to w, reporting progress. Read failures are network
// errors and write failures are filesystem errors.
func (dl *Downloader) copyBody(w *os.File, body io.Reader, locator string) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, &model.FilesystemError{Op: "write", Path: w.Name(), Err: writeErr}
			}
			if m < n {
				return written, &model.FilesystemError{Op: "write", Path: w.Name(), Err: io.ErrShortWrite}
			}
			if dl.progress != nil {
				dl.progress(locator, written)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, &model.NetworkError{URL: locator, Err: readErr}
		}
	}
}

// reserve returns a path in dir for name that no other download of this
// session has been given. A taken name gets a suffix derived from locator.
func (dl *Downloader) reserve(dir, name, locator string) string {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	candidate := filepath.Join(dir, name)
	if !dl.reserved[candidate] {
		dl.reserved[candidate] = true
		return candidate
	}

	suffix := shortHash(locator)
	candidate = filepath.Join(dir, withSuffix(name, suffix))
	for i := 2; dl.reserved[candidate]; i++ {
		candidate = filepath.Join(dir, withSuffix(name, fmt.Sprintf("%s_%d", suffix, i)))
	}
	dl.reserved[candidate] = true
	return candidate
}

// discard removes an artifact that failed verification and frees its name.
func (dl *Downloader) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		dl.logger.Warn("failed to remove unverified file", "path", path, "error", err)
	}
	dl.release(path)
}

// release gives up a reservation after a failed download.
func (dl *Downloader) release(path string) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	delete(dl.reserved, path)
}
