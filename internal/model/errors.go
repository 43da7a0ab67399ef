package model

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies per-locator failures.
type FailureKind string

// Failure kinds, one per error type below.
const (
	FailureNetwork    FailureKind = "network"
	FailureHTTP       FailureKind = "http"
	FailureParse      FailureKind = "parse"
	FailureFilesystem FailureKind = "filesystem"
	FailureUnknown    FailureKind = "unknown"
)

// NetworkError is returned when a locator cannot be fetched at all:
// timeout, DNS failure, connection refused.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned when a locator answered with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// ParseError is returned when a page body could not be parsed for links.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FilesystemError is returned when persisting data fails.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// IsSuccessStatus reports whether code is a 2xx status.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// KindOf returns the FailureKind matching err.
func KindOf(err error) FailureKind {
	var (
		netErr   *NetworkError
		httpErr  *HTTPError
		parseErr *ParseError
		fsErr    *FilesystemError
	)
	switch {
	case errors.As(err, &httpErr):
		return FailureHTTP
	case errors.As(err, &parseErr):
		return FailureParse
	case errors.As(err, &fsErr):
		return FailureFilesystem
	case errors.As(err, &netErr):
		return FailureNetwork
	default:
		return FailureUnknown
	}
}

// NewFailure builds a Failure entry for url from err.
func NewFailure(url string, err error) Failure {
	return Failure{
		URL:     url,
		Kind:    KindOf(err),
		Message: err.Error(),
	}
}
