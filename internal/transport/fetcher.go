package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/nao1215/routescan/internal/model"
)

// acceptEncoding lists the content codings Fetcher can decode.
const acceptEncoding = "gzip, deflate, br"

// Response is the result of a successful round trip. The status code may
// still be a failure; callers decide what a non-2xx status means.
// Body is already decoded and must be closed.
type Response struct {
	// URL is the final locator after redirects.
	URL string

	StatusCode  int
	Header      http.Header
	ContentType string
	Body        io.ReadCloser
}

// MediaType returns the lowercase media type of ContentType without
// parameters, e.g. "text/html".
func (r *Response) MediaType() string {
	if r.ContentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(r.ContentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsHTML reports whether the response declares an HTML document.
func (r *Response) IsHTML() bool {
	switch r.MediaType() {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// ReadBody reads at most limit bytes of the body and closes it.
// Longer bodies are truncated. A limit <= 0 reads everything.
func (r *Response) ReadBody(limit int64) ([]byte, error) {
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = io.LimitReader(r.Body, limit)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &model.NetworkError{URL: r.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// Close closes the body.
func (r *Response) Close() error {
	return r.Body.Close()
}

// Fetcher performs GET requests with an *http.Client.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client uses a direct Client with
// default settings.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		c, _ := NewClient() //nolint:errcheck // no proxy, cannot fail
		client = c.HTTPClient()
	}
	return &Fetcher{client: client}
}

// Fetch performs a GET of locator. Deadlines come from ctx.
// Transport failures (DNS, refused connection, timeout, undecodable
// content coding) are returned as *model.NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &model.NetworkError{URL: locator, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: locator, Err: err}
	}

	body, err := decodeBody(resp)
	if err != nil {
		_ = resp.Body.Close() //nolint:errcheck // already failing
		return nil, &model.NetworkError{URL: locator, Err: err}
	}

	finalURL := locator
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// decodeBody wraps the raw body in a decoder for its Content-Encoding.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	if resp.Body == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		// An empty body with a gzip coding is legal for HEAD-like replies.
		gz, err := gzip.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			return resp.Body, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return &decodedBody{Reader: gz, closers: []io.Closer{gz, resp.Body}}, nil
	case "deflate":
		fl := flate.NewReader(resp.Body)
		return &decodedBody{Reader: fl, closers: []io.Closer{fl, resp.Body}}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// decodedBody closes the decoder and the underlying body together.
type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
