package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/nao1215/routescan/internal/model"
)

const testPage = `<html><body><a href="/about">About</a></body></html>`

func encode(t *testing.T, coding string, data string) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch coding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			t.Fatal(err)
		}
		w = fw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		t.Fatalf("unknown coding %q", coding)
	}
	if _, err := w.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetcher_DecodesContentEncoding(t *testing.T) {
	t.Parallel()

	for _, coding := range []string{"gzip", "deflate", "br"} {
		t.Run(coding, func(t *testing.T) {
			t.Parallel()

			payload := encode(t, coding, testPage)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), coding) {
					t.Errorf("Accept-Encoding %q does not offer %s", r.Header.Get("Accept-Encoding"), coding)
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Content-Encoding", coding)
				_, _ = w.Write(payload)
			}))
			defer server.Close()

			resp, err := NewFetcher(nil).Fetch(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			body, err := resp.ReadBody(0)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != testPage {
				t.Errorf("expected decoded page, got %q", body)
			}
		})
	}
}

func TestFetcher_ReturnsNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	resp, err := NewFetcher(nil).Fetch(context.Background(), server.URL+"/missing")
	if err != nil {
		t.Fatalf("a 404 is a response, not an error: %v", err)
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFetcher_NetworkError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewFetcher(nil).Fetch(context.Background(), "http://"+addr+"/")
	var netErr *model.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if netErr.URL != "http://"+addr+"/" {
		t.Errorf("expected locator in error, got %q", netErr.URL)
	}
}

func TestFetcher_ContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(nil).Fetch(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled wrapped in error, got %v", err)
	}
	if model.KindOf(err) != model.FailureNetwork {
		t.Errorf("expected network failure kind, got %s", model.KindOf(err))
	}
}

func TestFetcher_FollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "moved")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := NewFetcher(nil).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Close()

	if resp.URL != server.URL+"/new" {
		t.Errorf("expected final URL %s/new, got %s", server.URL, resp.URL)
	}
}

func TestResponse_IsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"application/pdf", false},
		{"text/css", false},
		{"", false},
	}

	for _, tt := range tests {
		r := &Response{ContentType: tt.contentType}
		if got := r.IsHTML(); got != tt.want {
			t.Errorf("IsHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestResponse_ReadBodyTruncates(t *testing.T) {
	t.Parallel()

	r := &Response{Body: io.NopCloser(strings.NewReader("0123456789"))}
	body, err := r.ReadBody(4)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "0123" {
		t.Errorf("expected truncated body, got %q", body)
	}
}
