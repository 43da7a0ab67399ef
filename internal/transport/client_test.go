package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		proxy   string
		wantErr bool
	}{
		{name: "direct connection", proxy: "", wantErr: false},
		{name: "valid proxy", proxy: "127.0.0.1:9050", wantErr: false},
		{name: "valid ipv6 proxy", proxy: "[::1]:1080", wantErr: false},
		{name: "missing port", proxy: "127.0.0.1", wantErr: true},
		{name: "empty host", proxy: ":9050", wantErr: true},
		{name: "port zero", proxy: "127.0.0.1:0", wantErr: true},
		{name: "port too large", proxy: "127.0.0.1:70000", wantErr: true},
		{name: "non-numeric port", proxy: "127.0.0.1:tor", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(WithProxy(tt.proxy))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProxyAddress) {
					t.Fatalf("expected ErrInvalidProxyAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.ProxyAddress() != tt.proxy {
				t.Errorf("expected proxy %q, got %q", tt.proxy, client.ProxyAddress())
			}
			if (client.dialer != nil) != (tt.proxy != "") {
				t.Errorf("dialer presence mismatch for proxy %q", tt.proxy)
			}
		})
	}
}

func TestClient_InjectsHeaders(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(
		WithUserAgent("routescan-test/1.0"),
		WithHeaders(map[string]string{"X-Team": "blue"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	got := <-headers
	gotUA, gotTeam := got.Get("User-Agent"), got.Get("X-Team")
	if gotUA != "routescan-test/1.0" {
		t.Errorf("expected User-Agent to be injected, got %q", gotUA)
	}
	if gotTeam != "blue" {
		t.Errorf("expected X-Team header to be injected, got %q", gotTeam)
	}
}

func TestClient_RedirectCap(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		http.Redirect(w, r, fmt.Sprintf("/loop%d", n), http.StatusFound)
	}))
	defer server.Close()

	client, err := NewClient(WithMaxRedirects(3))
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("expected last response instead of error, got %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 after redirect cap, got %d", resp.StatusCode)
	}
	if n := hits.Load(); n != 4 {
		t.Errorf("expected 4 requests (1 + 3 redirects), got %d", n)
	}
}

func TestClient_SameHostRedirects(t *testing.T) {
	t.Parallel()

	var otherHits atomic.Int32
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		otherHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer other.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/away":
			http.Redirect(w, r, other.URL+"/", http.StatusFound)
		case "/moved":
			http.Redirect(w, r, "/here", http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer origin.Close()

	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		httpClient *http.Client
		path       string
		wantStatus int
		wantOther  bool
	}{
		{name: "same host client stops at cross host redirect", httpClient: client.SameHostHTTPClient(), path: "/away", wantStatus: http.StatusFound},
		{name: "same host client follows same host redirect", httpClient: client.SameHostHTTPClient(), path: "/moved", wantStatus: http.StatusOK},
		{name: "default client follows cross host redirect", httpClient: client.HTTPClient(), path: "/away", wantStatus: http.StatusOK, wantOther: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := otherHits.Load()

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, origin.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := tt.httpClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if reached := otherHits.Load() > before; reached != tt.wantOther {
				t.Errorf("other host reached = %v, want %v", reached, tt.wantOther)
			}
		})
	}
}
