package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
)

// serveOnce accepts one connection on a local listener and runs handle on it.
func serveOnce(t *testing.T, handle func(net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	return ln.Addr().String()
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("SOCKS5 proxy is OK", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			greeting := make([]byte, 3)
			if _, err := io.ReadFull(conn, greeting); err != nil {
				return
			}
			_, _ = conn.Write([]byte{socks5Version, socks5AuthNone})

			header := make([]byte, 5)
			if _, err := io.ReadFull(conn, header); err != nil {
				return
			}
			rest := make([]byte, int(header[4])+2)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}
			// Host unreachable is still a valid SOCKS5 reply.
			_, _ = conn.Write([]byte{socks5Version, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		})

		status := CheckProxy(context.Background(), addr)
		if status != ProxyStatusOK {
			t.Errorf("expected OK, got %s", status)
		}
		if status.Error() != nil {
			t.Errorf("expected nil error for OK status, got %v", status.Error())
		}
	})

	t.Run("HTTP server is wrong type", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		})

		status := CheckProxy(context.Background(), addr)
		if status != ProxyStatusWrongType {
			t.Errorf("expected wrong type, got %s", status)
		}
		if !errors.Is(status.Error(), ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", status.Error())
		}
	})

	t.Run("proxy requiring auth is wrong type", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte{socks5Version, socks5AuthNoAccept})
		})

		if status := CheckProxy(context.Background(), addr); status != ProxyStatusWrongType {
			t.Errorf("expected wrong type, got %s", status)
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		if status := CheckProxy(context.Background(), addr); status != ProxyStatusCannotConnect {
			t.Errorf("expected cannot connect, got %s", status)
		}
	})
}

func TestProxyStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ProxyStatus
		want   string
	}{
		{ProxyStatusOK, "OK"},
		{ProxyStatusWrongType, "wrong type (not SOCKS5)"},
		{ProxyStatusCannotConnect, "cannot connect"},
		{ProxyStatusTimeout, "timeout"},
		{ProxyStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("ProxyStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
