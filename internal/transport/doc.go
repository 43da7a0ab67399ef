// Package transport provides the network side of routescan: an HTTP client
// that can route through a SOCKS5 proxy or an embedded Tor daemon, and a
// Fetcher that performs GET requests and hands back a decoded body stream.
//
// The crawler and the downloader only depend on Fetcher. Everything about
// how bytes reach the target (direct dial, SOCKS5, Tor, header injection,
// content decoding) stays in this package.
package transport
