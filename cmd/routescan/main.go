// Package main provides the entry point for the routescan CLI.
//
// routescan crawls a web site without leaving its origin, records every
// reachable route, and downloads and fingerprints every file it links to.
//
// Usage:
//
//	routescan scan https://example.com/
//	routescan compare example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
