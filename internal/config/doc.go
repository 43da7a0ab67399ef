// Package config provides configuration structures and utilities for routescan.
// It defines the crawl budget, download pool, transport, storage and report
// options, and loads optional per-site overrides from a YAML file.
package config
