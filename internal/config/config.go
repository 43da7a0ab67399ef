package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "routescan"

	// DefaultMaxPages bounds the number of distinct pages fetched per target.
	// File downloads do not count against it.
	DefaultMaxPages = 200

	// DefaultWorkers is the width of the download pool.
	DefaultWorkers = 5

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultDownloadTimeout bounds a single file download. Files can be
	// large, so this is much more generous than the page timeout.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultOutputDir is the storage root under which session directories
	// are created.
	DefaultOutputDir = "scans"

	// DefaultBatchSize of 1 scans targets one after another.
	DefaultBatchSize = 1

	// DefaultUserAgent mimics a desktop browser. Many sites serve a reduced
	// page, or nothing at all, to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultMaxBodySize limits how much of an HTML page is buffered for link
	// extraction. Downloads are streamed and are not subject to this limit.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for routescan.
// It is populated from CLI flags, optionally merged with the YAML
// configuration file, and passed down explicitly rather than held globally.
type Config struct {
	// Targets is the list of target URLs to crawl. Each must be an absolute
	// http or https URL.
	Targets []string

	// MaxPages is the page budget per target.
	MaxPages int

	// Workers is the number of concurrent file downloads per target.
	Workers int

	// Timeout bounds each page fetch.
	Timeout time.Duration

	// DownloadTimeout bounds each file download.
	DownloadTimeout time.Duration

	// OutputDir is the storage root. Each run creates
	// OutputDir/<host>_<timestamp>/ below it.
	OutputDir string

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .routescan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	// Mutually exclusive with UseTor.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes all traffic through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of bytes of an HTML page that are read.
	MaxBodySize int64

	// ExtractMetadata enables content fingerprinting of downloaded files.
	ExtractMetadata bool

	// MarkdownReport additionally writes reports/report.md.
	MarkdownReport bool

	// SaveToDB stores each finished report in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/routescan on Linux).
	DBDir string

	// Verbose enables Debug level output on the console.
	// scan.log always receives Debug records.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:          DefaultMaxPages,
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		DownloadTimeout:   DefaultDownloadTimeout,
		OutputDir:         DefaultOutputDir,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		ExtractMetadata:   true,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for routescan.
// On Linux: ~/.local/share/routescan
// On macOS: ~/Library/Application Support/routescan
// On Windows: %LOCALAPPDATA%\routescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for routescan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found. The returned error wraps one of the package sentinels.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	for _, target := range c.Targets {
		if err := ValidateTarget(target); err != nil {
			return err
		}
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.Timeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// Two different ways to reach the network cannot both be active.
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransport
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// ValidateTarget reports whether target is an absolute http(s) URL with a host.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTargetURL, target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidTargetURL, target)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrInvalidTargetURL, target)
	}
	return nil
}
