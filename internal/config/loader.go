package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".routescan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrInvalidSiteConfig is returned when the defaults or a sites entry of
// the configuration file holds an unusable value.
var ErrInvalidSiteConfig = errors.New("invalid site configuration")

// LoadConfigFile loads and validates a .routescan file.
//
// Unknown keys are rejected so that a misspelled setting does not silently
// fall back to the flag value. Site keys are lowercased to match how
// targets are looked up. An empty file is a valid, empty configuration.
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := validateSiteConfig("defaults", cf.Defaults); err != nil {
		return nil, err
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, site := range cf.Sites {
		key, err := normalizeSiteKey(host)
		if err != nil {
			return nil, err
		}
		if _, dup := sites[key]; dup {
			return nil, fmt.Errorf("%w: sites.%s is listed more than once", ErrInvalidSiteConfig, key)
		}
		if err := validateSiteConfig("sites."+key, site); err != nil {
			return nil, err
		}
		sites[key] = site
	}
	cf.Sites = sites

	return &cf, nil
}

// normalizeSiteKey lowercases a sites key and checks that it is a bare
// host or host:port.
func normalizeSiteKey(host string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(host))
	if key == "" || strings.ContainsAny(key, "/?# ") {
		return "", fmt.Errorf("%w: sites key %q must be host or host:port without scheme or path", ErrInvalidSiteConfig, host)
	}
	return key, nil
}

// validateSiteConfig reports the first unusable value in sc. where names
// the section for the error message.
func validateSiteConfig(where string, sc SiteConfig) error {
	if sc.MaxPages < 0 {
		return fmt.Errorf("%w: %s.maxPages is %d: %w", ErrInvalidSiteConfig, where, sc.MaxPages, ErrInvalidMaxPages)
	}
	if sc.Workers < 0 {
		return fmt.Errorf("%w: %s.workers is %d: %w", ErrInvalidSiteConfig, where, sc.Workers, ErrInvalidWorkers)
	}
	for name := range sc.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, ": \t\r\n") {
			return fmt.Errorf("%w: %s.headers has invalid header name %q", ErrInvalidSiteConfig, where, name)
		}
	}
	for _, patterns := range [][]string{sc.IgnorePatterns, sc.FollowPatterns} {
		for _, p := range patterns {
			if _, err := path.Match(p, "/"); err != nil {
				return fmt.Errorf("%w: %s has invalid pattern %q: %w", ErrInvalidSiteConfig, where, p, err)
			}
		}
	}
	return nil
}

// FindConfigFile returns the configuration file to load: configPath if it
// exists, otherwise .routescan in the current directory, then in the home
// directory. It returns "" when none exists; an explicit configPath that
// does not exist also yields "" and is reported by the caller.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
