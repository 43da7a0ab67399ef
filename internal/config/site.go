package config

import "maps"

// SiteConfig holds site-specific configuration for a single host.
type SiteConfig struct {
	// MaxPages overrides the page budget for this site. Zero keeps the global value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Workers overrides the download pool width. Zero keeps the global value.
	Workers int `yaml:"workers,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path globs for pages that are never visited.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict page visits to paths matching at least one glob.
	// The target itself is always visited.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .routescan configuration file.
type File struct {
	// Sites maps hosts (host or host:port, without scheme) to their
	// site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.Workers != 0 {
		result.Workers = siteConfig.Workers
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

// Settings are the effective crawl settings for one target after the
// configuration file has been applied.
type Settings struct {
	MaxPages       int
	Workers        int
	UserAgent      string
	Headers        map[string]string
	IgnorePatterns []string
	FollowPatterns []string
}

// SettingsFor returns the effective settings for host. Values from the
// configuration file override the flag-level values in c.
func (c *Config) SettingsFor(host string) Settings {
	s := Settings{
		MaxPages:  c.MaxPages,
		Workers:   c.Workers,
		UserAgent: c.UserAgent,
	}
	if c.SiteConfigs == nil {
		return s
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.MaxPages > 0 {
		s.MaxPages = site.MaxPages
	}
	if site.Workers > 0 {
		s.Workers = site.Workers
	}
	if site.UserAgent != "" {
		s.UserAgent = site.UserAgent
	}
	s.Headers = site.Headers
	s.IgnorePatterns = site.IgnorePatterns
	s.FollowPatterns = site.FollowPatterns
	return s
}
