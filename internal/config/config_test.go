package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the default values. Changing a default should
// require changing this test.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxPages is 200", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 200 {
			t.Errorf("expected MaxPages to be 200, got %d", cfg.MaxPages)
		}
	})

	t.Run("default Workers is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 5 {
			t.Errorf("expected Workers to be 5, got %d", cfg.Workers)
		}
	})

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default DownloadTimeout is 5 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.DownloadTimeout != 5*time.Minute {
			t.Errorf("expected DownloadTimeout to be 5m, got %v", cfg.DownloadTimeout)
		}
	})

	t.Run("default OutputDir is scans", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputDir != "scans" {
			t.Errorf("expected OutputDir to be 'scans', got %q", cfg.OutputDir)
		}
	})

	t.Run("default BatchSize is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 1 {
			t.Errorf("expected BatchSize to be 1, got %d", cfg.BatchSize)
		}
	})

	t.Run("metadata extraction and history are on", func(t *testing.T) {
		t.Parallel()
		if !cfg.ExtractMetadata {
			t.Error("expected ExtractMetadata to be true")
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to default to the XDG data dir")
		}
	})

	t.Run("no proxy and no tor", func(t *testing.T) {
		t.Parallel()
		if cfg.ProxyAddress != "" || cfg.UseTor {
			t.Errorf("expected direct transport, got proxy=%q tor=%v", cfg.ProxyAddress, cfg.UseTor)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"http://example.com"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config", modify: func(*Config) {}, wantErr: nil},
		{name: "no targets", modify: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "relative target", modify: func(c *Config) { c.Targets = []string{"/about"} }, wantErr: ErrInvalidTargetURL},
		{name: "ftp target", modify: func(c *Config) { c.Targets = []string{"ftp://example.com"} }, wantErr: ErrInvalidTargetURL},
		{name: "second target invalid", modify: func(c *Config) { c.Targets = append(c.Targets, "example.com") }, wantErr: ErrInvalidTargetURL},
		{name: "zero max pages", modify: func(c *Config) { c.MaxPages = 0 }, wantErr: ErrInvalidMaxPages},
		{name: "negative workers", modify: func(c *Config) { c.Workers = -1 }, wantErr: ErrInvalidWorkers},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero download timeout", modify: func(c *Config) { c.DownloadTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{
			name: "proxy and tor together",
			modify: func(c *Config) {
				c.UseTor = true
				c.ProxyAddress = "127.0.0.1:9050"
			},
			wantErr: ErrConflictingTransport,
		},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "https with port", modify: func(c *Config) { c.Targets = []string{"https://example.com:8443/app"} }, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateTarget_MessageNamesTarget(t *testing.T) {
	t.Parallel()

	err := ValidateTarget("mailto:someone@example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "mailto:someone@example.com") {
		t.Errorf("error should name the target, got %v", err)
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			MaxPages:       50,
			Headers:        map[string]string{"Accept-Language": "en"},
			IgnorePatterns: []string{"/logout*"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Workers:        2,
				UserAgent:      "custom-agent",
				Headers:        map[string]string{"X-Team": "red"},
				FollowPatterns: []string{"/docs/*"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("other.com")
		if got.MaxPages != 50 {
			t.Errorf("expected MaxPages 50, got %d", got.MaxPages)
		}
		if got.Workers != 0 {
			t.Errorf("expected Workers 0, got %d", got.Workers)
		}
	})

	t.Run("site overrides merge over defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("example.com")
		if got.MaxPages != 50 {
			t.Errorf("expected inherited MaxPages 50, got %d", got.MaxPages)
		}
		if got.Workers != 2 || got.UserAgent != "custom-agent" {
			t.Errorf("expected site overrides, got workers=%d ua=%q", got.Workers, got.UserAgent)
		}
		if got.Headers["Accept-Language"] != "en" || got.Headers["X-Team"] != "red" {
			t.Errorf("expected merged headers, got %v", got.Headers)
		}
		if len(got.IgnorePatterns) != 1 || len(got.FollowPatterns) != 1 {
			t.Errorf("expected both pattern lists, got %v %v", got.IgnorePatterns, got.FollowPatterns)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("example.com")
		if _, ok := cf.Defaults.Headers["X-Team"]; ok {
			t.Error("site headers leaked into defaults")
		}
	})
}

func TestConfigSettingsFor(t *testing.T) {
	t.Parallel()

	t.Run("without config file", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		got := cfg.SettingsFor("example.com")
		if got.MaxPages != DefaultMaxPages || got.Workers != DefaultWorkers || got.UserAgent != DefaultUserAgent {
			t.Errorf("expected flag-level values, got %+v", got)
		}
	})

	t.Run("config file overrides", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{
			"example.com:8080": {MaxPages: 10, IgnorePatterns: []string{"/admin/*"}},
		}}

		got := cfg.SettingsFor("example.com:8080")
		if got.MaxPages != 10 {
			t.Errorf("expected MaxPages 10, got %d", got.MaxPages)
		}
		if got.Workers != DefaultWorkers {
			t.Errorf("expected default workers, got %d", got.Workers)
		}
		if len(got.IgnorePatterns) != 1 {
			t.Errorf("expected ignore pattern, got %v", got.IgnorePatterns)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.routescan")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		content := `defaults:
  maxPages: 80
  userAgent: "scanner/1.0"
sites:
  example.com:
    workers: 3
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/blog/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.MaxPages != 80 {
			t.Errorf("expected default maxPages 80, got %d", cfg.Defaults.MaxPages)
		}
		if cfg.Defaults.UserAgent != "scanner/1.0" {
			t.Errorf("expected default userAgent, got %q", cfg.Defaults.UserAgent)
		}

		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.Workers != 3 {
			t.Errorf("expected site workers 3, got %d", site.Workers)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("expected one ignore and one follow pattern, got %v %v", site.IgnorePatterns, site.FollowPatterns)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxPages: 25\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestLoadConfigFile_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "negative default maxPages", content: "defaults:\n  maxPages: -1\n", wantErr: ErrInvalidMaxPages},
		{name: "negative site workers", content: "sites:\n  example.com:\n    workers: -2\n", wantErr: ErrInvalidWorkers},
		{name: "site key with scheme", content: "sites:\n  https://example.com:\n    maxPages: 5\n", wantErr: ErrInvalidSiteConfig},
		{name: "duplicate site key after lowercasing", content: "sites:\n  Example.com:\n    maxPages: 5\n  example.com:\n    maxPages: 6\n", wantErr: ErrInvalidSiteConfig},
		{name: "malformed ignore pattern", content: "defaults:\n  ignorePatterns: [\"/admin/[\"]\n", wantErr: ErrInvalidSiteConfig},
		{name: "header name with colon", content: "defaults:\n  headers:\n    \"X-A: b\": c\n", wantErr: ErrInvalidSiteConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			configPath := filepath.Join(t.TempDir(), ".routescan")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := LoadConfigFile(configPath)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxpages: 10\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for misspelled key")
		}
	})

	t.Run("lowercases site keys", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		if err := os.WriteFile(configPath, []byte("sites:\n  Example.COM:8080:\n    maxPages: 7\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cfg.GetSiteConfig("example.com:8080").MaxPages; got != 7 {
			t.Errorf("expected maxPages 7 for lowercased key, got %d", got)
		}
	})

	t.Run("empty file is an empty configuration", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".routescan")
		if err := os.WriteFile(configPath, nil, 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil || len(cfg.Sites) != 0 {
			t.Errorf("expected empty Sites map, got %v", cfg.Sites)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("%s dir %q should end with %q", name, dir, AppName)
		}
	}
}
