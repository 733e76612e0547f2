package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies the defaults returned by NewConfig.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Root is the working directory", func(t *testing.T) {
		t.Parallel()
		if cfg.Root != "." {
			t.Errorf("expected Root to be '.', got %q", cfg.Root)
		}
	})

	t.Run("default Workers is 16", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 16 {
			t.Errorf("expected Workers to be 16, got %d", cfg.Workers)
		}
	})

	t.Run("default Timeout is 8 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 8*time.Second {
			t.Errorf("expected Timeout to be 8s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxRedirects is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRedirects != 5 {
			t.Errorf("expected MaxRedirects to be 5, got %d", cfg.MaxRedirects)
		}
	})

	t.Run("default cache is persisted for a day", func(t *testing.T) {
		t.Parallel()
		if cfg.CachePath != ".linkcheck-cache.json" {
			t.Errorf("unexpected CachePath %q", cfg.CachePath)
		}
		if cfg.MaxAge != 24*time.Hour {
			t.Errorf("expected MaxAge to be 24h, got %v", cfg.MaxAge)
		}
	})

	t.Run("default report is text on stdout", func(t *testing.T) {
		t.Parallel()
		if cfg.Format != "text" || !cfg.WritesToStdout() {
			t.Errorf("unexpected report settings %q -> %q", cfg.Format, cfg.ReportFile)
		}
	})

	t.Run("history is saved to the XDG data directory", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveHistory || cfg.DBDir != XDGDataDir() {
			t.Errorf("unexpected history settings %v %q", cfg.SaveHistory, cfg.DBDir)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{"valid config returns nil", func(*Config) {}, nil},
		{"empty root", func(c *Config) { c.Root = "" }, ErrEmptyRoot},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative workers", func(c *Config) { c.Workers = -1 }, ErrInvalidWorkers},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative max redirects", func(c *Config) { c.MaxRedirects = -1 }, ErrInvalidMaxRedirects},
		{"zero max redirects is allowed", func(c *Config) { c.MaxRedirects = 0 }, nil},
		{"negative max age", func(c *Config) { c.MaxAge = -time.Second }, ErrInvalidMaxAge},
		{"negative host rate", func(c *Config) { c.HostRate = -0.5 }, ErrInvalidHostRate},
		{"both scopes", func(c *Config) { c.ExternalOnly, c.InternalOnly = true, true }, ErrConflictingScopes},
		{"unknown format", func(c *Config) { c.Format = "xml" }, ErrInvalidFormat},
		{"markdown format", func(c *Config) { c.Format = "markdown" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile("/nonexistent/path/.linkcheck.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cf != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := write(t, `root: docs
globs:
  - "**/*.md"
ignores:
  - "**/drafts/**"
workers: 4
timeout: 3s
maxRedirects: 0
allowHosts: [example.com]
denyHosts: [bad.example]
allowPrivate: true
htmlAnchors: true
problemsOnly: true
insecureSkipVerify: true
cache: ""
maxAge: 1h
proxy: 127.0.0.1:9050
hostRate: 2.5
userAgent: custom/1.0
hosts:
  internal.example.com:
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
`)
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.Root != "docs" || cfg.Workers != 4 || cfg.Timeout != 3*time.Second {
			t.Errorf("unexpected root/workers/timeout: %q %d %v", cfg.Root, cfg.Workers, cfg.Timeout)
		}
		if cfg.MaxRedirects != 0 {
			t.Errorf("expected explicit zero max redirects, got %d", cfg.MaxRedirects)
		}
		if cfg.CachePath != "" {
			t.Errorf("expected explicit empty cache path, got %q", cfg.CachePath)
		}
		if cfg.MaxAge != time.Hour || cfg.HostRate != 2.5 || cfg.ProxyAddress != "127.0.0.1:9050" {
			t.Errorf("unexpected maxAge/hostRate/proxy: %v %v %q", cfg.MaxAge, cfg.HostRate, cfg.ProxyAddress)
		}
		if !cfg.AllowPrivate || !cfg.HTMLAnchors || cfg.UserAgent != "custom/1.0" {
			t.Errorf("unexpected allowPrivate/htmlAnchors/userAgent: %v %v %q", cfg.AllowPrivate, cfg.HTMLAnchors, cfg.UserAgent)
		}
		if !cfg.ProblemsOnly || !cfg.InsecureSkipVerify {
			t.Errorf("unexpected problemsOnly/insecureSkipVerify: %v %v", cfg.ProblemsOnly, cfg.InsecureSkipVerify)
		}
		if !slices.Equal(cfg.Globs, []string{"**/*.md"}) || !slices.Equal(cfg.Ignores, []string{"**/drafts/**"}) {
			t.Errorf("unexpected globs %v ignores %v", cfg.Globs, cfg.Ignores)
		}
		if !slices.Equal(cfg.AllowHosts, []string{"example.com"}) || !slices.Equal(cfg.DenyHosts, []string{"bad.example"}) {
			t.Errorf("unexpected host lists %v %v", cfg.AllowHosts, cfg.DenyHosts)
		}
		host, ok := cfg.Hosts["internal.example.com"]
		if !ok {
			t.Fatal("expected internal.example.com in hosts")
		}
		if host.Cookie != "session=xyz" || host.Headers["Authorization"] != "Bearer token" {
			t.Errorf("unexpected host config %+v", host)
		}
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(write(t, "workers: 2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg := NewConfig()
		cf.Apply(cfg)
		if cfg.Workers != 2 {
			t.Errorf("expected workers 2, got %d", cfg.Workers)
		}
		if cfg.MaxRedirects != DefaultMaxRedirects || cfg.CachePath != DefaultCacheFile {
			t.Errorf("defaults overwritten: %d %q", cfg.MaxRedirects, cfg.CachePath)
		}
	})

	t.Run("empty file is allowed", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(write(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Hosts == nil {
			t.Error("expected Hosts map to be initialized")
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(write(t, "wrokers: 2\n"))
		if err == nil || !strings.Contains(err.Error(), "wrokers") {
			t.Errorf("expected unknown field error, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(write(t, `invalid: yaml: content: [}`)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("workers: 1\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("workers: 1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s in current directory, got %q", DefaultConfigFile, result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end with %s", name, dir, AppName)
		}
	}
}
