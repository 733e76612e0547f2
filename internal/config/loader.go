package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// current directory.
const DefaultConfigFile = ".linkcheck.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .linkcheck.yaml configuration file.
// Zero values leave the corresponding setting untouched.
type File struct {
	Root          string                `yaml:"root,omitempty"`
	Globs         []string              `yaml:"globs,omitempty"`
	Ignores       []string              `yaml:"ignores,omitempty"`
	Workers       int                   `yaml:"workers,omitempty"`
	Timeout       time.Duration         `yaml:"timeout,omitempty"`
	MaxRedirects  *int                  `yaml:"maxRedirects,omitempty"`
	AllowHosts    []string              `yaml:"allowHosts,omitempty"`
	DenyHosts     []string              `yaml:"denyHosts,omitempty"`
	AllowPrivate  bool                  `yaml:"allowPrivate,omitempty"`
	StrictSchemes bool                  `yaml:"strictSchemes,omitempty"`
	HTMLAnchors   bool                  `yaml:"htmlAnchors,omitempty"`
	ProblemsOnly  bool                  `yaml:"problemsOnly,omitempty"`
	Insecure      bool                  `yaml:"insecureSkipVerify,omitempty"`
	Cache         *string               `yaml:"cache,omitempty"`
	MaxAge        time.Duration         `yaml:"maxAge,omitempty"`
	Proxy         string                `yaml:"proxy,omitempty"`
	HostRate      float64               `yaml:"hostRate,omitempty"`
	UserAgent     string                `yaml:"userAgent,omitempty"`
	Hosts         map[string]HostConfig `yaml:"hosts,omitempty"`
}

// LoadConfigFile loads a YAML configuration file. Unknown keys are rejected.
// If the file does not exist, it returns ErrConfigNotFound.
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
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Hosts == nil {
		cf.Hosts = make(map[string]HostConfig)
	}
	return &cf, nil
}

// Apply copies every setting present in the file into cfg.
func (cf *File) Apply(cfg *Config) {
	if cf.Root != "" {
		cfg.Root = cf.Root
	}
	if len(cf.Globs) > 0 {
		cfg.Globs = cf.Globs
	}
	if len(cf.Ignores) > 0 {
		cfg.Ignores = cf.Ignores
	}
	if cf.Workers != 0 {
		cfg.Workers = cf.Workers
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.MaxRedirects != nil {
		cfg.MaxRedirects = *cf.MaxRedirects
	}
	if len(cf.AllowHosts) > 0 {
		cfg.AllowHosts = cf.AllowHosts
	}
	if len(cf.DenyHosts) > 0 {
		cfg.DenyHosts = cf.DenyHosts
	}
	if cf.AllowPrivate {
		cfg.AllowPrivate = true
	}
	if cf.StrictSchemes {
		cfg.StrictSchemes = true
	}
	if cf.HTMLAnchors {
		cfg.HTMLAnchors = true
	}
	if cf.ProblemsOnly {
		cfg.ProblemsOnly = true
	}
	if cf.Insecure {
		cfg.InsecureSkipVerify = true
	}
	if cf.Cache != nil {
		cfg.CachePath = *cf.Cache
	}
	if cf.MaxAge != 0 {
		cfg.MaxAge = cf.MaxAge
	}
	if cf.Proxy != "" {
		cfg.ProxyAddress = cf.Proxy
	}
	if cf.HostRate != 0 {
		cfg.HostRate = cf.HostRate
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if len(cf.Hosts) > 0 {
		cfg.Hosts = cf.Hosts
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .linkcheck.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
