package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkcheck"

	// DefaultRoot is the corpus root.
	DefaultRoot = "."

	// DefaultWorkers is the number of documents checked concurrently.
	DefaultWorkers = 16

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 8 * time.Second

	// DefaultMaxRedirects is the longest redirect chain followed.
	DefaultMaxRedirects = 5

	// DefaultCacheFile is the reachability cache, relative to the working directory.
	DefaultCacheFile = ".linkcheck-cache.json"

	// DefaultMaxAge is how long a cached outcome stays fresh.
	DefaultMaxAge = 24 * time.Hour

	// DefaultFormat is the report format.
	DefaultFormat = "text"

	// DefaultHistoryKeep is the number of runs kept per root in the history database.
	DefaultHistoryKeep = 50
)

// Formats lists the accepted report formats.
var Formats = []string{"text", "json", "markdown"}

// HostConfig holds extra request data for hosts matching a suffix.
type HostConfig struct {
	// Cookie is sent as the Cookie header. Format: "name=value; other=x".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are set on every request to a matching host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Config holds all options of a check run. It is populated from defaults,
// then the configuration file, then command-line flags.
type Config struct {
	// Root is the corpus root. Globs are relative to it and links starting
	// with "/" resolve against it.
	Root string

	// Paths are explicit documents or directories. When empty, Globs are
	// matched below Root.
	Paths []string

	// Globs select documents below Root. Empty selects the discovery defaults.
	Globs []string

	// Ignores are glob patterns excluded from discovery.
	Ignores []string

	// Workers is the number of documents processed concurrently.
	Workers int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRedirects is the longest redirect chain followed.
	MaxRedirects int

	// ExternalOnly checks external links only.
	ExternalOnly bool

	// InternalOnly records external links as skipped without network I/O.
	InternalOnly bool

	// AllowHosts are host suffixes expected in external links. A checked
	// link outside the list becomes a warning. Empty allows every host.
	AllowHosts []string

	// DenyHosts are host suffixes whose links are errors without a check.
	DenyHosts []string

	// AllowPrivate lets links to loopback and private hosts be checked.
	AllowPrivate bool

	// StrictSchemes also forbids vbscript: links.
	StrictSchemes bool

	// HTMLAnchors lets fragments match inline HTML anchors as well as headings.
	HTMLAnchors bool

	// Format is the report format, one of Formats.
	Format string

	// ReportFile is the report destination. "-" or empty writes to stdout.
	ReportFile string

	// Strict makes warnings fail the run.
	Strict bool

	// ProblemsOnly leaves ok and skipped findings out of the text report.
	ProblemsOnly bool

	// CachePath is the reachability cache file. Empty keeps the cache in memory only.
	CachePath string

	// MaxAge is how long a cached outcome stays fresh.
	MaxAge time.Duration

	// ProxyAddress routes external checks through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// InsecureSkipVerify accepts any TLS certificate, for hosts with
	// self-signed or internal certificates.
	InsecureSkipVerify bool

	// HostRate limits requests per second to each host. Zero is unlimited.
	HostRate float64

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Hosts maps host suffixes to extra request headers and cookies.
	Hosts map[string]HostConfig

	// Annotations emits GitHub workflow commands for failing findings.
	Annotations bool

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the history database directory.
	DBDir string

	// HistoryKeep is the number of runs kept per root. Zero keeps all.
	HistoryKeep int

	// MetricsFile is a Prometheus textfile written after the run.
	MetricsFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file given on the command line.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Root:         DefaultRoot,
		Workers:      DefaultWorkers,
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		Format:       DefaultFormat,
		ReportFile:   "-",
		CachePath:    DefaultCacheFile,
		MaxAge:       DefaultMaxAge,
		SaveHistory:  true,
		DBDir:        XDGDataDir(),
		HistoryKeep:  DefaultHistoryKeep,
	}
}

// XDGDataDir returns the XDG data directory for linkcheck.
// On Linux: ~/.local/share/linkcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcheck.
// On Linux: ~/.config/linkcheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrEmptyRoot
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.MaxAge < 0 {
		return ErrInvalidMaxAge
	}
	if c.HostRate < 0 {
		return ErrInvalidHostRate
	}
	if c.ExternalOnly && c.InternalOnly {
		return ErrConflictingScopes
	}
	if !slices.Contains(Formats, c.Format) {
		return ErrInvalidFormat
	}
	return nil
}

// WritesToStdout reports whether the report goes to standard output.
func (c *Config) WritesToStdout() bool {
	return c.ReportFile == "" || c.ReportFile == "-"
}
