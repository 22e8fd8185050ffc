package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultTimeout bounds each HTTP request, connection setup included.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the politeness pause after every processed URL.
	DefaultDelay = 500 * time.Millisecond

	// DefaultWorkers of 1 keeps the crawl strictly sequential.
	DefaultWorkers = 1

	// DefaultScope crawls only the seed's exact host[:port].
	DefaultScope = "host"

	// DefaultUserAgent identifies the crawler in server logs.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize caps how much of each response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultDBFile is the history database file name inside DBDir.
	DefaultDBFile = "sitecrawl.db"
)

// Scope values accepted by Validate.
const (
	ScopeHost = "host"
	ScopeSite = "site"
)

// Config holds all configuration options for a crawl.
// It is populated from defaults, then the config file, then CLI flags, and
// passed down explicitly rather than kept in global state.
type Config struct {
	// Seed is the URL the crawl starts from.
	Seed string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Delay is the pause after each processed URL. Zero disables it.
	Delay time.Duration

	// Workers is the number of concurrent fetches. 1 is sequential.
	Workers int

	// Scope selects which links are internal: "host" (exact match) or "site"
	// (registrable domain).
	Scope string

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit config file path. When empty, the
	// default locations are searched.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings from the config file.
	SiteConfigs *File

	// OutputDir is the directory the report file is written to.
	// Empty means the current directory.
	OutputDir string

	// JSONReport writes the report as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the report as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// NoReport disables the report file. The console listing is still printed.
	NoReport bool

	// SaveToDB stores the finished run in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// MetricsAddr, when set, serves Prometheus metrics on this address while
	// the crawl runs.
	MetricsAddr string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		Workers:     DefaultWorkers,
		Scope:       DefaultScope,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DBPath returns the path of the history database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, DefaultDBFile)
}

// ApplyFile overlays the crawl settings of f onto c. Zero values in f leave
// the corresponding setting untouched. CLI flags are applied afterwards by
// the caller and therefore win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.Delay != nil {
		c.Delay = *f.Delay
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.Scope != "" {
		c.Scope = f.Scope
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Scope != ScopeHost && c.Scope != ScopeSite {
		return ErrInvalidScope
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
