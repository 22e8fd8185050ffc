package config

import "time"

// SiteConfig holds request settings for a single host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request to the host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RequestHeaders returns the headers to send, with Cookie folded in.
func (sc SiteConfig) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		headers[k] = v
	}
	if sc.Cookie != "" {
		headers["Cookie"] = sc.Cookie
	}
	return headers
}

// File represents the structure of the .sitecrawl configuration file.
type File struct {
	// Timeout overrides the per-request timeout, e.g. "15s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Delay overrides the politeness delay, e.g. "1s". A pointer so that an
	// explicit "0s" can disable the delay.
	Delay *time.Duration `yaml:"delay,omitempty"`

	// Workers overrides the number of concurrent fetches.
	Workers int `yaml:"workers,omitempty"`

	// Scope is "host" or "site".
	Scope string `yaml:"scope,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxBodySize overrides the response body cap in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`

	// OutputDir is the directory report files are written to.
	OutputDir string `yaml:"outputDir,omitempty"`

	// Sites maps a host[:port] to its request settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{
		Cookie:  cf.Defaults.Cookie,
		Headers: make(map[string]string, len(cf.Defaults.Headers)),
	}
	for k, v := range cf.Defaults.Headers {
		result.Headers[k] = v
	}

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
