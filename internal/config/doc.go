// Package config provides the configuration for sitecrawl.
//
// Settings are resolved in three layers: the defaults from NewConfig, the
// YAML config file (.sitecrawl, see FindConfigFile), and finally CLI flags.
// The config file can also carry per-site request headers and cookies.
package config
