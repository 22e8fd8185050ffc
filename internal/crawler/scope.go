package crawler

import (
	"fmt"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// Scope modes accepted by NewScope.
const (
	// ScopeHost keeps links whose host[:port] equals the seed's exactly.
	ScopeHost = "host"

	// ScopeSite keeps links on the seed's registrable domain (eTLD+1),
	// so www.example.com and example.com belong to the same crawl.
	ScopeSite = "site"
)

// Scope decides whether a resolved link belongs to the crawl.
type Scope interface {
	// Contains reports whether u is internal to the crawl.
	Contains(u *url.URL) bool

	// String returns the scope in a human-readable form.
	String() string
}

// HostScope matches the network location exactly.
// The comparison is case-sensitive and includes the port.
type HostScope string

// Contains implements Scope.
func (s HostScope) Contains(u *url.URL) bool {
	return u.Host == string(s)
}

func (s HostScope) String() string {
	return "host " + string(s)
}

// SiteScope matches every host under one registrable domain.
type SiteScope struct {
	domain string
}

// NewSiteScope returns a SiteScope for the registrable domain of host.
func NewSiteScope(host string) (*SiteScope, error) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return nil, fmt.Errorf("failed to determine registrable domain of %q: %w", host, err)
	}
	return &SiteScope{domain: domain}, nil
}

// Contains implements Scope.
func (s *SiteScope) Contains(u *url.URL) bool {
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return false
	}
	return domain == s.domain
}

func (s *SiteScope) String() string {
	return "site " + s.domain
}

// NewScope builds the scope named by mode for the given seed.
// An empty mode selects ScopeHost.
func NewScope(mode string, seed *url.URL) (Scope, error) {
	switch mode {
	case "", ScopeHost:
		return HostScope(seed.Host), nil
	case ScopeSite:
		return NewSiteScope(seed.Hostname())
	default:
		return nil, fmt.Errorf("unknown scope %q (expected %q or %q)", mode, ScopeHost, ScopeSite)
	}
}
