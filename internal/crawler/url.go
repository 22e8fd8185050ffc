package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidSeed is returned when the seed URL cannot be crawled.
var ErrInvalidSeed = errors.New("invalid seed URL: expected an absolute http or https URL")

// Normalize reduces rawURL to scheme://host[:port]/path.
// The query string, the fragment and any userinfo are discarded.
// Normalize is idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return normalizeURL(u), nil
}

// normalizeURL is Normalize for an already parsed URL.
// The path keeps its escaped form so that re-parsing yields the same string.
func normalizeURL(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// isCrawlable reports whether u uses a scheme the fetcher understands.
func isCrawlable(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeSeed validates seed like Crawl does and returns its normalized
// form, the StartURL of any crawl started from it.
func NormalizeSeed(seed string) (string, error) {
	_, normalized, err := parseSeed(seed)
	return normalized, err
}

// parseSeed validates and normalizes the seed URL.
// It returns the parsed seed and its normalized string form.
func parseSeed(seed string) (*url.URL, string, error) {
	seed = strings.TrimSpace(seed)
	u, err := url.Parse(seed)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if !isCrawlable(u) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	return u, normalizeURL(u), nil
}
