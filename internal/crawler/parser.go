package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts internal links from page markup.
//
// Parsing goes through goquery, which builds on golang.org/x/net/html and
// accepts malformed documents the way browsers do. A page that cannot be
// parsed at all simply yields no links.
type Parser struct {
	// baseURL is the URL the content was fetched from.
	// Relative references are resolved against it.
	baseURL *url.URL

	// scope filters resolved links down to internal ones.
	scope Scope
}

// NewParser creates a parser for content fetched from pageURL.
func NewParser(pageURL string, scope Scope) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, scope: scope}, nil
}

// InternalLinks returns the normalized internal links found in content.
// Every <a> element carrying an href is considered; anchors without href are
// skipped. The result has no duplicates and keeps document order.
func (p *Parser) InternalLinks(content io.Reader) []string {
	links := make([]string, 0)

	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link, ok := p.resolve(href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}

// resolve turns href into a normalized internal URL.
// The second return value is false when href is unparseable, has no network
// location or points outside the scope. Other schemes on an in-scope host
// (ftp, ws) are kept and fail when fetched.
func (p *Parser) resolve(href string) (string, bool) {
	// Browsers strip surrounding whitespace from attribute URLs.
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	resolved := p.baseURL.ResolveReference(ref)
	if resolved.Host == "" || !p.scope.Contains(resolved) {
		return "", false
	}
	return normalizeURL(resolved), true
}

// ExtractInternalLinks returns the set of normalized links in content whose
// network location equals baseDomain exactly. Relative references are
// resolved against pageURL. It never fails: unparseable input yields an empty
// set.
func ExtractInternalLinks(pageURL, content, baseDomain string) []string {
	p, err := NewParser(pageURL, HostScope(baseDomain))
	if err != nil {
		return []string{}
	}
	return p.InternalLinks(strings.NewReader(content))
}
