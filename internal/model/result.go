package model

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// CrawlResult is the outcome of a single crawl run.
//
// Pages holds the valid pages (the ValidPages set) and Visited holds every URL
// for which a fetch attempt completed, in the order the attempts were made.
// Every URL in Pages and Failures also appears in Visited.
type CrawlResult struct {
	// Seed is the URL the crawl started from, as given by the user.
	Seed string `json:"seed"`

	// StartURL is the normalized seed, the first URL fetched. History runs
	// are grouped by it.
	StartURL string `json:"start_url"`

	// BaseDomain is the network location (host[:port]) of the seed.
	BaseDomain string `json:"base_domain"`

	// StartedAt is when the first fetch was attempted.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the frontier ran empty or the crawl was cancelled.
	FinishedAt time.Time `json:"finished_at"`

	// Pages are the URLs that answered 2xx, sorted by URL after Sort.
	Pages []Page `json:"pages"`

	// Failures are the URLs whose fetch failed, sorted by URL after Sort.
	Failures []Failure `json:"failures,omitempty"`

	// Visited lists every attempted URL in attempt order.
	Visited []string `json:"visited"`

	// Cancelled is true when the run stopped before the frontier was empty.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewCrawlResult creates an empty result for the given seed and base domain.
func NewCrawlResult(seed, baseDomain string) *CrawlResult {
	return &CrawlResult{
		Seed:       seed,
		BaseDomain: baseDomain,
		Pages:      make([]Page, 0),
		Failures:   make([]Failure, 0),
		Visited:    make([]string, 0),
	}
}

// ValidPages returns the alphabetically sorted URLs of all valid pages.
func (r *CrawlResult) ValidPages() []string {
	urls := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		urls = append(urls, p.URL)
	}
	sort.Strings(urls)
	return urls
}

// TotalPages returns the number of valid pages.
func (r *CrawlResult) TotalPages() int {
	return len(r.Pages)
}

// Duration returns the wall-clock time the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasPage reports whether pageURL is in the valid set.
func (r *CrawlResult) HasPage(pageURL string) bool {
	for _, p := range r.Pages {
		if p.URL == pageURL {
			return true
		}
	}
	return false
}

// Sort orders Pages and Failures by URL. Visited keeps attempt order.
func (r *CrawlResult) Sort() {
	slices.SortFunc(r.Pages, func(a, b Page) int {
		return strings.Compare(a.URL, b.URL)
	})
	slices.SortFunc(r.Failures, func(a, b Failure) int {
		return strings.Compare(a.URL, b.URL)
	})
}

// ResultDiff describes how the valid pages of two runs differ.
type ResultDiff struct {
	// Added are pages valid in the newer run but not in the older one.
	Added []string `json:"added"`

	// Removed are pages valid in the older run but not in the newer one.
	Removed []string `json:"removed"`

	// Changed are pages valid in both runs whose content digest differs.
	Changed []string `json:"changed"`
}

// HasChanges reports whether the diff contains any difference.
func (d *ResultDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// Diff compares the valid pages of older and newer.
// Pages without a digest in either run are never reported as changed.
func Diff(older, newer *CrawlResult) *ResultDiff {
	diff := &ResultDiff{
		Added:   make([]string, 0),
		Removed: make([]string, 0),
		Changed: make([]string, 0),
	}

	before := make(map[string]string, len(older.Pages))
	for _, p := range older.Pages {
		before[p.URL] = p.Digest
	}
	after := make(map[string]string, len(newer.Pages))
	for _, p := range newer.Pages {
		after[p.URL] = p.Digest
	}

	for u, digest := range after {
		old, ok := before[u]
		if !ok {
			diff.Added = append(diff.Added, u)
			continue
		}
		if old != "" && digest != "" && old != digest {
			diff.Changed = append(diff.Changed, u)
		}
	}
	for u := range before {
		if _, ok := after[u]; !ok {
			diff.Removed = append(diff.Removed, u)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}
