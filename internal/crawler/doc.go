// Package crawler implements a single-site breadth-first crawler.
//
// # Components
//
//   - Spider: owns the frontier and the visited/valid sets of one crawl run
//   - Parser: extracts normalized internal links from fetched markup
//   - Fetcher: performs the HTTP GET for one URL and returns a tagged result
//   - Reporter: receives one notice per fetch attempt
//
// Requests can be routed through a SOCKS5 proxy with WithSOCKS5Proxy;
// CheckProxy verifies the proxy before a crawl starts.
//
// # Traversal
//
// The spider pops URLs from a FIFO frontier, fetches each exactly once,
// records the outcome and enqueues links that are neither visited nor already
// queued. A fixed politeness delay separates successive fetches. Failures are
// recorded and never retried; they never abort the crawl.
//
// With WithWorkers(n) and n > 1 the same traversal runs on a bounded worker
// pool. Visited membership is claimed atomically before a fetch, so no URL is
// fetched twice, and a shared rate limiter keeps the politeness interval
// between request starts.
//
// # Usage
//
//	fetcher, err := crawler.NewHTTPFetcher(crawler.WithTimeout(10 * time.Second))
//	spider := crawler.NewSpider(fetcher, crawler.WithDelay(500*time.Millisecond))
//	result, err := spider.Crawl(ctx, "https://example.com/")
package crawler
