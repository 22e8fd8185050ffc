package crawler

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Notice describes one completed fetch attempt.
type Notice struct {
	// URL is the normalized address that was fetched.
	URL string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Err is nil on success.
	Err error

	// Elapsed is the time the fetch took.
	Elapsed time.Duration

	// Discovered is the number of new URLs the page added to the frontier.
	Discovered int

	// Queued, Visited and Valid are the set sizes after the attempt.
	Queued  int
	Visited int
	Valid   int
}

// OK reports whether the attempt succeeded.
func (n Notice) OK() bool {
	return n.Err == nil
}

// Reporter receives progress notices. Reporters observe the crawl; they
// cannot influence it. The spider never calls a Reporter concurrently.
//
// Exactly one of PageFetched or PageFailed is called per fetch attempt.
type Reporter interface {
	// PageFetched is called after a 2xx response.
	PageFetched(n Notice)

	// PageFailed is called after a transport error or non-2xx status.
	PageFailed(n Notice)

	// Finished is called once with the final result.
	Finished(result *model.CrawlResult)
}

// NopReporter discards all notices.
type NopReporter struct{}

// PageFetched implements Reporter.
func (NopReporter) PageFetched(Notice) {}

// PageFailed implements Reporter.
func (NopReporter) PageFailed(Notice) {}

// Finished implements Reporter.
func (NopReporter) Finished(*model.CrawlResult) {}

// MultiReporter fans notices out to several reporters in order.
type MultiReporter struct {
	reporters []Reporter
}

// NewMultiReporter creates a reporter that forwards to every non-nil reporter.
func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	m := &MultiReporter{reporters: make([]Reporter, 0, len(reporters))}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

// PageFetched implements Reporter.
func (m *MultiReporter) PageFetched(n Notice) {
	for _, r := range m.reporters {
		r.PageFetched(n)
	}
}

// PageFailed implements Reporter.
func (m *MultiReporter) PageFailed(n Notice) {
	for _, r := range m.reporters {
		r.PageFailed(n)
	}
}

// Finished implements Reporter.
func (m *MultiReporter) Finished(result *model.CrawlResult) {
	for _, r := range m.reporters {
		r.Finished(result)
	}
}

// ConsoleReporter prints one progress line per fetch attempt.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// PageFetched implements Reporter.
func (c *ConsoleReporter) PageFetched(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Crawling: %d page(s) | %d queued | %s\n", n.Valid, n.Queued, n.URL)
}

// PageFailed implements Reporter.
func (c *ConsoleReporter) PageFailed(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "❌ Error fetching %s: %v\n", n.URL, n.Err)
}

// Finished implements Reporter.
func (c *ConsoleReporter) Finished(*model.CrawlResult) {}

// LogReporter writes notices to a structured logger.
// Successes log at Debug, failures at Warn.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// PageFailed implements Reporter.
func (l *LogReporter) PageFailed(n Notice) {
	l.logger.Warn("fetch failed",
		"url", n.URL,
		"status", n.StatusCode,
		"error", n.Err,
		"elapsed", n.Elapsed,
	)
}

// PageFetched implements Reporter.
func (l *LogReporter) PageFetched(n Notice) {
	l.logger.Debug("page fetched",
		"url", n.URL,
		"status", n.StatusCode,
		"discovered", n.Discovered,
		"queued", n.Queued,
		"elapsed", n.Elapsed,
	)
}

// Finished implements Reporter.
func (l *LogReporter) Finished(result *model.CrawlResult) {
	l.logger.Info("crawl finished",
		"seed", result.Seed,
		"valid", result.TotalPages(),
		"visited", len(result.Visited),
		"failed", len(result.Failures),
		"duration", result.Duration(),
	)
}
