package crawler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// DefaultDelay is the politeness pause after each processed URL.
const DefaultDelay = 500 * time.Millisecond

// Spider crawls every page reachable from a seed URL without leaving its
// scope. A Spider holds configuration only; all traversal state belongs to a
// single Crawl call, so one Spider may run several crawls.
type Spider struct {
	// fetcher performs the HTTP requests.
	fetcher Fetcher

	// delay is the pause after each processed URL, success or failure.
	delay time.Duration

	// workers is the number of concurrent fetches. 1 means strictly sequential.
	workers int

	// scopeMode selects which links count as internal (ScopeHost or ScopeSite).
	scopeMode string

	// reporter receives one notice per fetch attempt.
	reporter Reporter

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the pause between processed URLs.
// Zero disables the pause.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithWorkers sets the number of concurrent fetches.
// Values below 1 are treated as 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithScope selects the link scope, ScopeHost (default) or ScopeSite.
func WithScope(mode string) SpiderOption {
	return func(s *Spider) {
		s.scopeMode = mode
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) SpiderOption {
	return func(s *Spider) {
		s.reporter = r
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches pages through fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   fetcher,
		delay:     DefaultDelay,
		workers:   1,
		scopeMode: ScopeHost,
		reporter:  NopReporter{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = 1
	}
	if s.delay < 0 {
		s.delay = 0
	}
	if s.reporter == nil {
		s.reporter = NopReporter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// crawlState is the per-run traversal state.
// mu guards everything except visited, which locks itself.
type crawlState struct {
	mu       sync.Mutex
	frontier *frontier
	visited  *visitedSet
	result   *model.CrawlResult
	scope    Scope

	// active counts fetches in flight (worker pool only).
	active int
}

// Crawl visits every URL reachable from seed and returns the result.
//
// Failed fetches are recorded and never retried; they do not make Crawl
// fail. A seed that cannot be fetched yields a result with no valid pages.
// Crawl returns an error only for an invalid seed (ErrInvalidSeed) or when
// ctx is done, in which case the partial result is returned with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlResult, error) {
	seedURL, start, err := parseSeed(seed)
	if err != nil {
		return nil, err
	}

	scope, err := NewScope(s.scopeMode, seedURL)
	if err != nil {
		return nil, err
	}

	st := &crawlState{
		frontier: newFrontier(),
		visited:  newVisitedSet(),
		result:   model.NewCrawlResult(strings.TrimSpace(seed), seedURL.Host),
		scope:    scope,
	}
	st.result.StartURL = start
	st.frontier.push(start)
	st.result.StartedAt = time.Now()

	s.logger.Debug("crawl started",
		"seed", start,
		"scope", scope.String(),
		"workers", s.workers,
		"delay", s.delay,
	)

	if s.workers > 1 {
		err = s.crawlConcurrent(ctx, st)
	} else {
		err = s.crawlSequential(ctx, st)
	}

	result := st.result
	result.FinishedAt = time.Now()
	result.Cancelled = err != nil
	result.Sort()
	s.reporter.Finished(result)

	return result, err
}

// crawlSequential is the single-worker loop: dequeue, fetch, record,
// discover, pause.
func (s *Spider) crawlSequential(ctx context.Context, st *crawlState) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL, ok := st.frontier.pop()
		if !ok {
			return nil
		}
		if !st.visited.markIfAbsent(pageURL) {
			continue
		}

		res := s.fetcher.Fetch(ctx, pageURL)
		res.URL = pageURL
		if !res.OK() && ctx.Err() != nil {
			// Interrupted, not a failure of the URL itself.
			return ctx.Err()
		}
		s.record(st, res, s.discover(st.scope, res))

		if s.delay > 0 && st.frontier.len() > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}
}

// discover extracts the internal links of a successful fetch.
func (s *Spider) discover(scope Scope, res FetchResult) []string {
	if !res.OK() {
		return nil
	}
	parser, err := NewParser(res.URL, scope)
	if err != nil {
		return nil
	}
	return parser.InternalLinks(strings.NewReader(res.Body))
}

// record stores the outcome of one fetch attempt, enqueues the new links and
// notifies the reporter. It holds st.mu throughout, so reporters are never
// called concurrently.
func (s *Spider) record(st *crawlState, res FetchResult, links []string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := st.result
	result.Visited = append(result.Visited, res.URL)

	notice := Notice{
		URL:        res.URL,
		StatusCode: res.StatusCode,
		Err:        res.Err,
		Elapsed:    res.Elapsed,
	}

	if !res.OK() {
		result.Failures = append(result.Failures, newFailure(res))
		notice.Queued = st.frontier.len()
		notice.Visited = len(result.Visited)
		notice.Valid = len(result.Pages)
		s.reporter.PageFailed(notice)
		return
	}

	result.Pages = append(result.Pages, model.Page{
		URL:         res.URL,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Digest:      model.ComputeDigest([]byte(res.Body)),
		Links:       len(links),
	})

	for _, link := range links {
		if st.visited.has(link) {
			continue
		}
		if st.frontier.push(link) {
			notice.Discovered++
		}
	}

	notice.Queued = st.frontier.len()
	notice.Visited = len(result.Visited)
	notice.Valid = len(result.Pages)
	s.reporter.PageFetched(notice)
}

// newFailure classifies a failed fetch.
func newFailure(res FetchResult) model.Failure {
	f := model.Failure{
		URL:    res.URL,
		Kind:   model.FailureTransport,
		Reason: res.Err.Error(),
	}
	var statusErr *StatusError
	if errors.As(res.Err, &statusErr) {
		f.Kind = model.FailureStatus
		f.StatusCode = statusErr.StatusCode
	}
	return f
}
