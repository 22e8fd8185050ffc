package crawler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// newLimiter returns the limiter shared by all workers. It admits one fetch
// per delay interval, which keeps the request rate of the pool at or below
// that of the sequential loop.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// crawlConcurrent runs the traversal with a bounded worker pool.
//
// A single coordinator loop dequeues URLs and claims them in the visited set
// before handing them to a worker, so every URL is fetched at most once.
// When the frontier is empty but fetches are still in flight, the coordinator
// waits for a worker to finish, since that worker may enqueue new links.
// The crawl is done when the frontier is empty and no fetch is in flight.
func (s *Spider) crawlConcurrent(ctx context.Context, st *crawlState) error {
	limiter := newLimiter(s.delay)
	wake := make(chan struct{}, 1)

	var g errgroup.Group
	g.SetLimit(s.workers)

	for {
		if err := ctx.Err(); err != nil {
			_ = g.Wait() //nolint:errcheck // workers never return errors
			return err
		}

		st.mu.Lock()
		pageURL, ok := st.frontier.pop()
		if !ok {
			idle := st.active == 0
			st.mu.Unlock()
			if idle {
				break
			}
			select {
			case <-ctx.Done():
			case <-wake:
			}
			continue
		}
		if !st.visited.markIfAbsent(pageURL) {
			st.mu.Unlock()
			continue
		}
		st.active++
		st.mu.Unlock()

		g.Go(func() error {
			s.fetchOne(ctx, st, limiter, pageURL)

			st.mu.Lock()
			st.active--
			st.mu.Unlock()

			select {
			case wake <- struct{}{}:
			default:
			}
			return nil
		})
	}

	return g.Wait()
}

// fetchOne waits for the limiter, fetches pageURL and records the outcome.
// Nothing is recorded when ctx is done before the fetch completes.
func (s *Spider) fetchOne(ctx context.Context, st *crawlState, limiter *rate.Limiter, pageURL string) {
	// Wait would fail early when the delay outlasts the ctx deadline.
	r := limiter.Reserve()
	if d := r.Delay(); d > 0 {
		select {
		case <-ctx.Done():
			r.Cancel()
			return
		case <-time.After(d):
		}
	}

	res := s.fetcher.Fetch(ctx, pageURL)
	res.URL = pageURL
	if !res.OK() && ctx.Err() != nil {
		return
	}

	// Parsing happens outside the state lock.
	s.record(st, res, s.discover(st.scope, res))
}
