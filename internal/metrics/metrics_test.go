package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/model"
)

// TestRecorder tests that notices update the collectors.
func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("counts fetched and failed pages", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.PageFetched(crawler.Notice{URL: "https://example.com", StatusCode: 200, Elapsed: 10 * time.Millisecond, Queued: 3, Visited: 1})
		r.PageFetched(crawler.Notice{URL: "https://example.com/a", StatusCode: 200, Queued: 2, Visited: 2})
		r.PageFailed(crawler.Notice{
			URL: "https://example.com/dead",
			Err: &crawler.StatusError{StatusCode: 404, Status: "404 Not Found"},
		})
		r.PageFailed(crawler.Notice{URL: "https://example.com/down", Err: errors.New("connection refused"), Queued: 1, Visited: 4})

		if got := testutil.ToFloat64(r.pagesFetched); got != 2 {
			t.Errorf("pages fetched = %v, want 2", got)
		}
		if got := testutil.ToFloat64(r.pagesFailed.WithLabelValues(string(model.FailureStatus))); got != 1 {
			t.Errorf("status failures = %v, want 1", got)
		}
		if got := testutil.ToFloat64(r.pagesFailed.WithLabelValues(string(model.FailureTransport))); got != 1 {
			t.Errorf("transport failures = %v, want 1", got)
		}
		if got := testutil.ToFloat64(r.frontierSize); got != 1 {
			t.Errorf("frontier = %v, want 1", got)
		}
		if got := testutil.ToFloat64(r.visitedSize); got != 4 {
			t.Errorf("visited = %v, want 4", got)
		}
	})

	t.Run("finished clears the frontier gauge", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.PageFetched(crawler.Notice{Queued: 5})

		result := model.NewCrawlResult("https://example.com", "example.com")
		result.StartedAt = time.Now().Add(-time.Second)
		result.FinishedAt = time.Now()
		r.Finished(result)

		if got := testutil.ToFloat64(r.frontierSize); got != 0 {
			t.Errorf("frontier = %v, want 0", got)
		}
		if got := testutil.CollectAndCount(r.crawlDuration); got != 1 {
			t.Errorf("expected crawl duration collector, got %d", got)
		}
	})

	t.Run("recorders do not share state", func(t *testing.T) {
		t.Parallel()

		a, b := NewRecorder(), NewRecorder()
		a.PageFetched(crawler.Notice{})
		if got := testutil.ToFloat64(b.pagesFetched); got != 0 {
			t.Errorf("expected independent registries, got %v", got)
		}
	})
}

// TestServe tests the metrics endpoint.
func TestServe(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.PageFetched(crawler.Notice{URL: "https://example.com"})

	srv, err := Serve("127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Shutdown(context.Background()) //nolint:errcheck // test cleanup

	resp, err := http.Get("http://" + srv.Addr() + "/metrics") //nolint:noctx // test request
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "sitecrawl_pages_fetched_total 1") {
		t.Errorf("expected pages fetched metric, got:\n%s", body)
	}
}
