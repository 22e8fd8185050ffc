package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/model"
)

const namespace = "sitecrawl"

// Recorder collects crawl metrics in its own registry.
// It implements crawler.Reporter so it can be attached to a Spider.
type Recorder struct {
	registry *prometheus.Registry

	pagesFetched  prometheus.Counter
	pagesFailed   *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	frontierSize  prometheus.Gauge
	visitedSize   prometheus.Gauge
	crawlDuration prometheus.Histogram
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched with a 2xx status.",
		}),
		pagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Total number of failed fetch attempts.",
		}, []string{"kind"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		frontierSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_urls",
			Help:      "Current number of URLs waiting in the frontier.",
		}),
		visitedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visited_urls",
			Help:      "Current number of URLs attempted in this run.",
		}),
		crawlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of complete crawl runs.",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 300},
		}),
	}

	r.registry.MustRegister(
		r.pagesFetched,
		r.pagesFailed,
		r.fetchDuration,
		r.frontierSize,
		r.visitedSize,
		r.crawlDuration,
	)
	return r
}

var _ crawler.Reporter = (*Recorder)(nil)

// PageFetched records a successful fetch.
func (r *Recorder) PageFetched(n crawler.Notice) {
	r.pagesFetched.Inc()
	r.observe(n)
}

// PageFailed records a failed fetch.
func (r *Recorder) PageFailed(n crawler.Notice) {
	kind := model.FailureTransport
	var statusErr *crawler.StatusError
	if errors.As(n.Err, &statusErr) {
		kind = model.FailureStatus
	}
	r.pagesFailed.WithLabelValues(string(kind)).Inc()
	r.observe(n)
}

// Finished records the duration of the run and clears the frontier gauge.
func (r *Recorder) Finished(result *model.CrawlResult) {
	r.frontierSize.Set(0)
	if d := result.Duration(); d > 0 {
		r.crawlDuration.Observe(d.Seconds())
	}
}

func (r *Recorder) observe(n crawler.Notice) {
	r.fetchDuration.Observe(n.Elapsed.Seconds())
	r.frontierSize.Set(float64(n.Queued))
	r.visitedSize.Set(float64(n.Visited))
}

// Registry returns the registry holding the crawl collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler exposing the collected metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server serves the metrics endpoint while a crawl runs.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve starts serving /metrics on addr in the background.
// Use Addr to learn the bound address when addr has port 0.
func Serve(addr string, r *Recorder) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln: ln,
	}
	go func() {
		_ = s.srv.Serve(ln)
	}()
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
