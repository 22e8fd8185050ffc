// Package metrics exposes crawl progress as Prometheus metrics.
//
// A Recorder is attached to the spider as a reporter and keeps its collectors
// in a private registry, so nothing leaks into the global default registry.
// When --metrics-addr is set the crawl command serves the registry on
// /metrics for the duration of the run.
package metrics
