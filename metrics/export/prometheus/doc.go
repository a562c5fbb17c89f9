// Package prometheus exposes engine metrics through client_golang.
//
// [Collector] reads an engine snapshot on every scrape and publishes the
// counters as authcore_*_total and the latency histogram as
// authcore_authenticate_latency_seconds. It never touches the default
// registry; use [NewHandler] or register the collector yourself.
package prometheus
