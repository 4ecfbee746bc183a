// Package prometheus provides Prometheus exposition for portal metrics.
//
// [NewPrometheusExporter] accepts a [portalauth.Portal] and exposes an
// [http.Handler] that renders all counters and histograms in Prometheus text
// exposition format. Counter names are prefixed portal_*_total; the single
// histogram is portal_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate portal state.
package prometheus
