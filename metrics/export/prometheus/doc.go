// Package prometheus renders authcore metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [authcore.Engine] and exposes an
// [net/http.Handler] serving all counters and histograms. Counter names are
// prefixed authcore_*_total; the single histogram is
// authcore_validate_latency_seconds.
//
// The exporter never registers in a global Prometheus registry; callers
// mount the Handler themselves.
package prometheus
