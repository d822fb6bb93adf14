// Package metrics defines the Prometheus collectors exported by the
// server: HTTP request metrics, group store operation metrics and
// thumbnail generation metrics.
package metrics
