// Package metric provides Prometheus metrics management for the
// videostream SDK.
//
// The package separates two concerns:
//
//   - Metrics: the core SDK metrics (client status, frames received,
//     messages published, dropped emissions, errors), created once and
//     shared across components via Record* helpers.
//   - MetricsRegistry: registration and lifecycle of component-specific
//     metrics, backed by a dedicated prometheus.Registry.
//
// Exposition (HTTP scraping, push) is out of scope: callers obtain the
// underlying prometheus registry via PrometheusRegistry() and expose it
// however their deployment requires.
package metric
