// Package observe provides Router hooks that export dispatch outcomes to
// Prometheus and OpenTelemetry.
//
//	metrics := observe.NewMetrics(prometheus.DefaultRegisterer)
//	r := handling.NewRouter(target, append(metrics.Options(), observe.Tracing(nil)...)...)
package observe
