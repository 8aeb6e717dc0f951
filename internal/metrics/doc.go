// Package metrics records build metrics behind a small Recorder interface.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so code paths never check for a nil recorder:
//
//	b := pipeline.NewBuilder(cfg, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the given registry; HTTPHandler
// serves that registry on the daemon's /metrics endpoint.
package metrics
