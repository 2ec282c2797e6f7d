// Package metrics defines the observability hooks of the exercise sync.
//
// Components receive a Recorder and default to NoopRecorder, so metrics can be
// switched on without touching call sites:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	syncer := daemon.NewSyncer(...).WithRecorder(recorder)
package metrics
