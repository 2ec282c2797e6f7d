package metrics

import "time"

// OutcomeLabel enumerates how a sync invocation ended.
type OutcomeLabel string

const (
	OutcomeChanged   OutcomeLabel = "changed"   // new content reconciled
	OutcomeUnchanged OutcomeLabel = "unchanged" // remote had no new commits
	OutcomeSkipped   OutcomeLabel = "skipped"   // precondition not met
	OutcomeFailed    OutcomeLabel = "failed"
)

// Recorder defines observability hooks for sync runs. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveSyncDuration(mode string, d time.Duration)
	IncSyncOutcome(mode string, outcome OutcomeLabel)
	ObserveStageDuration(stage string, d time.Duration)
	IncMirrorOperation(op string, success bool)
	AddReconciled(upserted, failed int)
	SetLastSuccess(t time.Time)
	IncEventsForwarded(eventType string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSyncDuration(string, time.Duration)  {}
func (NoopRecorder) IncSyncOutcome(string, OutcomeLabel)        {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncMirrorOperation(string, bool)            {}
func (NoopRecorder) AddReconciled(int, int)                     {}
func (NoopRecorder) SetLastSuccess(time.Time)                   {}
func (NoopRecorder) IncEventsForwarded(string, bool)            {}
