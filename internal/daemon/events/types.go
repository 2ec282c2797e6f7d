package events

import "time"

// Event is implemented by every domain event so consumers can subscribe to
// all of them at once.
type Event interface {
	EventType() string
}

// ExercisesSynced is published after a sync invocation finished without error,
// including invocations that found nothing new.
type ExercisesSynced struct {
	RunID    string
	Mode     string // bootstrap | scheduled | forced
	RepoURL  string
	Branch   string
	Commit   string
	Changed  bool
	Upserted int
	Failed   int
	Skipped  int
	Duration time.Duration
	At       time.Time
}

func (ExercisesSynced) EventType() string { return "exercises.synced" }

// SyncFailed is published when a sync invocation aborted.
type SyncFailed struct {
	RunID   string
	Mode    string
	RepoURL string
	Branch  string
	Stage   string // mirror | scan | reconcile | precondition
	Error   string
	At      time.Time
}

func (SyncFailed) EventType() string { return "exercises.sync_failed" }

// LessonCompleted is published when a user completes a lesson.
type LessonCompleted struct {
	LessonID int64
	UserID   int64
	At       time.Time
}

func (LessonCompleted) EventType() string { return "lesson.completed" }
