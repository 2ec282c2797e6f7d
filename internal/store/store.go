package store

import (
	"context"
	"time"
)

// Exercise is the persisted form of one discovered exercise, keyed by Name.
type Exercise struct {
	Name         string
	Path         string
	Language     string
	Title        string
	Instructions string
	Hints        string
	Fingerprint  string
	UpdatedAt    time.Time
}

// Lesson is the minimal lesson record the sync gate depends on.
type Lesson struct {
	ID    int64
	Title string
}

// LessonCompletion records that a user finished a lesson.
type LessonCompletion struct {
	LessonID    int64
	UserID      int64
	CompletedAt time.Time
}

// SyncState is the last successfully synced commit of a mirrored remote.
type SyncState struct {
	RepoURL  string
	Branch   string
	Commit   string
	SyncedAt time.Time
}

// Store is the collaborator interface consumed by the sync core and the
// progress tracker.
type Store interface {
	// AreLessonsAvailable reports whether any lesson exists.
	AreLessonsAvailable(ctx context.Context) (bool, error)
	// IsExerciseRepositoryEmpty reports whether no exercise has been stored yet.
	IsExerciseRepositoryEmpty(ctx context.Context) (bool, error)
	// UpdateOrCreateExercise upserts ex by name, overwriting all fields.
	UpdateOrCreateExercise(ctx context.Context, ex Exercise) error
	ListExercises(ctx context.Context) ([]Exercise, error)

	UpsertLesson(ctx context.Context, lesson Lesson) error
	LessonExists(ctx context.Context, lessonID int64) (bool, error)
	RecordLessonCompletion(ctx context.Context, c LessonCompletion) error
	CompletedLessons(ctx context.Context, userID int64) ([]int64, error)

	RecordSyncState(ctx context.Context, s SyncState) error
	LoadSyncState(ctx context.Context, repoURL string) (SyncState, bool, error)

	Close() error
}
