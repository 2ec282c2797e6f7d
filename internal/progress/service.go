// Package progress records lesson completions. LessonService announces a
// completion on the event bus and Tracker, a separate subscriber, persists it.
package progress

import (
	"context"
	"time"

	"git.home.luguber.info/inful/cortex/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

// LessonLookup reports whether a lesson exists.
type LessonLookup interface {
	LessonExists(ctx context.Context, lessonID int64) (bool, error)
}

// Publisher is the event bus side LessonService needs.
type Publisher interface {
	Publish(ctx context.Context, evt any) error
}

// LessonService handles lesson completion requests.
type LessonService struct {
	lessons LessonLookup
	bus     Publisher
	now     func() time.Time
}

func NewLessonService(lessons LessonLookup, bus Publisher) *LessonService {
	return &LessonService{lessons: lessons, bus: bus, now: time.Now}
}

// CompleteLesson verifies the lesson exists and publishes LessonCompleted.
func (s *LessonService) CompleteLesson(ctx context.Context, lessonID, userID int64) error {
	exists, err := s.lessons.LessonExists(ctx, lessonID)
	if err != nil {
		return err
	}
	if !exists {
		return ferrors.NewError(ferrors.CategoryNotFound, "lesson not found").
			WithContext("lesson_id", lessonID).
			Build()
	}
	return s.bus.Publish(ctx, events.LessonCompleted{LessonID: lessonID, UserID: userID, At: s.now().UTC()})
}
