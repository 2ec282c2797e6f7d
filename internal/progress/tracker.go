package progress

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/cortex/internal/daemon/events"
	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// CompletionRecorder persists lesson completions.
type CompletionRecorder interface {
	RecordLessonCompletion(ctx context.Context, c store.LessonCompletion) error
}

// Tracker consumes LessonCompleted events and records them.
type Tracker struct {
	store CompletionRecorder
}

func NewTracker(s CompletionRecorder) *Tracker { return &Tracker{store: s} }

// Run subscribes to bus and records completions until ctx is done or the bus closes.
func (t *Tracker) Run(ctx context.Context, bus *events.Bus) {
	ch, unsubscribe := events.Subscribe[events.LessonCompleted](bus, 16)
	defer unsubscribe()
	events.Consume(ctx, ch, t.Handle)
}

// Handle records one completion. Failures are logged; the event is not retried.
func (t *Tracker) Handle(ctx context.Context, evt events.LessonCompleted) {
	err := t.store.RecordLessonCompletion(ctx, store.LessonCompletion{
		LessonID:    evt.LessonID,
		UserID:      evt.UserID,
		CompletedAt: evt.At,
	})
	if err != nil {
		slog.Error("Failed to record lesson completion", logfields.LessonID(evt.LessonID), logfields.UserID(evt.UserID), logfields.Error(err))
		return
	}
	slog.Info("Lesson completion recorded", logfields.LessonID(evt.LessonID), logfields.UserID(evt.UserID))
}
