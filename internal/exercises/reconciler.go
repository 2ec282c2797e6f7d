package exercises

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// ExerciseWriter is the store capability the reconciler needs.
type ExerciseWriter interface {
	UpdateOrCreateExercise(ctx context.Context, ex store.Exercise) error
}

// Result summarizes one reconciliation pass.
type Result struct {
	Upserted int
	Failed   int
	Skipped  int
}

// Reconciler applies descriptors to the exercise store one record at a time.
type Reconciler struct {
	store ExerciseWriter
}

func NewReconciler(w ExerciseWriter) *Reconciler { return &Reconciler{store: w} }

// Reconcile upserts every eligible descriptor. A failing record is logged and
// counted; the pass continues. If the store reports itself unavailable or ctx
// is done the remaining descriptors are abandoned and the error is returned.
func (r *Reconciler) Reconcile(ctx context.Context, descriptors []Descriptor) (Result, error) {
	start := time.Now()
	var res Result
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			slog.Warn("Reconciliation canceled",
				slog.Int("remaining", len(descriptors)-res.Upserted-res.Failed-res.Skipped),
				logfields.Error(err))
			return res, err
		}
		if !d.Eligible() {
			res.Skipped++
			continue
		}
		err := r.store.UpdateOrCreateExercise(ctx, d.Exercise())
		if err == nil {
			res.Upserted++
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Failed++
		if store.IsUnavailable(err) {
			slog.Error("Exercise store unavailable, aborting reconciliation",
				logfields.Exercise(d.Name),
				slog.Int("remaining", len(descriptors)-res.Upserted-res.Failed-res.Skipped),
				logfields.Error(err))
			return res, err
		}
		slog.Warn("Failed to upsert exercise", logfields.Exercise(d.Name), logfields.Language(d.Language), logfields.Error(err))
	}

	slog.Info("Updated or created exercises",
		logfields.Count(res.Upserted),
		slog.Int("failed", res.Failed),
		slog.Int("skipped", res.Skipped),
		logfields.Duration(time.Since(start)))
	return res, nil
}
