package exercises

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cortex/internal/store"
)

// recordingWriter records every upsert and can fail selected names.
type recordingWriter struct {
	mu       sync.Mutex
	calls    []store.Exercise
	failOn   map[string]error
	contents map[string]store.Exercise
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{failOn: map[string]error{}, contents: map[string]store.Exercise{}}
}

func (w *recordingWriter) UpdateOrCreateExercise(_ context.Context, ex store.Exercise) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, ex)
	if err := w.failOn[ex.Name]; err != nil {
		return err
	}
	w.contents[ex.Name] = ex
	return nil
}

func desc(name, instructions, hints string) Descriptor {
	return Descriptor{Name: name, Language: "go", Path: ReferencePath("go", name), Instructions: instructions, Hints: hints}
}

func TestReconcile_UpsertsEligibleOnly(t *testing.T) {
	w := newRecordingWriter()
	res, err := NewReconciler(w).Reconcile(context.Background(), []Descriptor{
		desc("a", "A", ""),
		desc("empty", "", ""),
		desc("b", "", "B hints"),
	})
	require.NoError(t, err)
	require.Equal(t, Result{Upserted: 2, Skipped: 1}, res)
	require.Len(t, w.calls, 2)
	for _, c := range w.calls {
		require.True(t, c.Instructions != "" || c.Hints != "")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	w := newRecordingWriter()
	r := NewReconciler(w)
	in := []Descriptor{desc("a", "A", ""), desc("b", "B", "hint")}

	_, err := r.Reconcile(context.Background(), in)
	require.NoError(t, err)
	once := make(map[string]store.Exercise, len(w.contents))
	for k, v := range w.contents {
		once[k] = v
	}

	_, err = r.Reconcile(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, once, w.contents)
}

func TestReconcile_RecordFailureContinues(t *testing.T) {
	w := newRecordingWriter()
	w.failOn["b"] = errors.New("constraint violation")

	res, err := NewReconciler(w).Reconcile(context.Background(), []Descriptor{
		desc("a", "A", ""), desc("b", "B", ""), desc("c", "C", ""),
	})
	require.NoError(t, err)
	require.Equal(t, Result{Upserted: 2, Failed: 1}, res)
	require.Contains(t, w.contents, "c")
}

func TestReconcile_UnavailableStoreAborts(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.UpdateOrCreateExercise(context.Background(), store.Exercise{Name: "b", Instructions: "old"}))
	require.NoError(t, s.Close())

	res, err := NewReconciler(s).Reconcile(context.Background(), []Descriptor{
		desc("a", "A", ""), desc("b", "new", ""),
	})
	require.Error(t, err)
	require.True(t, store.IsUnavailable(err))
	require.Equal(t, Result{Failed: 1}, res)
}

func TestReconcile_TwoFerScenario(t *testing.T) {
	s := store.NewMemoryStore()
	d := Descriptor{Name: "two-fer", Language: "python", Path: ReferencePath("python", "two-fer"), Instructions: "Instructions"}

	res, err := NewReconciler(s).Reconcile(context.Background(), []Descriptor{d})
	require.NoError(t, err)
	require.Equal(t, 1, res.Upserted)

	list, err := s.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "two-fer", list[0].Name)
	require.Equal(t, ReferencePath("python", "two-fer"), list[0].Path)
	require.Equal(t, "Instructions", list[0].Instructions)
	require.Empty(t, list[0].Hints)
}

// cancelingWriter cancels the pass after the first successful upsert and then
// fails like a driver that observed the canceled context.
type cancelingWriter struct {
	cancel context.CancelFunc
	calls  int
}

func (w *cancelingWriter) UpdateOrCreateExercise(ctx context.Context, _ store.Exercise) error {
	w.calls++
	if w.calls == 1 {
		w.cancel()
		return nil
	}
	return ctx.Err()
}

func TestReconcile_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &cancelingWriter{cancel: cancel}

	res, err := NewReconciler(w).Reconcile(ctx, []Descriptor{
		desc("a", "A", ""),
		desc("b", "B", ""),
		desc("c", "C", ""),
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Result{Upserted: 1}, res)
	require.Equal(t, 1, w.calls)
}

func TestReconcile_CanceledUpsertIsNotCountedAsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReconciler(writerFunc(func(c context.Context, _ store.Exercise) error {
		cancel()
		return c.Err()
	}))
	res, err := r.Reconcile(ctx, []Descriptor{desc("a", "A", ""), desc("b", "B", "")})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Result{}, res)
}

type writerFunc func(context.Context, store.Exercise) error

func (f writerFunc) UpdateOrCreateExercise(ctx context.Context, ex store.Exercise) error {
	return f(ctx, ex)
}
