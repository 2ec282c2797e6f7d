package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/cortex/internal/daemon/events"
	"git.home.luguber.info/inful/cortex/internal/exercises"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
	"git.home.luguber.info/inful/cortex/internal/git"
	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/metrics"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// Mode describes why a sync invocation runs.
type Mode string

const (
	// ModeStartup resolves to bootstrap or scheduled depending on store contents.
	ModeStartup   Mode = "startup"
	ModeBootstrap Mode = "bootstrap"
	ModeScheduled Mode = "scheduled"
	ModeForced    Mode = "forced"
)

// Stages reported in SyncFailed events and error context.
const (
	StagePrecondition = "precondition"
	StageMirror       = "mirror"
	StageScan         = "scan"
	StageReconcile    = "reconcile"
)

// Mirror is the remote mirror capability the syncer drives.
type Mirror interface {
	EnsureCloned(ctx context.Context, localPath string) error
	CheckAndPull(ctx context.Context, localPath string) (bool, error)
	URL() string
	Branch() string
	State() git.MirrorState
}

// ContentScanner produces descriptors for a working copy.
type ContentScanner interface {
	Scan(ctx context.Context) ([]exercises.Descriptor, error)
}

// SyncStore is the subset of store.Store a sync cycle touches.
type SyncStore interface {
	AreLessonsAvailable(ctx context.Context) (bool, error)
	IsExerciseRepositoryEmpty(ctx context.Context) (bool, error)
	UpdateOrCreateExercise(ctx context.Context, ex store.Exercise) error
	RecordSyncState(ctx context.Context, s store.SyncState) error
}

// Publisher announces sync outcomes.
type Publisher interface {
	Publish(ctx context.Context, evt any) error
}

// Report describes the outcome of one invocation.
type Report struct {
	RunID    string
	Mode     Mode
	Skipped  bool // lessons unavailable, nothing was attempted
	Changed  bool
	Commit   string
	Result   exercises.Result
	Duration time.Duration
	Shared   bool // result delivered to more than one caller
}

// Syncer runs mirror, scan and reconcile for one local mirror path.
type Syncer struct {
	mirror     Mirror
	store      SyncStore
	localPath  string
	newScanner func(root string) ContentScanner
	reconciler *exercises.Reconciler
	bus        Publisher
	recorder   metrics.Recorder
	now        func() time.Time

	flight singleflight.Group
	runMu  sync.Mutex
}

// lockRetryDelay is how often a held mirror lock file is polled.
const lockRetryDelay = 200 * time.Millisecond

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithPublisher sets where sync events are published.
func WithPublisher(p Publisher) SyncerOption {
	return func(s *Syncer) { s.bus = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) SyncerOption {
	return func(s *Syncer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithScannerFactory replaces the default host filesystem scanner.
func WithScannerFactory(f func(root string) ContentScanner) SyncerOption {
	return func(s *Syncer) {
		if f != nil {
			s.newScanner = f
		}
	}
}

// NewSyncer creates a syncer for the mirror checked out at localPath.
func NewSyncer(m Mirror, st SyncStore, localPath string, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		mirror:     m,
		store:      st,
		localPath:  localPath,
		newScanner: func(root string) ContentScanner { return exercises.NewDirScanner(root) },
		reconciler: exercises.NewReconciler(st),
		recorder:   metrics.NoopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize runs the startup sync: a bootstrap clone and full reconcile when
// the store holds no exercises, otherwise a regular scheduled sync.
func (s *Syncer) Initialize(ctx context.Context) (Report, error) {
	return s.do(ctx, ModeStartup)
}

// ScheduledSync pulls the remote and reconciles only when new commits arrived.
func (s *Syncer) ScheduledSync(ctx context.Context) (Report, error) {
	return s.do(ctx, ModeScheduled)
}

// ForceSync brings the mirror up to date and reconciles regardless of change.
func (s *Syncer) ForceSync(ctx context.Context) (Report, error) {
	return s.do(ctx, ModeForced)
}

// do runs at most one invocation per mirror path. Overlapping callers of the
// same mode share the result of the one in flight; other modes wait for it to
// finish and then run their own.
func (s *Syncer) do(ctx context.Context, mode Mode) (Report, error) {
	v, err, shared := s.flight.Do(s.localPath+"#"+string(mode), func() (any, error) {
		s.runMu.Lock()
		defer s.runMu.Unlock()
		return s.run(ctx, mode)
	})
	rep, _ := v.(Report)
	if shared {
		rep.Shared = true
		slog.Debug("Sync result shared with a concurrent caller", logfields.RunID(rep.RunID), logfields.Mode(string(mode)))
	}
	return rep, err
}

func (s *Syncer) run(ctx context.Context, mode Mode) (Report, error) {
	start := s.now()
	rep := Report{RunID: uuid.NewString(), Mode: mode}
	log := slog.With(logfields.RunID(rep.RunID), logfields.URL(s.mirror.URL()), logfields.Branch(s.mirror.Branch()))

	available, err := s.store.AreLessonsAvailable(ctx)
	if err != nil {
		return s.fail(ctx, rep, start, StagePrecondition, err)
	}
	if !available {
		log.Info("No lessons available, skipping exercise sync", logfields.Mode(string(mode)))
		rep.Skipped = true
		rep.Duration = time.Since(start)
		s.recorder.IncSyncOutcome(string(mode), metrics.OutcomeSkipped)
		return rep, nil
	}

	if mode == ModeStartup {
		empty, err := s.store.IsExerciseRepositoryEmpty(ctx)
		if err != nil {
			return s.fail(ctx, rep, start, StagePrecondition, err)
		}
		rep.Mode = ModeScheduled
		if empty {
			rep.Mode = ModeBootstrap
		}
	}
	log = log.With(logfields.Mode(string(rep.Mode)))

	unlock, err := s.lockMirror(ctx, log)
	if err != nil {
		return s.fail(ctx, rep, start, StageMirror, err)
	}
	defer unlock()

	mirrorStart := s.now()
	changed, err := s.updateMirror(ctx, log, rep.Mode)
	s.recorder.ObserveStageDuration(StageMirror, time.Since(mirrorStart))
	if err != nil {
		return s.fail(ctx, rep, start, StageMirror, err)
	}
	rep.Changed = changed
	rep.Commit = s.mirror.State().LastSyncedCommit

	if !changed {
		log.Info("Exercises are up to date", logfields.Commit(rep.Commit))
		return s.succeed(ctx, log, rep, start, metrics.OutcomeUnchanged), nil
	}

	scanStart := s.now()
	descriptors, err := s.newScanner(s.localPath).Scan(ctx)
	s.recorder.ObserveStageDuration(StageScan, time.Since(scanStart))
	if err != nil {
		return s.fail(ctx, rep, start, StageScan, err)
	}
	log.Info("Scanned exercise tree", logfields.Count(len(descriptors)))

	reconcileStart := s.now()
	res, err := s.reconciler.Reconcile(ctx, descriptors)
	s.recorder.ObserveStageDuration(StageReconcile, time.Since(reconcileStart))
	s.recorder.AddReconciled(res.Upserted, res.Failed)
	rep.Result = res
	if err != nil {
		return s.fail(ctx, rep, start, StageReconcile, err)
	}

	if rep.Commit == "" {
		log.Warn("Mirror reported no commit, sync state not persisted")
	} else if err := s.store.RecordSyncState(ctx, store.SyncState{
		RepoURL:  s.mirror.URL(),
		Branch:   s.mirror.Branch(),
		Commit:   rep.Commit,
		SyncedAt: s.now().UTC(),
	}); err != nil {
		log.Warn("Failed to persist sync state", logfields.Error(err))
	}

	return s.succeed(ctx, log, rep, start, metrics.OutcomeChanged), nil
}

// lockMirror takes an exclusive lock file next to the mirror path so that
// another cortex process working on the same path waits for this run.
func (s *Syncer) lockMirror(ctx context.Context, log *slog.Logger) (func(), error) {
	lockPath := filepath.Clean(s.localPath) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create mirror lock directory").
			WithContext("path", lockPath).
			Build()
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err == nil && !locked {
		log.Info("Mirror locked by another process, waiting", logfields.Path(lockPath))
		_, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "acquire mirror lock").
			WithContext("path", lockPath).
			Build()
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warn("Failed to release mirror lock", logfields.Path(lockPath), logfields.Error(err))
		}
	}, nil
}

// updateMirror brings the working copy up to date and reports whether the
// content must be rescanned.
func (s *Syncer) updateMirror(ctx context.Context, log *slog.Logger, mode Mode) (bool, error) {
	switch mode {
	case ModeBootstrap:
		log.Info("Exercise store is empty, bootstrapping from remote")
		err := s.mirror.EnsureCloned(ctx, s.localPath)
		s.recorder.IncMirrorOperation(git.OpClone, err == nil)
		return err == nil, err
	case ModeForced:
		err := s.mirror.EnsureCloned(ctx, s.localPath)
		s.recorder.IncMirrorOperation(git.OpClone, err == nil)
		if err != nil {
			return false, err
		}
		_, err = s.mirror.CheckAndPull(ctx, s.localPath)
		s.recorder.IncMirrorOperation(git.OpPull, err == nil)
		return err == nil, err
	default:
		if _, statErr := os.Stat(s.localPath); errors.Is(statErr, os.ErrNotExist) {
			log.Warn("Local mirror missing, cloning again", logfields.Path(s.localPath))
			err := s.mirror.EnsureCloned(ctx, s.localPath)
			s.recorder.IncMirrorOperation(git.OpClone, err == nil)
			return err == nil, err
		}
		changed, err := s.mirror.CheckAndPull(ctx, s.localPath)
		s.recorder.IncMirrorOperation(git.OpPull, err == nil)
		return changed, err
	}
}

func (s *Syncer) succeed(ctx context.Context, log *slog.Logger, rep Report, start time.Time, outcome metrics.OutcomeLabel) Report {
	rep.Duration = time.Since(start)
	s.recorder.ObserveSyncDuration(string(rep.Mode), rep.Duration)
	s.recorder.IncSyncOutcome(string(rep.Mode), outcome)
	s.recorder.SetLastSuccess(s.now())
	log.Info("Exercise sync finished",
		slog.Bool("changed", rep.Changed),
		slog.Int("upserted", rep.Result.Upserted),
		slog.Int("failed", rep.Result.Failed),
		logfields.Duration(rep.Duration))

	s.publish(ctx, events.ExercisesSynced{
		RunID:    rep.RunID,
		Mode:     string(rep.Mode),
		RepoURL:  s.mirror.URL(),
		Branch:   s.mirror.Branch(),
		Commit:   rep.Commit,
		Changed:  rep.Changed,
		Upserted: rep.Result.Upserted,
		Failed:   rep.Result.Failed,
		Skipped:  rep.Result.Skipped,
		Duration: rep.Duration,
		At:       s.now().UTC(),
	})
	return rep
}

// fail wraps err into a single sync-category error for the caller. Nothing is
// retried here; the next scheduled tick is the retry.
func (s *Syncer) fail(ctx context.Context, rep Report, start time.Time, stage string, err error) (Report, error) {
	rep.Duration = time.Since(start)
	s.recorder.ObserveSyncDuration(string(rep.Mode), rep.Duration)
	s.recorder.IncSyncOutcome(string(rep.Mode), metrics.OutcomeFailed)

	wrapped := syncFailure(rep, stage, err)
	slog.Error("Exercise sync failed",
		logfields.RunID(rep.RunID),
		logfields.Mode(string(rep.Mode)),
		logfields.Stage(stage),
		logfields.Error(err))

	s.publish(ctx, events.SyncFailed{
		RunID:   rep.RunID,
		Mode:    string(rep.Mode),
		RepoURL: s.mirror.URL(),
		Branch:  s.mirror.Branch(),
		Stage:   stage,
		Error:   err.Error(),
		At:      s.now().UTC(),
	})
	return rep, wrapped
}

func syncFailure(rep Report, stage string, err error) error {
	cause := err
	b := ferrors.SyncError("exercise sync failed").
		WithContext("run_id", rep.RunID).
		WithContext("mode", string(rep.Mode)).
		WithContext("stage", stage).
		NextTick()
	if me, ok := git.AsMirrorError(err); ok {
		cause = me.Classify()
		b.WithContext("op", me.Op)
	}
	return b.WithCause(cause).Build()
}

func (s *Syncer) publish(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		slog.Warn("Failed to publish sync event", slog.String("event_type", evt.EventType()), logfields.Error(err))
	}
}
