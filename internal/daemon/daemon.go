package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"

	"git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
	"git.home.luguber.info/inful/cortex/internal/git"
	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/metrics"
	"git.home.luguber.info/inful/cortex/internal/notify"
	"git.home.luguber.info/inful/cortex/internal/progress"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

const (
	syncJobName      = "exercise-sync"
	healthProbeLimit = 2 * time.Second
)

// Daemon owns the long-running sync service and its collaborators.
type Daemon struct {
	config     *config.Config
	configPath string
	status     atomic.Value // Status
	startTime  time.Time
	mu         sync.RWMutex

	store     store.Store
	ownsStore bool
	mirror    *git.Client
	syncer    *Syncer
	bus       *events.Bus
	lessons   *progress.LessonService
	tracker   *progress.Tracker
	forwarder *notify.Forwarder
	registry  *prom.Registry
	recorder  metrics.Recorder
	http      *HTTPServer
	scheduler *Scheduler
	watcher   *ConfigWatcher

	workers conc.WaitGroup
	cancel  context.CancelFunc

	lastSync atomic.Pointer[SyncSummary]
}

// New opens the configured store and assembles a daemon around it.
func New(ctx context.Context, cfg *config.Config, configPath string) (*Daemon, error) {
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	d, err := NewWithStore(cfg, configPath, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	d.ownsStore = true
	return d, nil
}

// NewWithStore assembles a daemon around an already opened store. The caller
// keeps ownership of st.
func NewWithStore(cfg *config.Config, configPath string, st store.Store) (*Daemon, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("configuration is required").Build()
	}
	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		store:      st,
		bus:        events.NewBus(),
		recorder:   metrics.NoopRecorder{},
	}
	d.status.Store(StatusStopped)

	if cfg.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		d.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
		d.http = NewHTTPServer(cfg.Metrics.Listen, d.registry, d.Health)
	}

	d.mirror = git.NewClient(cfg.Exercises)
	d.syncer = NewSyncer(d.mirror, st, cfg.Exercises.LocalPath,
		WithPublisher(d.bus),
		WithRecorder(d.recorder))
	d.lessons = progress.NewLessonService(st, d.bus)
	d.tracker = progress.NewTracker(st)

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler

	if configPath != "" {
		watcher, err := NewConfigWatcher(configPath, d)
		if err != nil {
			slog.Warn("Config watcher unavailable", logfields.Error(err))
		} else {
			d.watcher = watcher
		}
	}
	return d, nil
}

// Run starts the daemon, blocks until ctx is done and then stops it.
func (d *Daemon) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	slog.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// Start launches subscribers, runs the startup sync and schedules the
// periodic sync. A failing startup sync is logged; the schedule retries it.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetStatus() != StatusStopped {
		return ferrors.DaemonError("daemon is not in stopped state").WithContext("status", string(d.GetStatus())).Build()
	}
	// The scheduler cannot be restarted after shutdown.
	if !d.startTime.IsZero() {
		return ferrors.DaemonError("daemon cannot be restarted").Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	slog.Info("Starting cortex daemon",
		logfields.URL(d.config.Exercises.RepoURL),
		logfields.Branch(d.config.Exercises.Branch),
		logfields.Path(d.config.Exercises.LocalPath),
		slog.Duration("interval", d.config.Exercises.SyncInterval()))

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.workers.Go(func() { d.tracker.Run(runCtx, d.bus) })
	if d.config.NATS.Enabled {
		forwarder, err := notify.Connect(d.config.NATS, notify.WithRecorder(d.recorder))
		if err != nil {
			slog.Error("NATS forwarding disabled", logfields.Error(err))
		} else {
			d.forwarder = forwarder
			d.workers.Go(func() { forwarder.Run(runCtx, d.bus) })
		}
	}

	if d.http != nil {
		if err := d.http.Start(runCtx); err != nil {
			cancel()
			d.status.Store(StatusError)
			return ferrors.DaemonError("failed to start metrics server").WithCause(err).Fatal().Build()
		}
	}

	d.logResumeState(runCtx)
	d.recordSync(d.syncer.Initialize(runCtx))

	if _, err := d.scheduler.ScheduleEvery(syncJobName, d.config.Exercises.SyncInterval(), func() {
		d.recordSync(d.syncer.ScheduledSync(runCtx))
	}); err != nil {
		cancel()
		d.status.Store(StatusError)
		return ferrors.DaemonError("failed to schedule exercise sync").WithCause(err).Build()
	}
	d.scheduler.Start()

	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("Cortex daemon started")
	return nil
}

// Stop shuts components down in reverse order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.GetStatus()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping cortex daemon")

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if d.http != nil {
		if err := d.http.Stop(ctx); err != nil {
			slog.Error("Failed to stop metrics server", logfields.Error(err))
		}
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.bus.Close()
	if err := waitWithContext(ctx, d.workers.Wait); err != nil {
		slog.Warn("Timed out waiting for event subscribers", logfields.Error(err))
	}
	if d.forwarder != nil {
		d.forwarder.Close()
	}

	if d.ownsStore {
		if err := d.store.Close(); err != nil {
			slog.Error("Failed to close store", logfields.Error(err))
		}
	}

	d.status.Store(StatusStopped)
	slog.Info("Cortex daemon stopped", slog.Duration("uptime", time.Since(d.startTime)))
	return nil
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// ReloadConfig applies a changed configuration. Only the sync interval is
// applied live; other changes are logged by the watcher.
func (d *Daemon) ReloadConfig(_ context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	oldInterval := d.config.Exercises.SyncInterval()
	newInterval := newConfig.Exercises.SyncInterval()
	if newInterval != oldInterval && d.GetStatus() == StatusRunning {
		if err := d.scheduler.Reschedule(syncJobName, newInterval); err != nil {
			return err
		}
	}
	d.config = newConfig
	slog.Info("Configuration reloaded", slog.Duration("interval", newInterval))
	return nil
}

// Syncer exposes the sync engine, for triggering an immediate run.
func (d *Daemon) Syncer() *Syncer { return d.syncer }

// Lessons exposes lesson completion handling.
func (d *Daemon) Lessons() *progress.LessonService { return d.lessons }

// Bus exposes the event bus for additional subscribers.
func (d *Daemon) Bus() *events.Bus { return d.bus }

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (d *Daemon) MetricsAddr() string {
	if d.http == nil {
		return ""
	}
	return d.http.Addr()
}

// LastSync returns a summary of the most recent sync invocation.
func (d *Daemon) LastSync() *SyncSummary { return d.lastSync.Load() }

// Health reports daemon health for /healthz.
func (d *Daemon) Health() HealthResponse {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeLimit)
	defer cancel()
	_, storeErr := d.store.AreLessonsAvailable(ctx)

	status := d.GetStatus()
	last := d.lastSync.Load()
	resp := HealthResponse{
		Status:    evaluateHealth(status, last, storeErr),
		Daemon:    status,
		LastSync:  last,
		CheckedAt: time.Now().UTC(),
	}
	if !d.startTime.IsZero() {
		resp.Uptime = time.Since(d.startTime).Truncate(time.Second).String()
	}
	if storeErr != nil {
		resp.StoreError = storeErr.Error()
	}
	return resp
}

func (d *Daemon) recordSync(rep Report, err error) {
	if rep.Skipped {
		return
	}
	summary := &SyncSummary{
		RunID:    rep.RunID,
		Mode:     rep.Mode,
		Commit:   rep.Commit,
		Changed:  rep.Changed,
		Upserted: rep.Result.Upserted,
		Failed:   rep.Result.Failed,
		At:       time.Now().UTC(),
	}
	if err != nil {
		summary.Error = err.Error()
	}
	d.lastSync.Store(summary)
}

func (d *Daemon) logResumeState(ctx context.Context) {
	state, ok, err := d.store.LoadSyncState(ctx, d.config.Exercises.RepoURL)
	switch {
	case err != nil:
		slog.Warn("Failed to load sync state", logfields.Error(err))
	case ok:
		slog.Info("Last recorded exercise sync",
			logfields.Commit(state.Commit),
			logfields.Branch(state.Branch),
			slog.Time("synced_at", state.SyncedAt))
	}
}

func waitWithContext(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	}
}
