package daemon

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/store"
	"git.home.luguber.info/inful/cortex/internal/testutil"
)

func testConfig(t *testing.T, remoteURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Exercises: config.ExercisesConfig{
			RepoURL:        remoteURL,
			LocalPath:      filepath.Join(t.TempDir(), "mirror"),
			Branch:         "main",
			SyncIntervalMS: int64(time.Hour / time.Millisecond),
		},
		Database: config.DatabaseConfig{Driver: config.DatabaseMemory},
		Metrics:  config.MetricsConfig{Enabled: true, Listen: "127.0.0.1:0"},
	}
}

func startDaemon(t *testing.T, cfg *config.Config, st store.Store) *Daemon {
	t.Helper()
	d, err := NewWithStore(cfg, "", st)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, d.Stop(ctx))
	})
	return d
}

func TestDaemon_TwoFerEndToEnd(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{
		"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions",
		"exercises/python/practice/.hidden/.docs/instructions.md": "ignored",
		"exercises/python/practice/empty/.docs/hints.md":          "",
	})

	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.UpsertLesson(ctx, store.Lesson{ID: 1, Title: "Intro"}))

	d := startDaemon(t, testConfig(t, remote.BarePath), st)
	require.Equal(t, StatusRunning, d.GetStatus())

	got, err := st.ListExercises(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "two-fer", got[0].Name)
	require.Equal(t, filepath.Join("exercises", "python", "practice", "two-fer"), got[0].Path)
	require.Equal(t, "Instructions", got[0].Instructions)
	require.Empty(t, got[0].Hints)

	last := d.LastSync()
	require.NotNil(t, last)
	require.Equal(t, ModeBootstrap, last.Mode)
	require.Empty(t, last.Error)

	rep, err := d.Syncer().ScheduledSync(ctx)
	require.NoError(t, err)
	require.False(t, rep.Changed)

	remote.Commit(t, map[string]string{
		"exercises/go/practice/leap/.docs/hints.md": "Use modulo",
	})
	rep, err = d.Syncer().ScheduledSync(ctx)
	require.NoError(t, err)
	require.True(t, rep.Changed)
	require.Equal(t, 2, rep.Result.Upserted)

	got, err = st.ListExercises(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestDaemon_NoLessonsSkipsStartupSync(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions"})

	cfg := testConfig(t, remote.BarePath)
	d := startDaemon(t, cfg, store.NewMemoryStore())

	require.Nil(t, d.LastSync())
	_, err := os.Stat(cfg.Exercises.LocalPath)
	require.True(t, os.IsNotExist(err), "no clone without lessons")
}

func TestDaemon_HealthAndMetricsEndpoints(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions"})
	st := store.NewMemoryStore()
	require.NoError(t, st.UpsertLesson(context.Background(), store.Lesson{ID: 1}))

	d := startDaemon(t, testConfig(t, remote.BarePath), st)
	base := "http://" + d.MetricsAddr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, HealthStatusHealthy, health.Status)
	require.NotNil(t, health.LastSync)

	mresp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "cortex_sync_outcomes_total")
}

func TestDaemon_LessonCompletionRecorded(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions"})
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.UpsertLesson(ctx, store.Lesson{ID: 7}))

	d := startDaemon(t, testConfig(t, remote.BarePath), st)
	require.NoError(t, d.Lessons().CompleteLesson(ctx, 7, 11))

	require.Eventually(t, func() bool {
		ids, err := st.CompletedLessons(ctx, 11)
		return err == nil && len(ids) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDaemon_ReloadConfigReschedules(t *testing.T) {
	remote := testutil.NewRemote(t)
	cfg := testConfig(t, remote.BarePath)
	cfg.Metrics.Enabled = false
	d := startDaemon(t, cfg, store.NewMemoryStore())

	next := *cfg
	next.Exercises.SyncIntervalMS = int64(time.Minute / time.Millisecond)
	require.NoError(t, d.ReloadConfig(context.Background(), &next))
	require.Equal(t, time.Minute, d.GetConfig().Exercises.SyncInterval())

	at, err := d.scheduler.NextRun(syncJobName)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), at, 5*time.Second)
}

func TestDaemon_StartTwiceFails(t *testing.T) {
	cfg := testConfig(t, testutil.NewRemote(t).BarePath)
	cfg.Metrics.Enabled = false
	d := startDaemon(t, cfg, store.NewMemoryStore())
	require.Error(t, d.Start(context.Background()))
}
