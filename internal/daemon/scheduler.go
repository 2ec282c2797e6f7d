package daemon

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/cortex/internal/logfields"
)

// Scheduler wraps gocron for fixed-rate jobs. Jobs run in singleton mode: a
// tick that fires while the previous run is still going is dropped.
type Scheduler struct {
	scheduler gocron.Scheduler

	mu   sync.Mutex
	jobs map[string]scheduledJob
}

type scheduledJob struct {
	job  gocron.Job
	task func()
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, jobs: make(map[string]scheduledJob)}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval under name and returns the job ID.
// The first run happens one interval after the scheduler starts.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return "", fmt.Errorf("job %q already scheduled", name)
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job %q: %w", name, err)
	}
	s.jobs[name] = scheduledJob{job: job, task: task}
	slog.Info("Scheduled periodic job", slog.String("job", name), slog.Duration("interval", interval), logfields.JobID(job.ID().String()))
	return job.ID().String(), nil
}

// Reschedule changes the interval of an existing job, keeping its task.
func (s *Scheduler) Reschedule(name string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %q is not scheduled", name)
	}

	job, err := s.scheduler.Update(
		entry.job.ID(),
		gocron.DurationJob(interval),
		gocron.NewTask(entry.task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule job %q: %w", name, err)
	}
	s.jobs[name] = scheduledJob{job: job, task: entry.task}
	slog.Info("Rescheduled periodic job", slog.String("job", name), slog.Duration("interval", interval))
	return nil
}

// NextRun returns when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("job %q is not scheduled", name)
	}
	return entry.job.NextRun()
}
