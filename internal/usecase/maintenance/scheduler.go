// Package maintenance runs periodic housekeeping jobs on cron schedules.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/metrics"
)

// Job names of the built-in housekeeping jobs.
const (
	JobCacheSweep = "cache_sweep"
	JobQuotaReset = "quota_reset"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// ErrUnknownJob is returned for a job name that was never registered.
var ErrUnknownJob = errors.New("unknown maintenance job")

// JobFunc performs one run and reports how many records it touched.
type JobFunc func(ctx context.Context) (int, error)

// JobStatus is a snapshot of a registered job.
type JobStatus struct {
	Name      string
	Schedule  string
	Enabled   bool
	LastRun   time.Time
	NextRun   time.Time
	LastCount int
	LastError string
}

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entryID  cron.EntryID
	enabled  bool
	running  bool

	lastRun   time.Time
	lastCount int
	lastError string
}

// Scheduler runs registered jobs on standard 5-field cron expressions or @descriptors.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped Scheduler. Schedules are evaluated in UTC.
func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		parser:  parser,
		timeout: timeout,
		logger:  logger,
		jobs:    make(map[string]*job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a job. Registering an existing name replaces its schedule and function.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	if _, err := s.parser.Parse(schedule); err != nil {
		return fmt.Errorf("parse schedule %q for job %s: %w", schedule, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old.entryID)
	}

	id, err := s.cron.AddFunc(schedule, func() { s.runScheduled(name) })
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = &job{name: name, schedule: schedule, fn: fn, entryID: id, enabled: true}

	s.logger.Info("Maintenance job registered",
		zap.String("job", name),
		zap.String("schedule", schedule),
	)
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started", zap.Int("jobs", len(s.Status())))
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Maintenance scheduler stop timed out")
	}
	s.logger.Info("Maintenance scheduler stopped")
}

// SetEnabled toggles scheduled runs of a job. RunNow ignores the flag.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownJob)
	}
	j.enabled = enabled
	return nil
}

// RunNow executes a job synchronously with the caller's context.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownJob)
	}
	return s.execute(ctx, j)
}

// Status returns job snapshots sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{
			Name:      j.name,
			Schedule:  j.schedule,
			Enabled:   j.enabled,
			LastRun:   j.lastRun,
			NextRun:   s.cron.Entry(j.entryID).Next,
			LastCount: j.lastCount,
			LastError: j.lastError,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Scheduler) runScheduled(name string) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	skip := !ok || !j.enabled || j.running
	s.mu.Unlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	_, _ = s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) (int, error) {
	s.mu.Lock()
	j.running = true
	s.mu.Unlock()

	start := time.Now()
	n, err := j.fn(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	j.running = false
	j.lastRun = start.UTC()
	j.lastCount = n
	j.lastError = ""
	if err != nil {
		j.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		metrics.MaintenanceRunsTotal.WithLabelValues(j.name, "error").Inc()
		s.logger.Error("Maintenance job failed",
			zap.String("job", j.name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return n, fmt.Errorf("job %s: %w", j.name, err)
	}

	metrics.MaintenanceRunsTotal.WithLabelValues(j.name, "success").Inc()
	s.logger.Info("Maintenance job completed",
		zap.String("job", j.name),
		zap.Int("affected", n),
		zap.Duration("duration", elapsed),
	)
	return n, nil
}

// Schedules holds cron expressions for the built-in jobs. Empty disables a job.
type Schedules struct {
	CacheSweep string
	QuotaReset string
}

// RegisterDefaults registers the cache sweep and quota reset jobs.
// A nil collaborator or an empty schedule skips the job.
func RegisterDefaults(s *Scheduler, cache CacheSweeper, quota QuotaResetter, sch Schedules) error {
	if cache != nil && sch.CacheSweep != "" {
		if err := s.Register(JobCacheSweep, sch.CacheSweep, cache.SweepExpired); err != nil {
			return err
		}
	}
	if quota != nil && sch.QuotaReset != "" {
		if err := s.Register(JobQuotaReset, sch.QuotaReset, quota.ResetDailyLimits); err != nil {
			return err
		}
	}
	return nil
}
