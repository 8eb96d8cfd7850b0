// Package maintenance runs periodic housekeeping for the gateway on a cron
// schedule: pruning idle rate limiters and sweeping expired cache entries.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/marina/internal/logging"
)

// Default schedules.
const (
	LimiterPruneSpec = "@every 1m"
	CacheSweepSpec   = "@every 5m"
)

// Job is one unit of housekeeping.
type Job func(ctx context.Context) error

// Pruner drops idle rate limiter state.
type Pruner interface {
	Cleanup() int
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

type entry struct {
	spec string
	job  Job
}

// Scheduler is a lifecycle service running named jobs on cron specs.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]entry
	log     *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewDefault("maintenance")
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		jobs: make(map[string]entry),
		log:  log,
	}
}

func (s *Scheduler) Name() string { return "maintenance" }

// Add schedules job under name. spec is a standard cron expression or a
// descriptor such as "@every 1m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("maintenance job %q already added", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = entry{spec: spec, job: job}
	return nil
}

// Jobs lists the scheduled job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow executes the named job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("maintenance job %q not found", name)
	}
	return e.job(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cron.Start()
	s.log.WithField("jobs", len(s.jobs)).Info("maintenance scheduler started")
	return nil
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()
	select {
	case <-done.Done():
		s.log.Info("maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	err := job(ctx)
	fields := s.log.WithFields(map[string]interface{}{
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		fields.WithError(err).Warn("maintenance job failed")
		return
	}
	fields.Debug("maintenance job finished")
}

// PruneLimiters returns a job that drops idle limiter entries.
func PruneLimiters(p Pruner, log *logging.Logger) Job {
	return func(context.Context) error {
		if n := p.Cleanup(); n > 0 && log != nil {
			log.WithField("removed", n).Debug("pruned idle rate limiters")
		}
		return nil
	}
}

// SweepCache returns a job that drops expired cache entries.
func SweepCache(sw Sweeper, log *logging.Logger) Job {
	return func(context.Context) error {
		if n := sw.Sweep(); n > 0 && log != nil {
			log.WithField("removed", n).Debug("swept expired cache entries")
		}
		return nil
	}
}

// cronLogger routes cron's internal logging to logrus.
type cronLogger struct {
	log *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kv(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kv(keysAndValues)).WithError(err).Error(msg)
}

func kv(pairs []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return fields
}
