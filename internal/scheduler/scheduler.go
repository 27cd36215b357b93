package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"api-boilerplate/internal/health"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrInvalidJob     = errors.New("job needs a name, a positive interval and a run func")
	ErrDuplicateJob   = errors.New("job already registered")
)

// Job runs Run every Interval until the scheduler shuts down.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// RunOnStart triggers the first run immediately instead of after one interval.
	RunOnStart bool
}

// Scheduler coordinates periodic background jobs.
type Scheduler interface {
	Add(job Job) error
	Start(ctx context.Context) error
	Shutdown()
	Jobs() []string
}

type Config struct {
	// MaxConcurrent bounds how many job runs execute at the same time.
	MaxConcurrent int
	Logger        logrus.FieldLogger
}

type scheduler struct {
	cfg Config

	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	jobs    map[string]Job
	order   []string
	started bool
}

func New(cfg Config) Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &scheduler{
		cfg:  cfg,
		sem:  make(chan struct{}, cfg.MaxConcurrent),
		jobs: make(map[string]Job),
	}
}

// Add registers a job. Jobs added after Start begin immediately.
func (s *scheduler) Add(job Job) error {
	if job.Name == "" || job.Interval <= 0 || job.Run == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = job
	s.order = append(s.order, job.Name)
	if s.started {
		s.spawn(job)
	}
	return nil
}

func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	for _, name := range s.order {
		s.spawn(s.jobs[name])
	}
	s.cfg.Logger.Infof("scheduler started with %d jobs", len(s.order))
	return nil
}

// Shutdown cancels every job and waits for running ones to return.
func (s *scheduler) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.cfg.Logger.Info("scheduler stopped")
}

func (s *scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// spawn must be called with s.mu held.
func (s *scheduler) spawn(job Job) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if job.RunOnStart {
			s.runOnce(ctx, job)
		}

		ticker := time.NewTicker(job.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, job)
			}
		}
	}()
}

func (s *scheduler) runOnce(ctx context.Context, job Job) {
	select {
	case <-ctx.Done():
		return
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	}

	logger := s.cfg.Logger.WithField("job", job.Name)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("job panicked: %v", rec)
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Warn("job failed")
		return
	}
	logger.WithField("took", time.Since(start).String()).Debug("job finished")
}

// StatusJob logs the aggregated health of checkers on every run.
func StatusJob(interval time.Duration, logger logrus.FieldLogger, checkers ...health.Checker) Job {
	return Job{
		Name:     "status",
		Interval: interval,
		Run: func(ctx context.Context) error {
			report := health.Aggregate(ctx, 0, checkers...)
			fields := logrus.Fields{"status": report.Status}
			for _, c := range report.Components {
				fields[c.Name] = c.Status
			}
			entry := logger.WithFields(fields)
			if !report.Healthy() {
				entry.Warn("service status degraded")
				return nil
			}
			entry.Debug("service status")
			return nil
		},
	}
}
