package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a maintenance task run periodically
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job once as soon as the scheduler starts
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler manages periodic execution of maintenance jobs
type Scheduler struct {
	jobs     []Job
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	started  bool
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. Jobs added after Start are ignored.
func (s *Scheduler) Add(job Job) {
	if s.started || job.Interval <= 0 || job.Run == nil {
		s.logger.WithField("job", job.Name).Warn("Ignoring job")
		return
	}
	s.jobs = append(s.jobs, job)
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
	}
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	if job.RunOnStart {
		s.execute(job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(job)
		}
	}
}

func (s *Scheduler) execute(job Job) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	entry := s.logger.WithField("job", job.Name)
	entry.Debug("Starting job")

	if err := job.Run(s.ctx); err != nil {
		entry.WithError(err).Error("Job failed")
		return
	}
	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Job completed successfully")
}

// Stop cancels running jobs and waits for the loops to exit
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}
