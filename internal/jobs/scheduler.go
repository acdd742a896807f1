package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type scheduledJob struct {
	name     string
	job      Job
	interval time.Duration
	ticker   *time.Ticker

	// Guards against a slow run overlapping the next tick.
	processingMutex sync.Mutex
	isProcessing    bool
}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	isRunning bool
	jobs      []*scheduledJob
	wg        sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job run once at Start and then every interval. Jobs
// registered after Start are ignored.
func (s *Scheduler) Register(name string, job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		s.logger.Warn("Ignoring job registered after start", slog.String("job", name))
		return
	}
	s.jobs = append(s.jobs, &scheduledJob{name: name, job: job, interval: interval})
}

// executeJobSafely runs a job only if its previous run has finished
func (s *Scheduler) executeJobSafely(j *scheduledJob) {
	j.processingMutex.Lock()
	if j.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", j.name))
		j.processingMutex.Unlock()
		return
	}
	j.isProcessing = true
	j.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", j.name),
				slog.Any("panic", r))
		}

		j.processingMutex.Lock()
		j.isProcessing = false
		j.processingMutex.Unlock()
	}()

	if err := j.job.Run(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", j.name), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}
	if s.ctx.Err() != nil {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	s.logger.Info("Starting background jobs...")
	s.isRunning = true

	for _, j := range s.jobs {
		s.startJob(j)
	}

	s.logger.Info("Background jobs started", slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) startJob(j *scheduledJob) {
	s.logger.Info("Starting job", slog.String("job", j.name), slog.Duration("interval", j.interval))
	j.ticker = time.NewTicker(j.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeJobSafely(j)

		for {
			select {
			case <-j.ticker.C:
				s.executeJobSafely(j)
			case <-s.ctx.Done():
				s.logger.Info("Job stopped", slog.String("job", j.name))
				return
			}
		}
	}()
}

// Stop halts all background jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.logger.Info("Stopping background jobs...")
	for _, j := range s.jobs {
		if j.ticker != nil {
			j.ticker.Stop()
		}
	}
	s.cancel()
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
