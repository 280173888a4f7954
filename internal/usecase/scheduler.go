package usecase

import (
	"context"
	"sync"
	"time"

	applogger "BitLearn/pkg/logger"
)

// Job is one periodic task.
type Job struct {
	Name      string
	Interval  time.Duration
	Immediate bool // run once right after Start
	Run       func(ctx context.Context)
}

// Scheduler runs each job on its own ticker until Stop.
type Scheduler struct {
	l *applogger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      *sync.WaitGroup // one per run
	running bool
}

func NewScheduler(l *applogger.Logger) *Scheduler {
	return &Scheduler{l: l}
}

// Start launches the jobs. It returns false and does nothing when the
// scheduler is already running.
func (s *Scheduler) Start(parent context.Context, jobs ...Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true
	s.wg = &sync.WaitGroup{}
	for _, job := range jobs {
		if job.Interval <= 0 || job.Run == nil {
			s.l.Warn("skipping job", applogger.String("job", job.Name), applogger.Duration("interval_ms", job.Interval))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, s.wg, job)
	}
	return true
}

func (s *Scheduler) loop(ctx context.Context, wg *sync.WaitGroup, job Job) {
	defer wg.Done()
	if job.Immediate {
		s.run(ctx, job)
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, job)
		}
	}
}

// run executes one tick; a panic is logged and the job keeps its schedule.
func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.l.Error("job panicked", applogger.String("job", job.Name), applogger.Any("panic", r))
		}
	}()
	job.Run(ctx)
}

// Stop cancels all jobs and waits for in-flight ticks to return. It reports
// whether the scheduler was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.cancel()
	s.running = false
	wg := s.wg
	s.mu.Unlock()

	wg.Wait()
	return true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
