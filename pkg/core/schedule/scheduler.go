// Package schedule runs alarms, reminders and timers off the main turn loop.
//
// Each job waits on its own goroutine so a pending alarm never blocks
// listening. A firing job mutates session state or announces a message exactly
// the way a command handler would; a job that fires late or twice (e.g. after
// cancellation raced the timer) finds itself already removed and does nothing.
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job describes one pending scheduled command.
type Job struct {
	ID    string
	Label string
	At    time.Time
}

type job struct {
	Job
	stop chan struct{}
	fire func()
}

// Scheduler owns the worker goroutines for pending jobs.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
	wg     sync.WaitGroup
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*job),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers fire to run at the given time and returns the job ID.
func (s *Scheduler) Schedule(at time.Time, label string, fire func()) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("scheduler is closed")
	}
	j := &job{
		Job:  Job{ID: uuid.NewString(), Label: label, At: at},
		stop: make(chan struct{}),
		fire: fire,
	}
	s.jobs[j.ID] = j
	s.wg.Add(1)
	s.mu.Unlock()

	go s.wait(j)
	s.logger.Info().Str("job_id", j.ID).Str("label", label).Time("at", at).Msg("scheduled")
	return j.ID, nil
}

func (s *Scheduler) wait(j *job) {
	defer s.wg.Done()

	delay := j.At.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-j.stop:
		return
	case <-timer.C:
	}

	// Remove before firing: a duplicate or late wakeup finds the job gone.
	if !s.take(j.ID) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job_id", j.ID).Interface("panic", r).Msg("scheduled job panicked")
		}
	}()
	j.fire()
}

// take removes a job from the table, reporting whether it was still pending.
func (s *Scheduler) take(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Cancel stops a pending job. It reports whether the job was still pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if ok {
		close(j.stop)
	}
	return ok
}

// Pending returns the jobs still waiting, soonest first not guaranteed.
func (s *Scheduler) Pending() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Job)
	}
	return out
}

// Close cancels all pending jobs and waits for workers to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, j := range s.jobs {
		delete(s.jobs, id)
		close(j.stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
