package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobFunc is the body of a job.
type JobFunc func(ctx context.Context) error

// Status describes a registered job.
type Status struct {
	Name     string    `json:"name" yaml:"name"`
	Schedule string    `json:"schedule" yaml:"schedule"`
	Next     time.Time `json:"next" yaml:"next"`
	LastRun  time.Time `json:"lastRun,omitempty" yaml:"last_run,omitempty"`
	LastErr  string    `json:"lastError,omitempty" yaml:"last_error,omitempty"`
}

type job struct {
	name     string
	schedule *Schedule
	fn       JobFunc
	next     time.Time
	lastRun  time.Time
	lastErr  error
	running  bool
}

// Scheduler runs registered jobs on their schedules. Jobs never overlap
// with themselves.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	wake   chan struct{}
	now    func() time.Time
	poll   time.Duration
	logger *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPollInterval caps how long Run sleeps between checks.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

// New returns an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   map[string]*job{},
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		poll:   time.Minute,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Add registers a recurring job. Names are unique.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	sched, err := Parse(spec)
	if err != nil {
		return fmt.Errorf("scheduler: job %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	s.jobs[name] = &job{name: name, schedule: sched, fn: fn, next: sched.Next(s.now(), time.Time{})}
	return nil
}

// Once queues fn to run on the next tick. A pending one-off job with the
// same name is replaced.
func (s *Scheduler) Once(name string, fn JobFunc) {
	s.mu.Lock()
	s.jobs[name] = &job{name: name, schedule: &Schedule{asString: "once", manual: true}, fn: fn, next: s.now()}
	s.mu.Unlock()
	s.notify()
}

// Trigger runs a registered job on the next tick regardless of its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if ok {
		j.next = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: job %q not found", name)
	}
	s.notify()
	return nil
}

// Next returns the time name runs next, or false when it is not scheduled.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok || j.next.Equal(Never) {
		return time.Time{}, false
	}
	return j.next, true
}

// Jobs returns the status of every job sorted by name.
func (s *Scheduler) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := Status{Name: j.name, Schedule: j.schedule.String(), LastRun: j.lastRun}
		if !j.next.Equal(Never) {
			st.Next = j.next
		}
		if j.lastErr != nil {
			st.LastErr = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Tick runs every due job and waits for them to finish.
func (s *Scheduler) Tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.due() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.run(ctx, j)
		}()
	}
	wg.Wait()
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.Jobs())))
	for {
		s.Tick(ctx)
		timer := time.NewTimer(s.sleep())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) due() []*job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []*job
	for _, j := range s.jobs {
		if j.running || j.next.After(now) {
			continue
		}
		j.running = true
		out = append(out, j)
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	start := s.now()
	err := j.fn(ctx)
	finished := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	j.running = false
	j.lastRun = finished
	j.lastErr = err
	if j.schedule.manual {
		j.next = Never
		if j.schedule.asString == "once" && s.jobs[j.name] == j {
			delete(s.jobs, j.name)
		}
	} else {
		j.next = j.schedule.Next(finished, finished)
	}

	fields := []zap.Field{zap.String("job", j.name), zap.Duration("took", finished.Sub(start))}
	if err != nil {
		s.logger.Warn("job failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("job finished", fields...)
}

func (s *Scheduler) sleep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	wait := s.poll
	for _, j := range s.jobs {
		if d := j.next.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 10*time.Millisecond {
		wait = 10 * time.Millisecond
	}
	return wait
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
