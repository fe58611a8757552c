package engine

import (
	"sync"
	"time"
)

// Clock supplies the current time to the engine
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a manual clock starting at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Scheduler runs fn once per period until the returned stop function is called
type Scheduler interface {
	Every(period time.Duration, fn func()) (stop func())
}

// TickerScheduler drives jobs from a time.Ticker
type TickerScheduler struct{}

// Every starts a goroutine calling fn on each tick
func (TickerScheduler) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

type scheduledJob struct {
	period time.Duration
	fn     func()
}

// ManualScheduler runs registered jobs only when Step is called.
// When bound to a ManualClock, each step advances the clock by the job period first.
type ManualScheduler struct {
	mu    sync.Mutex
	clock *ManualClock
	jobs  map[int]scheduledJob
	next  int
}

// NewManualScheduler creates a scheduler; clock may be nil
func NewManualScheduler(clock *ManualClock) *ManualScheduler {
	return &ManualScheduler{
		clock: clock,
		jobs:  make(map[int]scheduledJob),
	}
}

// Every registers fn; nothing runs until Step
func (s *ManualScheduler) Every(period time.Duration, fn func()) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.jobs[id] = scheduledJob{period: period, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
	}
}

// Step fires every registered job n times
func (s *ManualScheduler) Step(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		jobs := make([]scheduledJob, 0, len(s.jobs))
		for id := 0; id < s.next; id++ {
			if job, ok := s.jobs[id]; ok {
				jobs = append(jobs, job)
			}
		}
		s.mu.Unlock()

		for _, job := range jobs {
			if s.clock != nil {
				s.clock.Advance(job.period)
			}
			job.fn()
		}
	}
}

// Jobs returns the number of registered jobs
func (s *ManualScheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
