package gestures

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time for the trackers so deferred triggers can be
// driven by virtual time in tests and trace replays.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable deferred call. Stop reports whether it
// prevented the call from running.
type Timer interface {
	Stop() bool
}

// SystemClock returns the real wall clock backed by the time package.
func SystemClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{timer: time.AfterFunc(d, f)}
}

type realTimer struct {
	timer *time.Timer
}

func (t realTimer) Stop() bool { return t.timer.Stop() }

// MockClock is a manually advanced Clock. Advance moves virtual time
// forward and runs due timer functions synchronously on the calling
// goroutine, in deadline order, so tests and replays get deterministic
// trigger timing without sleeping.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

// NewMockClock returns a MockClock whose current time is start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d. Pending timers whose deadlines
// fall within the advance fire synchronously on the calling goroutine,
// in deadline order, with the clock stepped to each deadline as it
// fires, so a firing function reading Now sees its own trigger time.
// Functions scheduled by a firing timer are themselves fired if they
// fall due within the same advance.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		t := c.popDue(target)
		if t == nil {
			break
		}
		c.stepTo(t.deadline)
		t.fire()
	}
	c.stepTo(target)
}

// stepTo moves the clock to ts, never backwards.
func (c *MockClock) stepTo(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.Before(ts) {
		c.now = ts
	}
}

// popDue removes and returns the pending timer with the earliest
// deadline at or before target, or nil if none is due.
func (c *MockClock) popDue(target time.Time) *mockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done() {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	if len(c.timers) == 0 || c.timers[0].deadline.After(target) {
		return nil
	}
	t := c.timers[0]
	c.timers = c.timers[1:]
	return t
}

type mockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (t *mockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *mockTimer) done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped || t.fired
}

func (t *mockTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	f := t.f
	t.mu.Unlock()
	f()
}
