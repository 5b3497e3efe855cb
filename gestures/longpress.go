package gestures

import (
	"math"
	"sync"
	"time"
)

// Default long-press thresholds, applied when the config leaves them
// zero.
const (
	DefaultLongPressDuration      = 500 * time.Millisecond
	DefaultLongPressMoveThreshold = 10.0 // px
)

// LongPressEvent describes one triggered long-press. X and Y are the
// coordinates of the initial contact, not of any later drift within
// the movement threshold.
type LongPressEvent struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	DurationMs float64 `json:"durationMs"`
}

// LongPressConfig tunes a LongPressTracker. Zero thresholds fall back
// to the package defaults.
type LongPressConfig struct {
	// Duration is how long the contact must be held before the
	// trigger fires.
	Duration time.Duration
	// MoveThreshold cancels the press once the contact drifts more
	// than this many pixels from its starting point. Drift exactly at
	// the threshold is tolerated.
	MoveThreshold float64

	// OnLongPress fires once per held press.
	OnLongPress func(LongPressEvent)

	// Clock defaults to SystemClock; replays and tests substitute a
	// MockClock.
	Clock Clock
}

// LongPressTracker recognizes long-presses: a contact held near its
// starting point for a configured duration. The deferred trigger is a
// single cancellable timer owned by the tracker. Movement beyond the
// threshold, early release, a superseding start and Close all prevent
// it from firing, and a press can fire at most once.
type LongPressTracker struct {
	cfg   LongPressConfig
	clock Clock

	mu      sync.Mutex
	session *pressSession
	closed  bool
}

type pressSession struct {
	start     TouchPoint
	pressedAt time.Time
	timer     Timer
}

// NewLongPressTracker returns a tracker with cfg's thresholds and
// clock, substituting defaults for zero values.
func NewLongPressTracker(cfg LongPressConfig) *LongPressTracker {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultLongPressDuration
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = DefaultLongPressMoveThreshold
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &LongPressTracker{cfg: cfg, clock: clock}
}

// HandleStart begins a press session at the sample's first contact and
// schedules the deferred trigger. A start while a session is pending
// cancels the prior session first, so only one trigger can ever be
// scheduled. Samples without contacts are ignored.
func (t *LongPressTracker) HandleStart(s Sample) {
	p, ok := s.first()
	if !ok {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.discardLocked()
	sess := &pressSession{start: p, pressedAt: t.clock.Now()}
	t.session = sess
	sess.timer = t.clock.AfterFunc(t.cfg.Duration, func() { t.trigger(sess) })
	t.mu.Unlock()
}

// HandleMove cancels the pending press once the contact drifts
// strictly beyond the movement threshold. Within the threshold the
// press keeps pending. Without an active session, or without contacts
// in the sample, nothing happens.
func (t *LongPressTracker) HandleMove(s Sample) {
	p, ok := s.first()
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return
	}
	dx := p.X - t.session.start.X
	dy := p.Y - t.session.start.Y
	if math.Hypot(dx, dy) <= t.cfg.MoveThreshold {
		return
	}
	t.discardLocked()
}

// HandleEnd cancels the pending press: releasing before the deadline
// means no long-press. Without an active session nothing happens.
func (t *LongPressTracker) HandleEnd(Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discardLocked()
}

// IsPressed reports whether a press session is pending.
func (t *LongPressTracker) IsPressed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// Close cancels any pending trigger and makes the tracker ignore
// further starts. After Close returns the callback will not fire.
func (t *LongPressTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discardLocked()
	t.closed = true
}

// trigger runs on the timer goroutine when the hold duration elapses.
// The session pointer identifies the press that scheduled it; if that
// press has been cancelled or superseded in the meantime the stale
// trigger is dropped.
func (t *LongPressTracker) trigger(sess *pressSession) {
	t.mu.Lock()
	if t.closed || t.session != sess {
		t.mu.Unlock()
		return
	}
	t.session = nil
	elapsed := t.clock.Since(sess.pressedAt)
	if elapsed < t.cfg.Duration {
		elapsed = t.cfg.Duration
	}
	cb := t.cfg.OnLongPress
	t.mu.Unlock()

	if cb != nil {
		cb(LongPressEvent{
			X:          sess.start.X,
			Y:          sess.start.Y,
			DurationMs: durationMs(elapsed),
		})
	}
}

// discardLocked stops the pending timer, if any, and forgets the
// session. Callers hold t.mu.
func (t *LongPressTracker) discardLocked() {
	if t.session == nil {
		return
	}
	if t.session.timer != nil {
		t.session.timer.Stop()
	}
	t.session = nil
}
