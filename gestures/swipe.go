package gestures

import (
	"math"
	"sync"
	"time"
)

// SwipeDirection identifies the semantic direction of a completed
// swipe. Only the horizontal axis is classified; near-vertical motion
// is rejected rather than classified.
type SwipeDirection string

const (
	// SwipeNone is the zero value; emitted events never carry it.
	SwipeNone  SwipeDirection = ""
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// Mirror swaps left and right, leaving any other value untouched.
// Under an RTL writing direction the physical swipe is mirrored so a
// rightward drag means "back" just as a leftward drag does under LTR.
func (d SwipeDirection) Mirror() SwipeDirection {
	switch d {
	case SwipeLeft:
		return SwipeRight
	case SwipeRight:
		return SwipeLeft
	default:
		return d
	}
}

// Default swipe thresholds, applied when the config leaves them zero.
const (
	DefaultSwipeMinDistance   = 50.0 // px
	DefaultSwipeAngle         = 30.0 // degrees from horizontal
	DefaultSwipeFlickVelocity = 0.8  // px/ms
)

// minElapsed guards the velocity division when the start and end
// samples carry the same timestamp.
const minElapsed = time.Millisecond

// SwipeEvent describes one recognized swipe.
type SwipeEvent struct {
	Direction  SwipeDirection `json:"direction"`
	Distance   float64        `json:"distancePx"`
	Velocity   float64        `json:"velocityPxPerMs"`
	Flick      bool           `json:"isFlick"`
	DurationMs float64        `json:"durationMs"`
}

// SwipeConfig tunes a SwipeTracker. Zero thresholds fall back to the
// package defaults. All callbacks are optional; nil slots are skipped.
type SwipeConfig struct {
	// MinDistance rejects gestures that travel fewer pixels.
	MinDistance float64
	// AngleThreshold rejects gestures steeper than this many degrees
	// from horizontal.
	AngleThreshold float64
	// VelocityThreshold marks swipes at or above this speed (px/ms)
	// as flicks.
	VelocityThreshold float64

	// OnSwipe fires for every accepted swipe, before the
	// direction-specific callback.
	OnSwipe      func(SwipeEvent)
	OnSwipeLeft  func(SwipeEvent)
	OnSwipeRight func(SwipeEvent)
}

// SwipeTracker recognizes horizontal swipes from start/end contact
// samples. Intermediate move samples are accepted but never influence
// the outcome; only the initial and terminal samples decide it. The
// zero duration between them is tolerated, and a tracker with a nil
// resolver behaves as permanently LTR.
type SwipeTracker struct {
	cfg      SwipeConfig
	resolver *DirectionResolver

	mu      sync.Mutex
	session *swipeSession
}

type swipeSession struct {
	start TouchPoint
	at    time.Time
}

// NewSwipeTracker returns a tracker using resolver for RTL mirroring.
func NewSwipeTracker(resolver *DirectionResolver, cfg SwipeConfig) *SwipeTracker {
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultSwipeMinDistance
	}
	if cfg.AngleThreshold <= 0 {
		cfg.AngleThreshold = DefaultSwipeAngle
	}
	if cfg.VelocityThreshold <= 0 {
		cfg.VelocityThreshold = DefaultSwipeFlickVelocity
	}
	return &SwipeTracker{cfg: cfg, resolver: resolver}
}

// HandleStart begins a swipe session at the sample's first contact. A
// start while a session is already active replaces it. Samples without
// contacts are ignored.
func (t *SwipeTracker) HandleStart(s Sample) {
	p, ok := s.first()
	if !ok {
		return
	}
	t.mu.Lock()
	t.session = &swipeSession{start: p, at: s.Time}
	t.mu.Unlock()
}

// HandleMove accepts an intermediate sample. Swipe classification only
// compares the start and end samples, so moves are deliberately
// ignored; the method exists so hosts can forward their full input
// stream to every tracker uniformly.
func (t *SwipeTracker) HandleMove(Sample) {}

// HandleEnd completes the active session and classifies it. The
// session is consumed whether or not a swipe is recognized; without an
// active session, or without contacts in the sample, nothing happens.
func (t *SwipeTracker) HandleEnd(s Sample) {
	t.mu.Lock()
	sess := t.session
	t.session = nil
	t.mu.Unlock()
	if sess == nil {
		return
	}
	end, ok := s.first()
	if !ok {
		return
	}

	dx := end.X - sess.start.X
	dy := end.Y - sess.start.Y
	distance := math.Hypot(dx, dy)
	if distance == 0 {
		return
	}
	if angleFromHorizontal(dx, dy) > t.cfg.AngleThreshold {
		return
	}
	if distance < t.cfg.MinDistance {
		return
	}

	elapsed := s.Time.Sub(sess.at)
	if elapsed < minElapsed {
		elapsed = minElapsed
	}
	velocity := distance / durationMs(elapsed)

	direction := SwipeLeft
	if dx > 0 {
		direction = SwipeRight
	}
	if t.resolver != nil && t.resolver.IsRTL() {
		direction = direction.Mirror()
	}

	ev := SwipeEvent{
		Direction:  direction,
		Distance:   distance,
		Velocity:   velocity,
		Flick:      velocity >= t.cfg.VelocityThreshold,
		DurationMs: durationMs(elapsed),
	}
	if t.cfg.OnSwipe != nil {
		t.cfg.OnSwipe(ev)
	}
	switch direction {
	case SwipeLeft:
		if t.cfg.OnSwipeLeft != nil {
			t.cfg.OnSwipeLeft(ev)
		}
	case SwipeRight:
		if t.cfg.OnSwipeRight != nil {
			t.cfg.OnSwipeRight(ev)
		}
	}
}

// angleFromHorizontal returns the absolute angle of the movement
// vector measured from the horizontal axis, in degrees within [0, 90].
func angleFromHorizontal(dx, dy float64) float64 {
	return math.Atan2(math.Abs(dy), math.Abs(dx)) * 180 / math.Pi
}
