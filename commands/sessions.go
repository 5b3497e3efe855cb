package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/gestures"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/types"
	"github.com/gesturekit/gesturekit/utils"
)

// DefaultMaxSessions bounds the engine's session registry.
const DefaultMaxSessions = 64

// maxQueuedEvents bounds each session's poll queue; the oldest events
// are dropped first when a host stops polling.
const maxQueuedEvents = 128

// Gesture event kinds delivered to hosts.
const (
	KindSwipe     = "swipe"
	KindLongPress = "longpress"
	KindDirection = "direction"
)

// GestureEvent is the envelope delivered to hosts for every recognized
// gesture and direction change, over poll and push alike.
type GestureEvent struct {
	SessionID string                   `json:"sessionId"`
	Kind      string                   `json:"kind"`
	Swipe     *gestures.SwipeEvent     `json:"swipe,omitempty"`
	LongPress *gestures.LongPressEvent `json:"longPress,omitempty"`
	RTL       *bool                    `json:"rtl,omitempty"`
}

// SessionInfo is the listing form of a session.
type SessionInfo struct {
	ID            string  `json:"id"`
	Pressed       bool    `json:"pressed"`
	RTL           bool    `json:"rtl"`
	QueuedEvents  int     `json:"queuedEvents"`
	DroppedEvents int     `json:"droppedEvents,omitempty"`
	UptimeMs      float64 `json:"uptimeMs"`
}

// EngineOptions configure the session engine.
type EngineOptions struct {
	// MaxSessions bounds the registry; creating a session beyond the
	// bound evicts (and tears down) the least recently used one.
	MaxSessions int
	// Tuning is the base tuning applied to every session; per-session
	// overrides are merged on top of it.
	Tuning *config.Tuning
	// Clock substitutes a virtual clock for replays and tests.
	Clock gestures.Clock
	// Recorder, when set, receives a trace event for every touch
	// input the engine's sessions accept.
	Recorder *trace.Writer
}

// Engine owns the live recognizer sessions. The registry is LRU
// bounded so an abandoned host can never accumulate sessions with
// pending long-press timers; eviction tears the session down.
type Engine struct {
	opts     EngineOptions
	clock    gestures.Clock
	sessions *lru.Cache[string, *Session]
}

// NewEngine creates an engine with opts.
func NewEngine(opts EngineOptions) *Engine {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	clock := opts.Clock
	if clock == nil {
		clock = gestures.SystemClock()
	}
	e := &Engine{opts: opts, clock: clock}
	// the size is clamped positive above, so the error is unreachable
	e.sessions, _ = lru.NewWithEvict(opts.MaxSessions, func(id string, session *Session) {
		utils.Verbose("closing session %s", id)
		session.Close()
	})
	return e
}

// Recorder returns the engine's trace recorder, or nil.
func (e *Engine) Recorder() *trace.Writer {
	return e.opts.Recorder
}

// CreateSession builds a session from the engine's base tuning merged
// with overrides. An empty id is replaced with a generated UUID; a
// duplicate id is an error.
func (e *Engine) CreateSession(id string, overrides *config.Tuning) (*Session, error) {
	if overrides != nil {
		if err := overrides.Validate(); err != nil {
			return nil, err
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	tuning := e.opts.Tuning.Merge(overrides)
	session := newSession(id, tuning, e.clock)
	if found, _ := e.sessions.ContainsOrAdd(id, session); found {
		session.Close()
		return nil, fmt.Errorf("session already exists: %s", id)
	}
	utils.Verbose("created session %s", id)
	return session, nil
}

// Session looks up a live session, marking it recently used.
func (e *Engine) Session(id string) (*Session, bool) {
	return e.sessions.Get(id)
}

// CloseSession tears down a session. It reports whether the session
// existed.
func (e *Engine) CloseSession(id string) bool {
	// Remove invokes the eviction callback, which closes the session
	return e.sessions.Remove(id)
}

// Sessions lists the live sessions, oldest first.
func (e *Engine) Sessions() []SessionInfo {
	var infos []SessionInfo
	for _, id := range e.sessions.Keys() {
		if session, ok := e.sessions.Peek(id); ok {
			infos = append(infos, session.Info())
		}
	}
	return infos
}

// CloseAll tears down every live session. Used on SIGINT/SIGTERM and
// server shutdown so no long-press timer can fire afterwards.
func (e *Engine) CloseAll() {
	e.sessions.Purge()
}

// Session bundles the per-host tracker set: one direction resolver,
// one swipe tracker and one long-press tracker, plus a bounded queue
// of recognized events. Hosts consume the queue through events_poll or
// attach a push sink (the websocket layer) with SetNotify.
type Session struct {
	ID string

	resolver  *gestures.DirectionResolver
	swipe     *gestures.SwipeTracker
	longPress *gestures.LongPressTracker
	clock     gestures.Clock
	epoch     time.Time

	mu      sync.Mutex
	events  []GestureEvent
	dropped int
	notify  func(GestureEvent)
	unsub   func()
	closed  bool
}

func newSession(id string, tuning *config.Tuning, clock gestures.Clock) *Session {
	s := &Session{
		ID:    id,
		clock: clock,
		epoch: clock.Now(),
	}

	s.resolver = gestures.NewDirectionResolver()
	tuning.ApplyDirection(s.resolver)
	s.unsub = s.resolver.Subscribe(func() {
		rtl := s.resolver.IsRTL()
		s.enqueue(GestureEvent{SessionID: s.ID, Kind: KindDirection, RTL: &rtl})
	})

	swipeCfg := tuning.SwipeConfig()
	swipeCfg.OnSwipe = func(ev gestures.SwipeEvent) {
		s.enqueue(GestureEvent{SessionID: s.ID, Kind: KindSwipe, Swipe: &ev})
	}
	s.swipe = gestures.NewSwipeTracker(s.resolver, swipeCfg)

	pressCfg := tuning.LongPressConfig()
	pressCfg.Clock = clock
	pressCfg.OnLongPress = func(ev gestures.LongPressEvent) {
		s.enqueue(GestureEvent{SessionID: s.ID, Kind: KindLongPress, LongPress: &ev})
	}
	s.longPress = gestures.NewLongPressTracker(pressCfg)

	return s
}

// sampleAt maps a host-relative timestamp onto the session's timeline.
// The origin is the session's creation instant, so only differences
// between host timestamps matter.
func (s *Session) sampleAt(timestampMs float64, contacts []types.TouchPoint) gestures.Sample {
	points := make([]gestures.TouchPoint, len(contacts))
	for i, c := range contacts {
		points[i] = gestures.TouchPoint{X: c.X, Y: c.Y}
	}
	return gestures.Sample{
		Contacts: points,
		Time:     s.epoch.Add(time.Duration(timestampMs * float64(time.Millisecond))),
	}
}

// TouchStart feeds a contact-down event to both trackers.
func (s *Session) TouchStart(timestampMs float64, contacts []types.TouchPoint) {
	sample := s.sampleAt(timestampMs, contacts)
	s.swipe.HandleStart(sample)
	s.longPress.HandleStart(sample)
}

// TouchMove feeds a contact-move event to both trackers.
func (s *Session) TouchMove(timestampMs float64, contacts []types.TouchPoint) {
	sample := s.sampleAt(timestampMs, contacts)
	s.swipe.HandleMove(sample)
	s.longPress.HandleMove(sample)
}

// TouchEnd feeds a contact-up event to both trackers.
func (s *Session) TouchEnd(timestampMs float64, contacts []types.TouchPoint) {
	sample := s.sampleAt(timestampMs, contacts)
	s.swipe.HandleEnd(sample)
	s.longPress.HandleEnd(sample)
}

// SetDirection updates the session's writing-direction indicators and
// returns the resolved RTL state.
func (s *Session) SetDirection(params types.DirectionParams) bool {
	if params.ClearDirection {
		s.resolver.SetDirection("")
	} else if params.Direction != "" {
		s.resolver.SetDirection(params.Direction)
	}
	if params.Language != "" {
		s.resolver.SetLanguage(params.Language)
	}
	return s.resolver.IsRTL()
}

// IsRTL reports the session's resolved writing direction.
func (s *Session) IsRTL() bool {
	return s.resolver.IsRTL()
}

// IsPressed reports whether a long-press is pending.
func (s *Session) IsPressed() bool {
	return s.longPress.IsPressed()
}

// Info snapshots the session for listings.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	queued := len(s.events)
	dropped := s.dropped
	s.mu.Unlock()
	return SessionInfo{
		ID:            s.ID,
		Pressed:       s.longPress.IsPressed(),
		RTL:           s.resolver.IsRTL(),
		QueuedEvents:  queued,
		DroppedEvents: dropped,
		UptimeMs:      float64(s.clock.Since(s.epoch)) / float64(time.Millisecond),
	}
}

// Drain removes and returns up to max queued events (all of them when
// max <= 0).
func (s *Session) Drain(max int) []GestureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	if max > 0 && max < n {
		n = max
	}
	drained := make([]GestureEvent, n)
	copy(drained, s.events[:n])
	s.events = append(s.events[:0], s.events[n:]...)
	return drained
}

// SetNotify attaches a push sink. While a sink is attached events skip
// the poll queue and go straight to it; passing nil detaches the sink.
func (s *Session) SetNotify(fn func(GestureEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Close tears the session down: the direction subscription is removed
// and the long-press tracker is closed so its pending timer can never
// fire. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	s.notify = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.longPress.Close()
}

// enqueue delivers one event: straight to the push sink when one is
// attached, otherwise onto the bounded poll queue. Runs on whichever
// goroutine the tracker callback fires on.
func (s *Session) enqueue(ev GestureEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	notify := s.notify
	if notify == nil {
		if len(s.events) >= maxQueuedEvents {
			s.events = s.events[1:]
			s.dropped++
		}
		s.events = append(s.events, ev)
	}
	s.mu.Unlock()

	if notify != nil {
		notify(ev)
	}
}
