package commands

import (
	"fmt"
	"time"

	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/gestures"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/types"
)

// ReplayRequest represents the parameters for a replay command
type ReplayRequest struct {
	TracePath string         `json:"tracePath"`
	Tuning    *config.Tuning `json:"config,omitempty"`
}

// ReplayResult is the outcome of replaying a trace: every gesture the
// recognizers emitted, in order, plus the virtual time the trace spanned.
type ReplayResult struct {
	Events      []GestureEvent `json:"events"`
	InputEvents int            `json:"inputEvents"`
	DurationMs  float64        `json:"durationMs"`
}

// ReplayCommand replays a recorded trace against a fresh recognizer
// session on a virtual clock. Timer-driven gestures (long-press) fire
// deterministically at their exact deadlines, so the same trace always
// produces the same events.
func ReplayCommand(req ReplayRequest) *CommandResponse {
	if req.TracePath == "" {
		return NewErrorResponse(fmt.Errorf("trace path is required"))
	}

	events, err := trace.ReadFile(req.TracePath)
	if err != nil {
		return NewErrorResponse(err)
	}

	result, err := Replay(events, req.Tuning)
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(result)
}

// Replay runs trace events through a dedicated single-session engine
// driven by a MockClock. The replay engine is independent of the
// process-wide engine, so replays never disturb live sessions.
func Replay(events []trace.Event, tuning *config.Tuning) (*ReplayResult, error) {
	clock := gestures.NewMockClock(time.Unix(0, 0))
	engine := NewEngine(EngineOptions{
		MaxSessions: 1,
		Tuning:      tuning,
		Clock:       clock,
	})
	defer engine.CloseAll()

	session, err := engine.CreateSession("replay", nil)
	if err != nil {
		return nil, err
	}

	// host timestamps map onto virtual time relative to the session's
	// creation instant
	base := clock.Now()
	for i, ev := range events {
		switch ev.Kind {
		case trace.KindStart, trace.KindMove, trace.KindEnd:
			target := base.Add(time.Duration(ev.TimestampMs * float64(time.Millisecond)))
			if d := target.Sub(clock.Now()); d > 0 {
				// let due long-press timers fire before the next input
				clock.Advance(d)
			}
			switch ev.Kind {
			case trace.KindStart:
				session.TouchStart(ev.TimestampMs, ev.Contacts)
			case trace.KindMove:
				session.TouchMove(ev.TimestampMs, ev.Contacts)
			case trace.KindEnd:
				session.TouchEnd(ev.TimestampMs, ev.Contacts)
			}
		case trace.KindWait:
			clock.Advance(time.Duration(ev.DurationMs * float64(time.Millisecond)))
		case trace.KindDirection:
			session.SetDirection(directionUpdate(ev.Direction))
		case trace.KindLanguage:
			session.SetDirection(languageUpdate(ev.Language))
		default:
			return nil, fmt.Errorf("event %d: unknown kind %q", i, ev.Kind)
		}
	}

	result := &ReplayResult{
		Events:      session.Drain(0),
		InputEvents: len(events),
		DurationMs:  float64(clock.Now().Sub(base)) / float64(time.Millisecond),
	}
	return result, nil
}

// directionUpdate maps a trace direction event onto a session update;
// an empty direction clears the explicit indicator.
func directionUpdate(direction string) types.DirectionParams {
	if direction == "" {
		return types.DirectionParams{ClearDirection: true}
	}
	return types.DirectionParams{Direction: direction}
}

func languageUpdate(language string) types.DirectionParams {
	return types.DirectionParams{Language: language}
}
