package commands

import (
	"fmt"

	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/types"
	"github.com/gesturekit/gesturekit/utils"
)

// SessionCreateRequest represents the parameters for a session create command
type SessionCreateRequest struct {
	SessionID string         `json:"sessionId,omitempty"`
	Tuning    *config.Tuning `json:"config,omitempty"`
}

// SessionCloseRequest represents the parameters for a session close command
type SessionCloseRequest struct {
	SessionID string `json:"sessionId"`
}

// SessionStateRequest represents the parameters for a session state command
type SessionStateRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// EventsPollRequest represents the parameters for an events poll command
type EventsPollRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Max       int    `json:"max,omitempty"`
}

// SessionCreateCommand creates a recognizer session
func SessionCreateCommand(req SessionCreateRequest) *CommandResponse {
	session, err := ActiveEngine().CreateSession(req.SessionID, req.Tuning)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error creating session: %v", err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"sessionId": session.ID,
		"rtl":       session.IsRTL(),
	})
}

// SessionCloseCommand tears down a recognizer session
func SessionCloseCommand(req SessionCloseRequest) *CommandResponse {
	if req.SessionID == "" {
		return NewErrorResponse(fmt.Errorf("session ID is required"))
	}

	if !ActiveEngine().CloseSession(req.SessionID) {
		return NewErrorResponse(fmt.Errorf("session not found: %s", req.SessionID))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Closed session %s", req.SessionID),
	})
}

// SessionStateCommand reports a session's current recognizer state
func SessionStateCommand(req SessionStateRequest) *CommandResponse {
	session, err := FindSessionOrAutoSelect(req.SessionID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding session: %v", err))
	}

	return NewSuccessResponse(session.Info())
}

// SessionsCommand lists the live recognizer sessions
func SessionsCommand() *CommandResponse {
	sessions := ActiveEngine().Sessions()
	if sessions == nil {
		sessions = []SessionInfo{}
	}
	return NewSuccessResponse(sessions)
}

// TouchStartCommand feeds a contact-down event into a session
func TouchStartCommand(req types.TouchEventParams) *CommandResponse {
	return touchCommand(trace.KindStart, req, func(s *Session) {
		s.TouchStart(req.TimestampMs, req.Contacts)
	})
}

// TouchMoveCommand feeds a contact-move event into a session
func TouchMoveCommand(req types.TouchEventParams) *CommandResponse {
	return touchCommand(trace.KindMove, req, func(s *Session) {
		s.TouchMove(req.TimestampMs, req.Contacts)
	})
}

// TouchEndCommand feeds a contact-up event into a session
func TouchEndCommand(req types.TouchEventParams) *CommandResponse {
	return touchCommand(trace.KindEnd, req, func(s *Session) {
		s.TouchEnd(req.TimestampMs, req.Contacts)
	})
}

// touchCommand is the shared body of the three touch event commands:
// find the session, record the event when a recorder is attached, feed
// the trackers and report the post-event state.
func touchCommand(kind string, req types.TouchEventParams, feed func(*Session)) *CommandResponse {
	if req.TimestampMs < 0 {
		return NewErrorResponse(fmt.Errorf("timestampMs must be non-negative, got %v", req.TimestampMs))
	}

	session, err := FindSessionOrAutoSelect(req.SessionID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding session: %v", err))
	}

	if recorder := ActiveEngine().Recorder(); recorder != nil {
		err := recorder.Write(trace.Event{
			Kind:        kind,
			TimestampMs: req.TimestampMs,
			Contacts:    req.Contacts,
		})
		if err != nil {
			// recording failures must not break recognition
			utils.Verbose("failed to record %s event: %v", kind, err)
		}
	}

	feed(session)

	return NewSuccessResponse(map[string]interface{}{
		"sessionId": session.ID,
		"pressed":   session.IsPressed(),
	})
}

// DirectionSetCommand updates a session's writing-direction indicators
func DirectionSetCommand(req types.DirectionParams) *CommandResponse {
	if req.Direction != "" && req.Direction != "ltr" && req.Direction != "rtl" {
		return NewErrorResponse(fmt.Errorf("direction must be 'ltr' or 'rtl', got '%s'", req.Direction))
	}

	session, err := FindSessionOrAutoSelect(req.SessionID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding session: %v", err))
	}

	if recorder := ActiveEngine().Recorder(); recorder != nil {
		if req.Direction != "" || req.ClearDirection {
			if err := recorder.Write(trace.Event{Kind: trace.KindDirection, Direction: req.Direction}); err != nil {
				utils.Verbose("failed to record direction event: %v", err)
			}
		}
		if req.Language != "" {
			if err := recorder.Write(trace.Event{Kind: trace.KindLanguage, Language: req.Language}); err != nil {
				utils.Verbose("failed to record language event: %v", err)
			}
		}
	}

	rtl := session.SetDirection(req)

	return NewSuccessResponse(map[string]interface{}{
		"sessionId": session.ID,
		"rtl":       rtl,
	})
}

// EventsPollCommand drains a session's queued gesture events
func EventsPollCommand(req EventsPollRequest) *CommandResponse {
	session, err := FindSessionOrAutoSelect(req.SessionID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding session: %v", err))
	}

	events := session.Drain(req.Max)

	return NewSuccessResponse(map[string]interface{}{
		"sessionId": session.ID,
		"events":    events,
	})
}
