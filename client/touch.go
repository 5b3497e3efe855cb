package client

import (
	"encoding/json"
	"fmt"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/types"
)

// TouchStart reports a contact going down. timestampMs is the host's
// own monotonic stamp; the server orders events by it.
func (c *Client) TouchStart(sessionID string, timestampMs float64, contacts []types.TouchPoint) error {
	return c.sendTouch("touch_start", sessionID, timestampMs, contacts)
}

func (c *Client) TouchMove(sessionID string, timestampMs float64, contacts []types.TouchPoint) error {
	return c.sendTouch("touch_move", sessionID, timestampMs, contacts)
}

func (c *Client) TouchEnd(sessionID string, timestampMs float64, contacts []types.TouchPoint) error {
	return c.sendTouch("touch_end", sessionID, timestampMs, contacts)
}

func (c *Client) sendTouch(method, sessionID string, timestampMs float64, contacts []types.TouchPoint) error {
	_, err := c.call(method, types.TouchEventParams{
		SessionID:   sessionID,
		TimestampMs: timestampMs,
		Contacts:    contacts,
	})
	return err
}

// SetDirection forces the reading direction to "ltr" or "rtl" and
// reports the session's effective RTL state.
func (c *Client) SetDirection(sessionID, direction string) (bool, error) {
	return c.setDirection(types.DirectionParams{SessionID: sessionID, Direction: direction})
}

// SetLanguage updates the language tag used for direction inference.
func (c *Client) SetLanguage(sessionID, language string) (bool, error) {
	return c.setDirection(types.DirectionParams{SessionID: sessionID, Language: language})
}

// ClearDirection drops an earlier explicit direction so the language
// decides again.
func (c *Client) ClearDirection(sessionID string) (bool, error) {
	return c.setDirection(types.DirectionParams{SessionID: sessionID, ClearDirection: true})
}

func (c *Client) setDirection(params types.DirectionParams) (bool, error) {
	result, err := c.call("direction_set", params)
	if err != nil {
		return false, err
	}

	var state struct {
		RTL bool `json:"rtl"`
	}
	if err := json.Unmarshal(result, &state); err != nil {
		return false, fmt.Errorf("malformed direction_set result: %w", err)
	}
	return state.RTL, nil
}

// PollEvents drains up to max queued gesture events; max <= 0 drains
// everything. Sessions created over this connection push instead and
// always poll empty.
func (c *Client) PollEvents(sessionID string, max int) ([]commands.GestureEvent, error) {
	params := map[string]interface{}{
		"sessionId": sessionID,
	}
	if max > 0 {
		params["max"] = max
	}

	result, err := c.call("events_poll", params)
	if err != nil {
		return nil, err
	}

	var poll struct {
		Events []commands.GestureEvent `json:"events"`
	}
	if err := json.Unmarshal(result, &poll); err != nil {
		return nil, fmt.Errorf("malformed events_poll result: %w", err)
	}
	return poll.Events, nil
}

// ReplayTrace runs a recorded trace on the server's virtual clock and
// returns the gestures it produced.
func (c *Client) ReplayTrace(events []trace.Event, tuning *config.Tuning) (*commands.ReplayResult, error) {
	params := map[string]interface{}{
		"events": events,
	}
	if tuning != nil {
		params["config"] = tuning
	}

	result, err := c.call("replay", params)
	if err != nil {
		return nil, err
	}

	var replayResult commands.ReplayResult
	if err := json.Unmarshal(result, &replayResult); err != nil {
		return nil, fmt.Errorf("malformed replay result: %w", err)
	}
	return &replayResult, nil
}
