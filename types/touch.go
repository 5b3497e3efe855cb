// Package types holds the wire-level structures shared by the server
// methods, the streaming client and the trace format.
package types

// TouchPoint is one contact position on the host surface, in pixels.
type TouchPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TouchEventParams is the wire form of one touch input event.
// TimestampMs is relative to an arbitrary host origin; only
// differences between timestamps matter.
type TouchEventParams struct {
	SessionID   string       `json:"sessionId,omitempty"`
	TimestampMs float64      `json:"timestampMs"`
	Contacts    []TouchPoint `json:"contacts"`
}

// DirectionParams updates a session's writing-direction indicators.
// Empty fields leave the corresponding indicator untouched unless the
// matching Clear flag is set.
type DirectionParams struct {
	SessionID      string `json:"sessionId,omitempty"`
	Direction      string `json:"direction,omitempty"`
	ClearDirection bool   `json:"clearDirection,omitempty"`
	Language       string `json:"language,omitempty"`
}
