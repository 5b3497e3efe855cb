// Package gestures turns raw touch-contact samples into semantic gesture
// events. It provides two independent trackers: SwipeTracker classifies
// horizontal swipes (with flick detection and RTL-aware direction
// resolution through DirectionResolver) and LongPressTracker detects
// held presses with movement cancellation. A host UI wires its native
// start/move/end input callbacks to the trackers' Handle methods and
// receives recognized gestures through the callbacks it configured.
//
// Trackers never return errors for malformed or out-of-order input:
// empty contact lists, an end or move with no prior start, and repeated
// starts are silent no-ops or implicit session resets. A rejected
// gesture simply fires no callback.
package gestures

import "time"

// TouchPoint is a single contact position in pixels.
type TouchPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is one input-event reading: the contacts active at Time.
// Trackers only look at the first contact; additional contacts from
// multi-touch input are ignored.
type Sample struct {
	Contacts []TouchPoint
	Time     time.Time
}

// first returns the primary contact of the sample, if any.
func (s Sample) first() (TouchPoint, bool) {
	if len(s.Contacts) == 0 {
		return TouchPoint{}, false
	}
	return s.Contacts[0], true
}

// durationMs converts a duration to fractional milliseconds, the unit
// gesture events are reported in.
func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
