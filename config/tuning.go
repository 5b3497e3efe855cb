// Package config loads and validates gesture recognition tuning.
//
// Tuning values are optional everywhere: a file may set any subset of
// keys, a session-create request may override any subset again, and
// the Get accessors fall back to the gestures package defaults for
// whatever is left unset.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"github.com/gesturekit/gesturekit/gestures"
)

// Tuning holds the optional recognition thresholds and direction
// state. Nil fields mean "use the default". The same struct is the
// JSON body accepted by session_create and the result of loading an
// ini tuning file.
type Tuning struct {
	SwipeMinDistance       *float64 `json:"swipeMinDistance,omitempty"`
	SwipeAngleThreshold    *float64 `json:"swipeAngleThreshold,omitempty"`
	SwipeFlickVelocity     *float64 `json:"swipeFlickVelocity,omitempty"`
	LongPressDurationMs    *float64 `json:"longPressDurationMs,omitempty"`
	LongPressMoveThreshold *float64 `json:"longPressMoveThreshold,omitempty"`
	Direction              *string  `json:"direction,omitempty"`
	Language               *string  `json:"language,omitempty"`
	RTLLanguages           []string `json:"rtlLanguages,omitempty"`
}

// Load reads a tuning file in ini format. Missing keys stay nil; the
// result is validated before it is returned.
//
// Example file:
//
//	[swipe]
//	min_distance = 50
//	angle_threshold = 30
//	flick_velocity = 0.8
//
//	[longpress]
//	duration_ms = 500
//	move_threshold = 10
//
//	[direction]
//	direction = rtl
//	language = ar-SA
//	rtl_languages = ar,he,fa
func Load(path string) (*Tuning, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	t := &Tuning{}

	swipe := file.Section("swipe")
	if err := readFloat(swipe, "min_distance", &t.SwipeMinDistance); err != nil {
		return nil, err
	}
	if err := readFloat(swipe, "angle_threshold", &t.SwipeAngleThreshold); err != nil {
		return nil, err
	}
	if err := readFloat(swipe, "flick_velocity", &t.SwipeFlickVelocity); err != nil {
		return nil, err
	}

	longPress := file.Section("longpress")
	if err := readFloat(longPress, "duration_ms", &t.LongPressDurationMs); err != nil {
		return nil, err
	}
	if err := readFloat(longPress, "move_threshold", &t.LongPressMoveThreshold); err != nil {
		return nil, err
	}

	direction := file.Section("direction")
	if key, err := direction.GetKey("direction"); err == nil {
		v := key.String()
		t.Direction = &v
	}
	if key, err := direction.GetKey("language"); err == nil {
		v := key.String()
		t.Language = &v
	}
	if key, err := direction.GetKey("rtl_languages"); err == nil {
		t.RTLLanguages = key.Strings(",")
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}

func readFloat(section *ini.Section, name string, dst **float64) error {
	key, err := section.GetKey(name)
	if err != nil {
		return nil
	}
	v, err := key.Float64()
	if err != nil {
		return fmt.Errorf("invalid %s.%s: %v", section.Name(), name, err)
	}
	*dst = &v
	return nil
}

// Validate rejects values the trackers cannot work with.
func (t *Tuning) Validate() error {
	if t == nil {
		return nil
	}
	if t.SwipeMinDistance != nil && *t.SwipeMinDistance < 0 {
		return fmt.Errorf("swipe min distance must be >= 0, got %v", *t.SwipeMinDistance)
	}
	if t.SwipeAngleThreshold != nil && (*t.SwipeAngleThreshold < 0 || *t.SwipeAngleThreshold > 90) {
		return fmt.Errorf("swipe angle threshold must be within [0, 90], got %v", *t.SwipeAngleThreshold)
	}
	if t.SwipeFlickVelocity != nil && *t.SwipeFlickVelocity < 0 {
		return fmt.Errorf("swipe flick velocity must be >= 0, got %v", *t.SwipeFlickVelocity)
	}
	if t.LongPressDurationMs != nil && *t.LongPressDurationMs <= 0 {
		return fmt.Errorf("long-press duration must be > 0, got %v", *t.LongPressDurationMs)
	}
	if t.LongPressMoveThreshold != nil && *t.LongPressMoveThreshold < 0 {
		return fmt.Errorf("long-press move threshold must be >= 0, got %v", *t.LongPressMoveThreshold)
	}
	if t.Direction != nil {
		switch *t.Direction {
		case "", gestures.DirectionLTR, gestures.DirectionRTL:
		default:
			return fmt.Errorf("direction must be %q, %q or empty, got %q",
				gestures.DirectionLTR, gestures.DirectionRTL, *t.Direction)
		}
	}
	return nil
}

// Merge layers override on top of t and returns the combined tuning.
// Either side may be nil; neither is modified.
func (t *Tuning) Merge(override *Tuning) *Tuning {
	merged := &Tuning{}
	if t != nil {
		*merged = *t
	}
	if override == nil {
		return merged
	}
	if override.SwipeMinDistance != nil {
		merged.SwipeMinDistance = override.SwipeMinDistance
	}
	if override.SwipeAngleThreshold != nil {
		merged.SwipeAngleThreshold = override.SwipeAngleThreshold
	}
	if override.SwipeFlickVelocity != nil {
		merged.SwipeFlickVelocity = override.SwipeFlickVelocity
	}
	if override.LongPressDurationMs != nil {
		merged.LongPressDurationMs = override.LongPressDurationMs
	}
	if override.LongPressMoveThreshold != nil {
		merged.LongPressMoveThreshold = override.LongPressMoveThreshold
	}
	if override.Direction != nil {
		merged.Direction = override.Direction
	}
	if override.Language != nil {
		merged.Language = override.Language
	}
	if override.RTLLanguages != nil {
		merged.RTLLanguages = override.RTLLanguages
	}
	return merged
}

// GetSwipeMinDistance returns the configured swipe distance floor in
// pixels, or the default.
func (t *Tuning) GetSwipeMinDistance() float64 {
	if t == nil || t.SwipeMinDistance == nil {
		return gestures.DefaultSwipeMinDistance
	}
	return *t.SwipeMinDistance
}

// GetSwipeAngleThreshold returns the configured maximum angle from
// horizontal in degrees, or the default.
func (t *Tuning) GetSwipeAngleThreshold() float64 {
	if t == nil || t.SwipeAngleThreshold == nil {
		return gestures.DefaultSwipeAngle
	}
	return *t.SwipeAngleThreshold
}

// GetSwipeFlickVelocity returns the configured flick velocity floor in
// px/ms, or the default.
func (t *Tuning) GetSwipeFlickVelocity() float64 {
	if t == nil || t.SwipeFlickVelocity == nil {
		return gestures.DefaultSwipeFlickVelocity
	}
	return *t.SwipeFlickVelocity
}

// GetLongPressDuration returns the configured hold duration, or the
// default.
func (t *Tuning) GetLongPressDuration() time.Duration {
	if t == nil || t.LongPressDurationMs == nil {
		return gestures.DefaultLongPressDuration
	}
	return time.Duration(*t.LongPressDurationMs * float64(time.Millisecond))
}

// GetLongPressMoveThreshold returns the configured movement tolerance
// in pixels, or the default.
func (t *Tuning) GetLongPressMoveThreshold() float64 {
	if t == nil || t.LongPressMoveThreshold == nil {
		return gestures.DefaultLongPressMoveThreshold
	}
	return *t.LongPressMoveThreshold
}

// GetDirection returns the explicit direction indicator, or "".
func (t *Tuning) GetDirection() string {
	if t == nil || t.Direction == nil {
		return ""
	}
	return *t.Direction
}

// GetLanguage returns the configured language code, or "".
func (t *Tuning) GetLanguage() string {
	if t == nil || t.Language == nil {
		return ""
	}
	return *t.Language
}

// GetRTLLanguages returns the configured RTL prefix set, or nil when
// the resolver should keep its default set.
func (t *Tuning) GetRTLLanguages() []string {
	if t == nil {
		return nil
	}
	return t.RTLLanguages
}

// SwipeConfig builds the tracker config for this tuning. Callbacks are
// left for the caller to fill in.
func (t *Tuning) SwipeConfig() gestures.SwipeConfig {
	return gestures.SwipeConfig{
		MinDistance:       t.GetSwipeMinDistance(),
		AngleThreshold:    t.GetSwipeAngleThreshold(),
		VelocityThreshold: t.GetSwipeFlickVelocity(),
	}
}

// LongPressConfig builds the tracker config for this tuning. Callbacks
// and the clock are left for the caller to fill in.
func (t *Tuning) LongPressConfig() gestures.LongPressConfig {
	return gestures.LongPressConfig{
		Duration:      t.GetLongPressDuration(),
		MoveThreshold: t.GetLongPressMoveThreshold(),
	}
}

// ApplyDirection pushes the tuning's direction state into a resolver.
func (t *Tuning) ApplyDirection(r *gestures.DirectionResolver) {
	if t == nil {
		return
	}
	if len(t.RTLLanguages) > 0 {
		r.SetRTLLanguages(t.RTLLanguages...)
	}
	if d := t.GetDirection(); d != "" {
		r.SetDirection(d)
	}
	if l := t.GetLanguage(); l != "" {
		r.SetLanguage(l)
	}
}

// Effective resolves every field to its final value, for display.
func (t *Tuning) Effective() map[string]interface{} {
	return map[string]interface{}{
		"swipeMinDistance":       t.GetSwipeMinDistance(),
		"swipeAngleThreshold":    t.GetSwipeAngleThreshold(),
		"swipeFlickVelocity":     t.GetSwipeFlickVelocity(),
		"longPressDurationMs":    float64(t.GetLongPressDuration()) / float64(time.Millisecond),
		"longPressMoveThreshold": t.GetLongPressMoveThreshold(),
		"direction":              t.GetDirection(),
		"language":               t.GetLanguage(),
		"rtlLanguages":           t.GetRTLLanguages(),
	}
}
