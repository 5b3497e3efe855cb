package gestures

import (
	"math"
	"testing"
	"time"
)

func pt(x, y float64) TouchPoint {
	return TouchPoint{X: x, Y: y}
}

// sampleAt builds a sample at ms milliseconds past a fixed origin.
func sampleAt(ms float64, contacts ...TouchPoint) Sample {
	base := time.Unix(0, 0)
	return Sample{
		Contacts: contacts,
		Time:     base.Add(time.Duration(ms * float64(time.Millisecond))),
	}
}

func TestSwipeClassification(t *testing.T) {
	tests := []struct {
		name      string
		cfg       SwipeConfig
		rtl       bool
		start     Sample
		end       Sample
		want      *SwipeEvent
		tolerance float64
	}{
		{
			name:  "rightward swipe under ltr",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(160, 200)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   60,
				Velocity:   0.6,
				Flick:      false,
				DurationMs: 100,
			},
		},
		{
			name:  "rightward swipe mirrored under rtl",
			rtl:   true,
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(160, 200)),
			want: &SwipeEvent{
				Direction:  SwipeLeft,
				Distance:   60,
				Velocity:   0.6,
				Flick:      false,
				DurationMs: 100,
			},
		},
		{
			name:  "leftward swipe under ltr",
			start: sampleAt(0, pt(300, 200)),
			end:   sampleAt(150, pt(180, 200)),
			want: &SwipeEvent{
				Direction:  SwipeLeft,
				Distance:   120,
				Velocity:   0.8,
				Flick:      true,
				DurationMs: 150,
			},
		},
		{
			name:  "leftward swipe mirrored under rtl",
			rtl:   true,
			start: sampleAt(0, pt(300, 200)),
			end:   sampleAt(150, pt(180, 200)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   120,
				Velocity:   0.8,
				Flick:      true,
				DurationMs: 150,
			},
		},
		{
			name:  "near vertical motion rejected",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(115, 300)),
			want:  nil,
		},
		{
			name:  "too short motion rejected",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(140, 200)),
			want:  nil,
		},
		{
			name:  "distance exactly at minimum accepted",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(150, 200)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   50,
				Velocity:   0.5,
				Flick:      false,
				DurationMs: 100,
			},
		},
		{
			name:  "velocity exactly at flick threshold",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(180, 200)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   80,
				Velocity:   0.8,
				Flick:      true,
				DurationMs: 100,
			},
		},
		{
			name:  "shallow diagonal accepted",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(200, pt(200, 250)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   math.Hypot(100, 50),
				Velocity:   math.Hypot(100, 50) / 200,
				Flick:      false,
				DurationMs: 200,
			},
			tolerance: 1e-9,
		},
		{
			name:  "zero distance produces nothing",
			start: sampleAt(0, pt(100, 200)),
			end:   sampleAt(100, pt(100, 200)),
			want:  nil,
		},
		{
			name: "custom thresholds respected",
			cfg: SwipeConfig{
				MinDistance:       20,
				AngleThreshold:    10,
				VelocityThreshold: 2,
			},
			start: sampleAt(0, pt(0, 0)),
			end:   sampleAt(10, pt(30, 0)),
			want: &SwipeEvent{
				Direction:  SwipeRight,
				Distance:   30,
				Velocity:   3,
				Flick:      true,
				DurationMs: 10,
			},
		},
		{
			name: "custom angle threshold rejects",
			cfg: SwipeConfig{
				MinDistance:       20,
				AngleThreshold:    10,
				VelocityThreshold: 2,
			},
			start: sampleAt(0, pt(0, 0)),
			end:   sampleAt(10, pt(30, 10)),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *SwipeEvent
			cfg := tt.cfg
			cfg.OnSwipe = func(ev SwipeEvent) {
				if got != nil {
					t.Fatal("swipe reported more than once")
				}
				got = &ev
			}
			resolver := NewDirectionResolver()
			if tt.rtl {
				resolver.SetDirection(DirectionRTL)
			}
			tracker := NewSwipeTracker(resolver, cfg)

			tracker.HandleStart(tt.start)
			tracker.HandleEnd(tt.end)

			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected no swipe, got %+v", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a swipe, got none")
			}
			if got.Direction != tt.want.Direction {
				t.Errorf("direction = %q, want %q", got.Direction, tt.want.Direction)
			}
			if got.Flick != tt.want.Flick {
				t.Errorf("isFlick = %v, want %v", got.Flick, tt.want.Flick)
			}
			tol := tt.tolerance
			if math.Abs(got.Distance-tt.want.Distance) > tol {
				t.Errorf("distance = %v, want %v", got.Distance, tt.want.Distance)
			}
			if math.Abs(got.Velocity-tt.want.Velocity) > tol {
				t.Errorf("velocity = %v, want %v", got.Velocity, tt.want.Velocity)
			}
			if math.Abs(got.DurationMs-tt.want.DurationMs) > tol {
				t.Errorf("durationMs = %v, want %v", got.DurationMs, tt.want.DurationMs)
			}
		})
	}
}

func TestSwipeMovesDoNotAffectOutcome(t *testing.T) {
	var events []SwipeEvent
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(ev SwipeEvent) { events = append(events, ev) },
	})

	// a wild detour between start and end must not change the result
	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleMove(sampleAt(20, pt(500, 900)))
	tracker.HandleMove(sampleAt(40, pt(-200, 0)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))

	if len(events) != 1 {
		t.Fatalf("expected 1 swipe, got %d", len(events))
	}
	if events[0].Direction != SwipeRight || events[0].Distance != 60 {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestSwipeAngleFlipIsMonotone(t *testing.T) {
	accepted := func(dy float64) bool {
		fired := false
		tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
			OnSwipe: func(SwipeEvent) { fired = true },
		})
		tracker.HandleStart(sampleAt(0, pt(0, 0)))
		tracker.HandleEnd(sampleAt(100, pt(100, dy)))
		return fired
	}

	// for a fixed horizontal delta, growing the vertical delta must flip
	// the outcome from accept to reject exactly once
	rejectedAt := -1.0
	for dy := 0.0; dy <= 120; dy += 5 {
		if accepted(dy) {
			if rejectedAt >= 0 {
				t.Fatalf("dy=%v accepted after dy=%v was rejected", dy, rejectedAt)
			}
		} else if rejectedAt < 0 {
			rejectedAt = dy
		}
	}

	// tan(30 degrees) * 100 is about 57.7, so the flip lands here
	if rejectedAt != 60 {
		t.Fatalf("first rejection at dy=%v, want 60", rejectedAt)
	}
}

func TestSwipeEndWithoutStart(t *testing.T) {
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(SwipeEvent) { t.Fatal("unexpected swipe") },
	})
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	tracker.HandleMove(sampleAt(50, pt(120, 200)))
}

func TestSwipeEmptyContacts(t *testing.T) {
	fired := 0
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(SwipeEvent) { fired++ },
	})

	// start without contacts opens no session
	tracker.HandleStart(sampleAt(0))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	if fired != 0 {
		t.Fatalf("expected no swipe after contactless start, got %d", fired)
	}

	// end without contacts consumes the session silently
	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(100))
	if fired != 0 {
		t.Fatalf("expected no swipe after contactless end, got %d", fired)
	}

	// and the consumed session cannot complete later
	tracker.HandleEnd(sampleAt(200, pt(300, 200)))
	if fired != 0 {
		t.Fatalf("expected no swipe after discarded session, got %d", fired)
	}
}

func TestSwipeRestartReplacesSession(t *testing.T) {
	var events []SwipeEvent
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(ev SwipeEvent) { events = append(events, ev) },
	})

	tracker.HandleStart(sampleAt(0, pt(0, 0)))
	tracker.HandleStart(sampleAt(50, pt(100, 200)))
	tracker.HandleEnd(sampleAt(150, pt(160, 200)))

	if len(events) != 1 {
		t.Fatalf("expected 1 swipe, got %d", len(events))
	}
	if events[0].Distance != 60 {
		t.Errorf("distance = %v, want 60 (measured from the second start)", events[0].Distance)
	}
}

func TestSwipeSessionConsumedByEnd(t *testing.T) {
	fired := 0
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(SwipeEvent) { fired++ },
	})

	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	tracker.HandleEnd(sampleAt(200, pt(260, 200)))

	if fired != 1 {
		t.Fatalf("expected exactly 1 swipe, got %d", fired)
	}
}

func TestSwipeZeroElapsedVelocity(t *testing.T) {
	var got *SwipeEvent
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(ev SwipeEvent) { got = &ev },
	})

	// identical timestamps must not divide by zero; the elapsed time is
	// clamped to one millisecond
	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(0, pt(180, 200)))

	if got == nil {
		t.Fatal("expected a swipe")
	}
	if math.IsInf(got.Velocity, 0) || math.IsNaN(got.Velocity) {
		t.Fatalf("velocity = %v, want finite", got.Velocity)
	}
	if got.Velocity != 80 {
		t.Errorf("velocity = %v, want 80 (80px over the 1ms floor)", got.Velocity)
	}
}

func TestSwipeDirectionSpecificCallbacks(t *testing.T) {
	var order []string
	resolver := NewDirectionResolver()
	tracker := NewSwipeTracker(resolver, SwipeConfig{
		OnSwipe:      func(SwipeEvent) { order = append(order, "any") },
		OnSwipeLeft:  func(SwipeEvent) { order = append(order, "left") },
		OnSwipeRight: func(SwipeEvent) { order = append(order, "right") },
	})

	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	if len(order) != 2 || order[0] != "any" || order[1] != "right" {
		t.Fatalf("ltr order = %v, want [any right]", order)
	}

	// under rtl the same physical motion reports as left
	order = nil
	resolver.SetDirection(DirectionRTL)
	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	if len(order) != 2 || order[0] != "any" || order[1] != "left" {
		t.Fatalf("rtl order = %v, want [any left]", order)
	}
}

func TestSwipeNilResolver(t *testing.T) {
	var got *SwipeEvent
	tracker := NewSwipeTracker(nil, SwipeConfig{
		OnSwipe: func(ev SwipeEvent) { got = &ev },
	})
	tracker.HandleStart(sampleAt(0, pt(100, 200)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200)))
	if got == nil || got.Direction != SwipeRight {
		t.Fatalf("expected a rightward swipe, got %+v", got)
	}
}

func TestSwipeMultiTouchUsesFirstContact(t *testing.T) {
	var got *SwipeEvent
	tracker := NewSwipeTracker(NewDirectionResolver(), SwipeConfig{
		OnSwipe: func(ev SwipeEvent) { got = &ev },
	})
	tracker.HandleStart(sampleAt(0, pt(100, 200), pt(400, 400)))
	tracker.HandleEnd(sampleAt(100, pt(160, 200), pt(0, 0)))
	if got == nil {
		t.Fatal("expected a swipe")
	}
	if got.Distance != 60 || got.Direction != SwipeRight {
		t.Errorf("unexpected event %+v", *got)
	}
}

func TestSwipeDirectionMirror(t *testing.T) {
	tests := []struct {
		in   SwipeDirection
		want SwipeDirection
	}{
		{SwipeLeft, SwipeRight},
		{SwipeRight, SwipeLeft},
		{SwipeNone, SwipeNone},
	}
	for _, tt := range tests {
		if got := tt.in.Mirror(); got != tt.want {
			t.Errorf("Mirror(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
