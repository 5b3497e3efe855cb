package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/gestures"
	"github.com/gesturekit/gesturekit/types"
)

// setTestEngine installs a fresh engine for the command layer and
// removes it again when the test finishes.
func setTestEngine(t *testing.T, opts EngineOptions) *Engine {
	t.Helper()
	engine := NewEngine(opts)
	SetEngine(engine)
	t.Cleanup(func() {
		engine.CloseAll()
		SetEngine(nil)
	})
	return engine
}

func touchContacts(x, y float64) []types.TouchPoint {
	return []types.TouchPoint{{X: x, Y: y}}
}

func TestEngineCreateAndLookup(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	session, err := engine.CreateSession("host-1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if session.ID != "host-1" {
		t.Errorf("session ID = %q, want host-1", session.ID)
	}

	if _, ok := engine.Session("host-1"); !ok {
		t.Error("expected to find session host-1")
	}
	if _, ok := engine.Session("missing"); ok {
		t.Error("found a session that was never created")
	}

	if _, err := engine.CreateSession("host-1", nil); err == nil {
		t.Error("expected duplicate session ID to be rejected")
	}
}

func TestEngineGeneratesSessionIDs(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	first, err := engine.CreateSession("", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	second, err := engine.CreateSession("", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	if first.ID == "" || second.ID == "" {
		t.Fatal("expected generated session IDs")
	}
	if first.ID == second.ID {
		t.Fatalf("generated IDs collide: %s", first.ID)
	}
}

func TestEngineRejectsInvalidTuning(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	bad := -1.0
	_, err := engine.CreateSession("", &config.Tuning{SwipeMinDistance: &bad})
	if err == nil {
		t.Error("expected invalid tuning to be rejected")
	}
}

func TestEngineEvictionClosesSession(t *testing.T) {
	clock := gestures.NewMockClock(time.Unix(0, 0))
	engine := setTestEngine(t, EngineOptions{MaxSessions: 2, Clock: clock})

	oldest, err := engine.CreateSession("s1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	// leave a long-press pending in the session about to be evicted
	oldest.TouchStart(0, touchContacts(50, 50))

	if _, err := engine.CreateSession("s2", nil); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if _, err := engine.CreateSession("s3", nil); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	if _, ok := engine.Session("s1"); ok {
		t.Fatal("expected s1 to have been evicted")
	}
	if len(engine.Sessions()) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(engine.Sessions()))
	}

	// the evicted session was torn down, so its timer must not deliver
	clock.Advance(time.Second)
	if events := oldest.Drain(0); len(events) != 0 {
		t.Fatalf("evicted session delivered events: %+v", events)
	}
}

func TestEngineCloseAll(t *testing.T) {
	clock := gestures.NewMockClock(time.Unix(0, 0))
	engine := setTestEngine(t, EngineOptions{Clock: clock})

	session, err := engine.CreateSession("s1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	session.TouchStart(0, touchContacts(50, 50))

	engine.CloseAll()
	if len(engine.Sessions()) != 0 {
		t.Fatal("expected no sessions after CloseAll")
	}

	clock.Advance(time.Second)
	if events := session.Drain(0); len(events) != 0 {
		t.Fatalf("closed session delivered events: %+v", events)
	}
}

func TestFindSessionOrAutoSelect(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	if _, err := FindSessionOrAutoSelect(""); err == nil {
		t.Error("expected an error with no sessions")
	}

	if _, err := engine.CreateSession("only", nil); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	session, err := FindSessionOrAutoSelect("")
	if err != nil {
		t.Fatalf("FindSessionOrAutoSelect() error: %v", err)
	}
	if session.ID != "only" {
		t.Errorf("auto-selected %q, want only", session.ID)
	}

	if _, err := engine.CreateSession("second", nil); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	_, err = FindSessionOrAutoSelect("")
	if err == nil {
		t.Fatal("expected an error with multiple sessions")
	}
	if !strings.Contains(err.Error(), "only") || !strings.Contains(err.Error(), "second") {
		t.Errorf("error %q does not list the session IDs", err)
	}

	session, err = FindSessionOrAutoSelect("second")
	if err != nil {
		t.Fatalf("FindSessionOrAutoSelect(second) error: %v", err)
	}
	if session.ID != "second" {
		t.Errorf("found %q, want second", session.ID)
	}
}

func TestTouchCommandsRecognizeSwipe(t *testing.T) {
	setTestEngine(t, EngineOptions{})

	resp := SessionCreateCommand(SessionCreateRequest{SessionID: "host"})
	if resp.Status != "ok" {
		t.Fatalf("session_create failed: %s", resp.Error)
	}

	resp = TouchStartCommand(types.TouchEventParams{
		SessionID: "host", TimestampMs: 0, Contacts: touchContacts(100, 200),
	})
	if resp.Status != "ok" {
		t.Fatalf("touch_start failed: %s", resp.Error)
	}
	resp = TouchEndCommand(types.TouchEventParams{
		SessionID: "host", TimestampMs: 100, Contacts: touchContacts(160, 200),
	})
	if resp.Status != "ok" {
		t.Fatalf("touch_end failed: %s", resp.Error)
	}

	resp = EventsPollCommand(EventsPollRequest{SessionID: "host"})
	if resp.Status != "ok" {
		t.Fatalf("events_poll failed: %s", resp.Error)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected poll data type %T", resp.Data)
	}
	events, ok := data["events"].([]GestureEvent)
	if !ok {
		t.Fatalf("unexpected events type %T", data["events"])
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != KindSwipe || ev.Swipe == nil {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Swipe.Direction != gestures.SwipeRight {
		t.Errorf("direction = %q, want right", ev.Swipe.Direction)
	}
	if ev.Swipe.Distance != 60 || ev.Swipe.Flick {
		t.Errorf("unexpected swipe %+v", *ev.Swipe)
	}

	// the queue was drained
	resp = EventsPollCommand(EventsPollRequest{SessionID: "host"})
	data = resp.Data.(map[string]interface{})
	if events := data["events"].([]GestureEvent); len(events) != 0 {
		t.Fatalf("expected an empty queue, got %d events", len(events))
	}
}

func TestTouchCommandValidation(t *testing.T) {
	setTestEngine(t, EngineOptions{})

	resp := TouchStartCommand(types.TouchEventParams{TimestampMs: -5})
	if resp.Status != "error" || !strings.Contains(resp.Error, "timestampMs") {
		t.Errorf("expected a timestamp error, got %+v", resp)
	}

	resp = TouchStartCommand(types.TouchEventParams{SessionID: "ghost", Contacts: touchContacts(1, 1)})
	if resp.Status != "error" || !strings.Contains(resp.Error, "not found") {
		t.Errorf("expected a session-not-found error, got %+v", resp)
	}
}

func TestSessionStateCommand(t *testing.T) {
	clock := gestures.NewMockClock(time.Unix(0, 0))
	setTestEngine(t, EngineOptions{Clock: clock})

	SessionCreateCommand(SessionCreateRequest{SessionID: "host"})
	TouchStartCommand(types.TouchEventParams{SessionID: "host", Contacts: touchContacts(50, 50)})

	resp := SessionStateCommand(SessionStateRequest{SessionID: "host"})
	if resp.Status != "ok" {
		t.Fatalf("session_state failed: %s", resp.Error)
	}
	info, ok := resp.Data.(SessionInfo)
	if !ok {
		t.Fatalf("unexpected state data type %T", resp.Data)
	}
	if !info.Pressed {
		t.Error("expected pressed state while the press is pending")
	}
	if info.RTL {
		t.Error("expected ltr by default")
	}

	clock.Advance(time.Second)
	info = SessionStateCommand(SessionStateRequest{SessionID: "host"}).Data.(SessionInfo)
	if info.Pressed {
		t.Error("expected pressed state cleared after the trigger fired")
	}
	if info.QueuedEvents != 1 {
		t.Errorf("queuedEvents = %d, want 1 (the long-press)", info.QueuedEvents)
	}
}

func TestDirectionSetCommand(t *testing.T) {
	setTestEngine(t, EngineOptions{})
	SessionCreateCommand(SessionCreateRequest{SessionID: "host"})

	resp := DirectionSetCommand(types.DirectionParams{SessionID: "host", Direction: "sideways"})
	if resp.Status != "error" {
		t.Fatal("expected an unknown direction to be rejected")
	}

	resp = DirectionSetCommand(types.DirectionParams{SessionID: "host", Direction: "rtl"})
	if resp.Status != "ok" {
		t.Fatalf("direction_set failed: %s", resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	if rtl, _ := data["rtl"].(bool); !rtl {
		t.Error("expected rtl=true after setting the indicator")
	}

	// the change was also queued as a direction event
	poll := EventsPollCommand(EventsPollRequest{SessionID: "host"})
	events := poll.Data.(map[string]interface{})["events"].([]GestureEvent)
	if len(events) != 1 || events[0].Kind != KindDirection {
		t.Fatalf("expected 1 direction event, got %+v", events)
	}
	if events[0].RTL == nil || !*events[0].RTL {
		t.Error("direction event missing rtl=true")
	}

	// language-only updates work too
	resp = DirectionSetCommand(types.DirectionParams{SessionID: "host", Language: "en-US", ClearDirection: true})
	if resp.Status != "ok" {
		t.Fatalf("direction_set failed: %s", resp.Error)
	}
	if rtl, _ := resp.Data.(map[string]interface{})["rtl"].(bool); rtl {
		t.Error("expected ltr after clearing the indicator")
	}
}

func TestSessionCloseCommand(t *testing.T) {
	setTestEngine(t, EngineOptions{})
	SessionCreateCommand(SessionCreateRequest{SessionID: "host"})

	resp := SessionCloseCommand(SessionCloseRequest{SessionID: "host"})
	if resp.Status != "ok" {
		t.Fatalf("session_close failed: %s", resp.Error)
	}
	resp = SessionCloseCommand(SessionCloseRequest{SessionID: "host"})
	if resp.Status != "error" {
		t.Error("expected closing a closed session to fail")
	}
	if resp := SessionCloseCommand(SessionCloseRequest{}); resp.Status != "error" {
		t.Error("expected a missing session ID to fail")
	}
}

func TestSessionsCommand(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	resp := SessionsCommand()
	if resp.Status != "ok" {
		t.Fatalf("sessions failed: %s", resp.Error)
	}
	if infos := resp.Data.([]SessionInfo); len(infos) != 0 {
		t.Fatalf("expected no sessions, got %d", len(infos))
	}

	engine.CreateSession("a", nil)
	engine.CreateSession("b", nil)
	infos := SessionsCommand().Data.([]SessionInfo)
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].ID != "a" || infos[1].ID != "b" {
		t.Errorf("unexpected order %v", []string{infos[0].ID, infos[1].ID})
	}
}

func TestSessionQueueIsBounded(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})

	session, err := engine.CreateSession("host", nil)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	// generate more swipes than the queue holds
	for i := 0; i < maxQueuedEvents+10; i++ {
		ts := float64(i * 200)
		session.TouchStart(ts, touchContacts(100, 200))
		session.TouchEnd(ts+100, touchContacts(200, 200))
	}

	info := session.Info()
	if info.QueuedEvents != maxQueuedEvents {
		t.Errorf("queuedEvents = %d, want %d", info.QueuedEvents, maxQueuedEvents)
	}
	if info.DroppedEvents != 10 {
		t.Errorf("droppedEvents = %d, want 10", info.DroppedEvents)
	}

	if events := session.Drain(0); len(events) != maxQueuedEvents {
		t.Errorf("drained %d events, want %d", len(events), maxQueuedEvents)
	}
}

func TestSessionDrainLimit(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})
	session, _ := engine.CreateSession("host", nil)

	for i := 0; i < 5; i++ {
		ts := float64(i * 200)
		session.TouchStart(ts, touchContacts(100, 200))
		session.TouchEnd(ts+100, touchContacts(200, 200))
	}

	if got := session.Drain(2); len(got) != 2 {
		t.Fatalf("Drain(2) returned %d events", len(got))
	}
	if got := session.Drain(0); len(got) != 3 {
		t.Fatalf("Drain(0) returned %d events, want the remaining 3", len(got))
	}
}

func TestSessionNotifySkipsQueue(t *testing.T) {
	engine := setTestEngine(t, EngineOptions{})
	session, _ := engine.CreateSession("host", nil)

	var pushed []GestureEvent
	session.SetNotify(func(ev GestureEvent) { pushed = append(pushed, ev) })

	session.TouchStart(0, touchContacts(100, 200))
	session.TouchEnd(100, touchContacts(200, 200))

	if len(pushed) != 1 || pushed[0].Kind != KindSwipe {
		t.Fatalf("pushed = %+v, want 1 swipe", pushed)
	}
	if events := session.Drain(0); len(events) != 0 {
		t.Fatalf("queue should stay empty while a sink is attached, got %d", len(events))
	}

	// detaching the sink restores queueing
	session.SetNotify(nil)
	session.TouchStart(1000, touchContacts(100, 200))
	session.TouchEnd(1100, touchContacts(200, 200))
	if events := session.Drain(0); len(events) != 1 {
		t.Fatalf("expected 1 queued event after detach, got %d", len(events))
	}
}
