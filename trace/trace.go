// Package trace reads and writes touch traces: JSON Lines files where
// each line is one input event. Traces captured from a live host can
// be replayed deterministically against the recognizers.
//
// Example trace:
//
//	{"kind":"start","timestampMs":0,"contacts":[{"x":100,"y":200}]}
//	{"kind":"move","timestampMs":50,"contacts":[{"x":130,"y":200}]}
//	{"kind":"end","timestampMs":100,"contacts":[{"x":160,"y":200}]}
//	{"kind":"wait","durationMs":600}
//
// Blank lines and lines starting with '#' are ignored.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gesturekit/gesturekit/types"
)

// Event kinds understood by trace files.
const (
	KindStart     = "start"     // contact down
	KindMove      = "move"      // contact moved
	KindEnd       = "end"       // contact up
	KindDirection = "direction" // explicit direction indicator change
	KindLanguage  = "language"  // language change
	KindWait      = "wait"      // let virtual time pass with no input
)

// Event is one line of a touch trace.
type Event struct {
	Kind string `json:"kind"`

	// TimestampMs and Contacts apply to start/move/end events.
	TimestampMs float64            `json:"timestampMs,omitempty"`
	Contacts    []types.TouchPoint `json:"contacts,omitempty"`

	// Direction applies to direction events, Language to language
	// events.
	Direction string `json:"direction,omitempty"`
	Language  string `json:"language,omitempty"`

	// DurationMs applies to wait events.
	DurationMs float64 `json:"durationMs,omitempty"`
}

// Validate rejects events a replay could not execute.
func (e *Event) Validate() error {
	switch e.Kind {
	case KindStart, KindMove, KindEnd:
		if e.TimestampMs < 0 {
			return fmt.Errorf("%s event has negative timestampMs %v", e.Kind, e.TimestampMs)
		}
	case KindDirection:
		switch e.Direction {
		case "", "ltr", "rtl":
		default:
			return fmt.Errorf("direction event has unknown direction %q", e.Direction)
		}
	case KindLanguage:
	case KindWait:
		if e.DurationMs <= 0 {
			return fmt.Errorf("wait event needs a positive durationMs, got %v", e.DurationMs)
		}
	case "":
		return fmt.Errorf("event is missing a kind")
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// Reader decodes trace events from JSON Lines input.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next event, or io.EOF after the last one. Events
// are validated as they are read; a malformed line fails with its line
// number.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %v", r.line, err)
		}
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %v", r.line, err)
		}
		return &ev, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll drains the reader into a slice.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
}

// ReadFile loads a whole trace file.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()
	events, err := NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file %s: %w", path, err)
	}
	return events, nil
}

// Writer appends trace events as JSON Lines. It is safe for
// concurrent use so live recording can write from multiple handler
// goroutines.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewWriter returns a Writer appending to w.
func NewWriter(w io.Writer) *Writer {
	writer := &Writer{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		writer.c = c
	}
	return writer
}

// CreateFile opens (truncating) a trace file for recording.
func CreateFile(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	return NewWriter(f), nil
}

// Write appends one event.
func (w *Writer) Write(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(&ev)
}

// Close closes the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}
