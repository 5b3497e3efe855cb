package gestures

import (
	"strings"
	"sync"
)

// Explicit direction indicator values understood by DirectionResolver.
const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
)

// defaultRTLLanguages are the language-code prefixes resolved as
// right-to-left when no explicit "rtl" indicator is set. "iw" is the
// legacy code for Hebrew still reported by some hosts.
var defaultRTLLanguages = []string{"ar", "he", "fa", "ur", "iw"}

// DirectionResolver tracks the host's writing direction. The host
// pushes indicator updates through SetDirection and SetLanguage; IsRTL
// answers from a value recomputed on every update, and subscribers are
// notified whenever an indicator changes so dependent state can be
// refreshed.
//
// Resolution order: an explicit "rtl" indicator wins, otherwise the
// language code is matched case-insensitively against the RTL prefix
// set, otherwise the direction is left-to-right.
type DirectionResolver struct {
	mu        sync.Mutex
	direction string
	language  string
	rtlLangs  []string
	rtl       bool
	subs      map[int]func()
	nextSub   int
}

// NewDirectionResolver returns a resolver in the default left-to-right
// state with the default RTL language set.
func NewDirectionResolver() *DirectionResolver {
	return &DirectionResolver{
		rtlLangs: append([]string(nil), defaultRTLLanguages...),
		subs:     make(map[int]func()),
	}
}

// IsRTL reports whether the resolved direction is right-to-left.
func (r *DirectionResolver) IsRTL() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rtl
}

// Direction returns the explicit indicator last set, or "" if none.
func (r *DirectionResolver) Direction() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.direction
}

// Language returns the language code last set, or "" if none.
func (r *DirectionResolver) Language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

// SetDirection updates the explicit direction indicator ("ltr", "rtl"
// or "" to clear it) and notifies subscribers if it changed.
func (r *DirectionResolver) SetDirection(direction string) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	r.mu.Lock()
	if r.direction == direction {
		r.mu.Unlock()
		return
	}
	r.direction = direction
	r.recomputeLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// SetLanguage updates the active language code (e.g. "ar-SA") and
// notifies subscribers if it changed.
func (r *DirectionResolver) SetLanguage(language string) {
	language = strings.TrimSpace(language)
	r.mu.Lock()
	if r.language == language {
		r.mu.Unlock()
		return
	}
	r.language = language
	r.recomputeLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// SetRTLLanguages replaces the RTL language prefix set. Passing no
// prefixes restores the default set.
func (r *DirectionResolver) SetRTLLanguages(prefixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(prefixes) == 0 {
		r.rtlLangs = append([]string(nil), defaultRTLLanguages...)
	} else {
		r.rtlLangs = append([]string(nil), prefixes...)
	}
	r.recomputeLocked()
}

// Subscribe registers fn to run after every indicator change. The
// returned function removes the subscription; calling it more than
// once is harmless.
func (r *DirectionResolver) Subscribe(fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *DirectionResolver) recomputeLocked() {
	if r.direction == DirectionRTL {
		r.rtl = true
		return
	}
	lang := strings.ToLower(r.language)
	for _, prefix := range r.rtlLangs {
		if prefix != "" && strings.HasPrefix(lang, strings.ToLower(prefix)) {
			r.rtl = true
			return
		}
	}
	r.rtl = false
}

// subscribersLocked snapshots the callbacks so they can run outside
// the resolver lock.
func (r *DirectionResolver) subscribersLocked() []func() {
	if len(r.subs) == 0 {
		return nil
	}
	subs := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}
