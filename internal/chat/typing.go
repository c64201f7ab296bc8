package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

const (
	// DefaultTypingExpiry removes a remote typist who went silent without a
	// stop signal, treating a dead client as "stopped typing".
	DefaultTypingExpiry = 10 * time.Second
	// DefaultTypingIdle is how long after the last local keystroke the stop
	// signal is broadcast.
	DefaultTypingIdle = 5 * time.Second
)

// TypingTracker maintains the set of remote users currently typing in the
// active conversation. Every entry owns exactly one expiry timer; starting a
// new one cancels the prior, and removal, whether by stop event or by expiry,
// is idempotent.
type TypingTracker struct {
	selfID   string
	expiry   time.Duration
	onChange func(active []string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// TypingOption configures a TypingTracker.
type TypingOption func(*TypingTracker)

// WithTypingExpiry overrides the remote expiry duration.
func WithTypingExpiry(d time.Duration) TypingOption {
	return func(t *TypingTracker) { t.expiry = d }
}

// WithTypingChange registers a callback fired with the active set on every
// change.
func WithTypingChange(fn func(active []string)) TypingOption {
	return func(t *TypingTracker) { t.onChange = fn }
}

// NewTypingTracker creates a tracker that ignores events for selfID.
func NewTypingTracker(selfID string, opts ...TypingOption) *TypingTracker {
	t := &TypingTracker{
		selfID: selfID,
		expiry: DefaultTypingExpiry,
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HandleRemote applies a remote typing event. Events for the local user are
// ignored.
func (t *TypingTracker) HandleRemote(ev model.TypingEvent) {
	if ev.UserID == t.selfID || ev.Username == "" {
		return
	}
	metrics.TypingEventsTotal.WithLabelValues("inbound", typingStatus(ev.Stopped)).Inc()

	if ev.Stopped {
		t.remove(ev.Username)
		return
	}

	t.mu.Lock()
	if timer, ok := t.timers[ev.Username]; ok {
		timer.Stop()
	}
	username := ev.Username
	t.timers[username] = time.AfterFunc(t.expiry, func() {
		t.remove(username)
	})
	active := t.activeLocked()
	t.mu.Unlock()

	t.notify(active)
}

// Active returns the usernames currently typing, sorted for stable display.
func (t *TypingTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked()
}

// Clear cancels all timers and empties the set. Called on conversation
// switch so no timer from the previous conversation leaks.
func (t *TypingTracker) Clear() {
	t.mu.Lock()
	for name, timer := range t.timers {
		timer.Stop()
		delete(t.timers, name)
	}
	t.mu.Unlock()
	t.notify(nil)
}

func (t *TypingTracker) remove(username string) {
	t.mu.Lock()
	timer, ok := t.timers[username]
	if !ok {
		t.mu.Unlock()
		return
	}
	timer.Stop()
	delete(t.timers, username)
	active := t.activeLocked()
	t.mu.Unlock()

	t.notify(active)
}

func (t *TypingTracker) activeLocked() []string {
	out := make([]string, 0, len(t.timers))
	for name := range t.timers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t *TypingTracker) notify(active []string) {
	if t.onChange != nil {
		t.onChange(active)
	}
}

func typingStatus(stopped bool) string {
	if stopped {
		return "stop"
	}
	return "start"
}

// LocalTyping debounces the local user's outbound typing broadcasts: the
// first keystroke emits start immediately, and stop follows a fixed idle
// period after the last keystroke. Each keystroke resets the idle timer.
type LocalTyping struct {
	idle time.Duration
	emit func(stopped bool)

	mu     sync.Mutex
	typing bool
	timer  *time.Timer
}

// NewLocalTyping creates a debouncer. emit is called with stopped=false on
// the first keystroke of a burst and stopped=true when the burst ends.
func NewLocalTyping(idle time.Duration, emit func(stopped bool)) *LocalTyping {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &LocalTyping{idle: idle, emit: emit}
}

// Keystroke records local input activity.
func (l *LocalTyping) Keystroke() {
	l.mu.Lock()
	if !l.typing {
		l.typing = true
		l.mu.Unlock()
		metrics.TypingEventsTotal.WithLabelValues("outbound", "start").Inc()
		l.emit(false)
		l.mu.Lock()
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.idle, l.stopNow)
	l.mu.Unlock()
}

// StopNow emits the stop signal immediately if a burst is active.
func (l *LocalTyping) StopNow() {
	l.stopNow()
}

func (l *LocalTyping) stopNow() {
	l.mu.Lock()
	if !l.typing {
		l.mu.Unlock()
		return
	}
	l.typing = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()

	metrics.TypingEventsTotal.WithLabelValues("outbound", "stop").Inc()
	l.emit(true)
}

// Cancel tears the debouncer down without emitting anything.
func (l *LocalTyping) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.typing = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
