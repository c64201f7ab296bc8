package chat

import (
	"sync"
	"time"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
)

// PresenceTracker holds the other participant's online state for a direct
// conversation. Presence is not tracked for groups, and the state is fully
// reset on conversation switch.
type PresenceTracker struct {
	selfID   string
	onChange func(status model.PresenceStatus, lastSeen *time.Time)

	mu       sync.Mutex
	status   model.PresenceStatus
	lastSeen *time.Time
}

// NewPresenceTracker creates a tracker that ignores events for selfID.
func NewPresenceTracker(selfID string, onChange func(model.PresenceStatus, *time.Time)) *PresenceTracker {
	return &PresenceTracker{
		selfID:   selfID,
		onChange: onChange,
		status:   model.PresenceUnknown,
	}
}

// Handle applies a presence event from the conversation socket.
func (p *PresenceTracker) Handle(ev model.PresenceEvent) {
	if ev.UserID == p.selfID {
		return
	}

	p.mu.Lock()
	p.status = ev.Status
	switch {
	case ev.Status == model.PresenceOnline:
		// Online clears any stored last-seen.
		p.lastSeen = nil
	case ev.Status == model.PresenceOffline && ev.LastSeen != nil:
		p.lastSeen = ev.LastSeen
	}
	status, lastSeen := p.status, p.lastSeen
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(status, lastSeen)
	}
}

// Status returns the current presence state and last-seen timestamp.
func (p *PresenceTracker) Status() (model.PresenceStatus, *time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.lastSeen
}

// Reset clears state when the active conversation changes.
func (p *PresenceTracker) Reset() {
	p.mu.Lock()
	p.status = model.PresenceUnknown
	p.lastSeen = nil
	p.mu.Unlock()
}
