// Package chat implements the client-side chat state: the message store,
// pagination, typing and presence tracking, the composer, and the session
// that owns them for the active conversation.
package chat

import (
	"sync"
	"time"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

// Store is the in-memory ordered message collection for the active
// conversation. Messages are kept in chronological order (timestamp
// ascending, arrival order breaking ties) and every insert is idempotent by
// id, which keeps the two producers (the pagination loader and the socket
// event handler) safe under interleaving.
type Store struct {
	mu   sync.RWMutex
	msgs []model.Message
	ids  map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Len returns the number of messages held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Messages returns a copy of the messages in visible order.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// ByID looks a message up by id, e.g. to scroll to a reply target.
func (s *Store) ByID(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// IndexOf returns the position of a message, or -1. Embedding views use this
// to re-anchor the viewport after a prepend.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, m := range s.msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Replace swaps the entire contents for a fresh chronological page,
// deduplicating by id while preserving the given order.
func (s *Store) Replace(msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = s.msgs[:0]
	s.ids = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := s.ids[m.ID]; dup {
			continue
		}
		s.msgs = append(s.msgs, m)
		s.ids[m.ID] = struct{}{}
	}
	metrics.StoreSize.Set(float64(len(s.msgs)))
}

// Prepend inserts an older chronological page at the front, skipping ids
// already present. Returns the number of messages actually inserted so the
// caller can restore its scroll anchor.
func (s *Store) Prepend(msgs []model.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := s.ids[m.ID]; dup {
			continue
		}
		fresh = append(fresh, m)
		s.ids[m.ID] = struct{}{}
	}
	if len(fresh) == 0 {
		return 0
	}
	s.msgs = append(fresh, s.msgs...)
	metrics.StoreSize.Set(float64(len(s.msgs)))
	return len(fresh)
}

// Append inserts a live message, keeping timestamp order. If the id is
// already present (REST and socket can race) the insert is a no-op. Returns
// whether the message was added.
func (s *Store) Append(m model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[m.ID]; dup {
		return false
	}

	// Live events normally land at the tail; walk back only past strictly
	// newer entries so equal timestamps keep arrival order.
	i := len(s.msgs)
	for i > 0 && s.msgs[i-1].Timestamp.After(m.Timestamp) {
		i--
	}
	s.msgs = append(s.msgs, model.Message{})
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = m
	s.ids[m.ID] = struct{}{}
	metrics.StoreSize.Set(float64(len(s.msgs)))
	return true
}

// FirstUnreadIndex returns the position of the first message newer than the
// read watermark, or -1 when everything is read. Views place the unread
// divider there.
func (s *Store) FirstUnreadIndex(lastReadAt time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, m := range s.msgs {
		if m.Timestamp.After(lastReadAt) {
			return i
		}
	}
	return -1
}
