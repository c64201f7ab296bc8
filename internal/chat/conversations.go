package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
)

// ConversationList is the sidebar state: the user's conversations with
// denormalized last-message summaries and unread counts. A live message for
// any conversation, active or not, rewrites that entry in place and bumps
// it to the front.
type ConversationList struct {
	rest *rest.Client

	userID         string
	organizationID string
	locationID     string

	mu       sync.Mutex
	items    []model.Conversation
	total    int
	activeID string
}

// NewConversationList creates an empty list for a user in an org/location
// context.
func NewConversationList(rc *rest.Client, userID, organizationID, locationID string) *ConversationList {
	return &ConversationList{
		rest:           rc,
		userID:         userID,
		organizationID: organizationID,
		locationID:     locationID,
	}
}

// Load fetches a page of conversations, appending beyond page one.
func (l *ConversationList) Load(ctx context.Context, page int, search string) (hasMore bool, err error) {
	res, err := l.rest.GetConversations(ctx, l.userID, l.organizationID, l.locationID, page, search)
	if err != nil {
		return false, fmt.Errorf("load conversations: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if page <= 1 {
		l.items = res.Results
	} else {
		l.items = append(l.items, res.Results...)
	}
	l.total = res.Count
	return res.Next != nil, nil
}

// Items returns a copy of the list in display order.
func (l *ConversationList) Items() []model.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Conversation, len(l.items))
	copy(out, l.items)
	return out
}

// Total returns the server-reported conversation count.
func (l *ConversationList) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Get looks up a conversation by id.
func (l *ConversationList) Get(conversationID string) (model.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.items {
		if c.ConversationID == conversationID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// SetActive marks a conversation as the one on screen and clears its unread
// count.
func (l *ConversationList) SetActive(conversationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeID = conversationID
	for i := range l.items {
		if l.items[i].ConversationID == conversationID {
			l.items[i].UnreadCount = 0
			return
		}
	}
}

// ApplyLive folds a live message into the list: the entry's last-message
// summary and updated-at are rewritten, the entry moves to the front, and
// the unread count grows unless the conversation is the active one.
func (l *ConversationList) ApplyLive(conversationID string, msg model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.items {
		if l.items[i].ConversationID == conversationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	entry := l.items[idx]
	entry.LastMessage = &model.LastMessage{
		MessageID:  msg.ID,
		Content:    msg.Content,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  msg.Timestamp,
		Type:       msg.Type,
	}
	entry.UpdatedAt = msg.Timestamp
	if conversationID != l.activeID {
		entry.UnreadCount++
	}

	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.items = append([]model.Conversation{entry}, l.items...)
}
