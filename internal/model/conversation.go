package model

import (
	"time"
)

// ConversationType discriminates direct and group conversations.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// DirectMessage holds the peer of a 1:1 conversation.
type DirectMessage struct {
	OtherParticipantID     string `json:"otherParticipantId"`
	OtherParticipantName   string `json:"otherParticipantName"`
	OtherParticipantAvatar string `json:"otherParticipantAvatar,omitempty"`
	OtherParticipantStatus string `json:"otherParticipantStatus,omitempty"`
}

// GroupChat holds group conversation metadata.
type GroupChat struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	MemberCount int    `json:"memberCount"`
}

// LastMessage is the denormalized summary shown on a conversation list entry.
type LastMessage struct {
	MessageID  string      `json:"messageId"`
	Content    string      `json:"content"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       MessageType `json:"type"`
}

// Conversation represents a direct or group chat thread.
type Conversation struct {
	ConversationID   string           `json:"conversationId"`
	ConversationType ConversationType `json:"conversationType"`
	DirectMessage    *DirectMessage   `json:"directMessage,omitempty"`
	GroupChat        *GroupChat       `json:"groupChat,omitempty"`
	LastMessage      *LastMessage     `json:"lastMessage,omitempty"`
	UnreadCount      int              `json:"unreadCount"`
	LastReadAt       *time.Time       `json:"lastReadAt,omitempty"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Title returns the display name for a conversation.
func (c *Conversation) Title() string {
	if c.ConversationType == ConversationDirect && c.DirectMessage != nil {
		return c.DirectMessage.OtherParticipantName
	}
	if c.GroupChat != nil {
		return c.GroupChat.Name
	}
	return c.ConversationID
}
