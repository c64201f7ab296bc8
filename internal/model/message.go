// Package model defines data structures for the chat client.
package model

import (
	"time"
)

// MessageType discriminates message payloads.
type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeFile    MessageType = "file"
	MessageTypeConsult MessageType = "consult"
	MessageTypeSystem  MessageType = "system"
)

// Media describes a single attachment carried by a message.
type Media struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Message represents a chat message. IDs are server-assigned and unique
// within a conversation. ReplyTo is inlined by the server, not a reference.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	Content        string      `json:"content"`
	Type           MessageType `json:"messageType"`
	Timestamp      time.Time   `json:"timestamp"`
	FileURL        string      `json:"fileUrl,omitempty"`
	Media          *Media      `json:"media,omitempty"`
	ReplyTo        *Message    `json:"replyTo,omitempty"`
}
