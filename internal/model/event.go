package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType tags inbound socket frames.
type EventType string

const (
	EventWelcome         EventType = "welcome_message"
	EventMessageEcho     EventType = "chat_message_echo"
	EventHistorySnapshot EventType = "last_50_messages"
	EventTyping          EventType = "typing"
	EventPresence        EventType = "presence"
	EventReadAck         EventType = "read_messages_ack"

	// Notification channel events.
	EventUnreadCount     EventType = "unread_count"
	EventNewNotification EventType = "new_message_notification"
	EventUserStatus      EventType = "user_status"
	EventPong            EventType = "pong"
)

// PresenceStatus is the connectivity state of a user.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceUnknown PresenceStatus = "unknown"
)

// ErrUnknownEvent is returned by DecodeEvent for unrecognized frame types.
// Callers log and drop the frame; an unknown type never fails the connection.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is an inbound socket event, decoded once at the socket boundary.
type Event interface {
	Type() EventType
}

// WelcomeEvent is pushed by the server right after connect.
type WelcomeEvent struct {
	Message string `json:"message"`
}

func (WelcomeEvent) Type() EventType { return EventWelcome }

// MessageEchoEvent carries a live message, including the echo of our own sends.
type MessageEchoEvent struct {
	Message Message `json:"message"`
}

func (MessageEchoEvent) Type() EventType { return EventMessageEcho }

// HistorySnapshotEvent is the most recent page of messages, pushed once after
// the conversation socket connects.
type HistorySnapshotEvent struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

func (HistorySnapshotEvent) Type() EventType { return EventHistorySnapshot }

// TypingEvent signals that a remote participant started or stopped typing.
type TypingEvent struct {
	UserID   string
	Username string
	Stopped  bool
}

func (TypingEvent) Type() EventType { return EventTyping }

// PresenceEvent carries the connectivity transition of a participant.
type PresenceEvent struct {
	UserID   string
	Status   PresenceStatus
	LastSeen *time.Time
}

func (PresenceEvent) Type() EventType { return EventPresence }

// ReadAckEvent acknowledges a read_messages intent with the new watermark.
type ReadAckEvent struct {
	LastReadAt time.Time
}

func (ReadAckEvent) Type() EventType { return EventReadAck }

// UnreadCountEvent carries the global unread message count.
type UnreadCountEvent struct {
	Count int `json:"count"`
}

func (UnreadCountEvent) Type() EventType { return EventUnreadCount }

// NewNotificationEvent announces a message in some conversation.
type NewNotificationEvent struct {
	ConversationID string `json:"conversationId"`
}

func (NewNotificationEvent) Type() EventType { return EventNewNotification }

// UserStatusEvent is a presence broadcast on the notification channel.
type UserStatusEvent struct {
	UserID   string
	Status   PresenceStatus
	LastSeen *time.Time
}

func (UserStatusEvent) Type() EventType { return EventUserStatus }

// PongEvent answers a heartbeat.
type PongEvent struct{}

func (PongEvent) Type() EventType { return EventPong }

// flexID tolerates servers that emit user ids as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type typingWire struct {
	UserID   flexID `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type presenceWire struct {
	UserID   flexID `json:"user_id"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

type readAckWire struct {
	LastReadAt string `json:"lastReadAt"`
}

// DecodeEvent decodes a raw socket frame into a typed Event. Unknown types
// return ErrUnknownEvent wrapped with the offending tag.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch envelope.Type {
	case EventWelcome:
		var ev WelcomeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return ev, nil

	case EventMessageEcho:
		var ev MessageEchoEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return ev, nil

	case EventHistorySnapshot:
		var ev HistorySnapshotEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return ev, nil

	case EventTyping:
		var w typingWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return TypingEvent{
			UserID:   string(w.UserID),
			Username: w.Username,
			Stopped:  w.Status == "stop_typing",
		}, nil

	case EventPresence:
		var w presenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		ev := PresenceEvent{
			UserID: string(w.UserID),
			Status: parsePresence(w.Status),
		}
		if t, ok := parseTime(w.LastSeen); ok {
			ev.LastSeen = &t
		}
		return ev, nil

	case EventReadAck:
		var w readAckWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		t, ok := parseTime(w.LastReadAt)
		if !ok {
			return nil, fmt.Errorf("decode %s: bad lastReadAt %q", envelope.Type, w.LastReadAt)
		}
		return ReadAckEvent{LastReadAt: t}, nil

	case EventUnreadCount:
		var ev UnreadCountEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return ev, nil

	case EventNewNotification:
		var ev NewNotificationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return ev, nil

	case EventUserStatus:
		var w presenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		ev := UserStatusEvent{
			UserID: string(w.UserID),
			Status: parsePresence(w.Status),
		}
		if t, ok := parseTime(w.LastSeen); ok {
			ev.LastSeen = &t
		}
		return ev, nil

	case EventPong:
		return PongEvent{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, string(envelope.Type))
	}
}

func parsePresence(s string) PresenceStatus {
	switch s {
	case "online":
		return PresenceOnline
	case "offline":
		return PresenceOffline
	default:
		return PresenceUnknown
	}
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	// Some server clocks serialize without an offset.
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
