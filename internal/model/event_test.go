package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, frame string) Event {
	t.Helper()
	ev, err := DecodeEvent([]byte(frame))
	require.NoError(t, err)
	return ev
}

func TestDecodeWelcome(t *testing.T) {
	ev := decode(t, `{"type":"welcome_message","message":"Hey there! You are connected."}`)
	w, ok := ev.(WelcomeEvent)
	require.True(t, ok)
	assert.Equal(t, "Hey there! You are connected.", w.Message)
}

func TestDecodeMessageEcho(t *testing.T) {
	ev := decode(t, `{
		"type":"chat_message_echo",
		"message":{
			"id":"m1","conversationId":"c1","senderId":"u2","senderName":"alex",
			"content":"hi","messageType":"text","timestamp":"2025-06-01T12:00:00Z"
		}
	}`)
	echo, ok := ev.(MessageEchoEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", echo.Message.ID)
	assert.Equal(t, MessageTypeText, echo.Message.Type)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), echo.Message.Timestamp)
}

func TestDecodeHistorySnapshot(t *testing.T) {
	ev := decode(t, `{
		"type":"last_50_messages",
		"has_more":true,
		"messages":[
			{"id":"m2","content":"later","messageType":"text","timestamp":"2025-06-01T12:01:00Z"},
			{"id":"m1","content":"earlier","messageType":"text","timestamp":"2025-06-01T12:00:00Z"}
		]
	}`)
	snap, ok := ev.(HistorySnapshotEvent)
	require.True(t, ok)
	assert.True(t, snap.HasMore)
	require.Len(t, snap.Messages, 2)
	// Order is preserved as sent; reordering is the consumer's job.
	assert.Equal(t, "m2", snap.Messages[0].ID)
}

func TestDecodeTyping(t *testing.T) {
	ev := decode(t, `{"type":"typing","userId":"u2","username":"alex","status":"typing"}`)
	typ, ok := ev.(TypingEvent)
	require.True(t, ok)
	assert.Equal(t, "u2", typ.UserID)
	assert.Equal(t, "alex", typ.Username)
	assert.False(t, typ.Stopped)

	ev = decode(t, `{"type":"typing","userId":"u2","username":"alex","status":"stop_typing"}`)
	assert.True(t, ev.(TypingEvent).Stopped)
}

func TestDecodeTypingNumericUserID(t *testing.T) {
	ev := decode(t, `{"type":"typing","userId":42,"username":"alex","status":"typing"}`)
	assert.Equal(t, "42", ev.(TypingEvent).UserID)
}

func TestDecodePresence(t *testing.T) {
	ev := decode(t, `{"type":"presence","user_id":7,"status":"online"}`)
	p, ok := ev.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, "7", p.UserID)
	assert.Equal(t, PresenceOnline, p.Status)
	assert.Nil(t, p.LastSeen)

	ev = decode(t, `{"type":"presence","user_id":"7","status":"offline","last_seen":"2025-06-01T08:30:00Z"}`)
	p = ev.(PresenceEvent)
	assert.Equal(t, PresenceOffline, p.Status)
	require.NotNil(t, p.LastSeen)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC), *p.LastSeen)
}

func TestDecodePresenceOffsetlessTimestamp(t *testing.T) {
	ev := decode(t, `{"type":"presence","user_id":"7","status":"offline","last_seen":"2025-06-01T08:30:00.123456"}`)
	p := ev.(PresenceEvent)
	require.NotNil(t, p.LastSeen)
	assert.Equal(t, 2025, p.LastSeen.Year())
}

func TestDecodePresenceUnknownStatus(t *testing.T) {
	ev := decode(t, `{"type":"presence","user_id":"7","status":"away"}`)
	assert.Equal(t, PresenceUnknown, ev.(PresenceEvent).Status)
}

func TestDecodeReadAck(t *testing.T) {
	ev := decode(t, `{"type":"read_messages_ack","lastReadAt":"2025-06-01T12:05:00Z"}`)
	ack, ok := ev.(ReadAckEvent)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC), ack.LastReadAt)
}

func TestDecodeReadAckBadTimestamp(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"read_messages_ack","lastReadAt":"not a time"}`))
	assert.Error(t, err)
}

func TestDecodeNotificationEvents(t *testing.T) {
	ev := decode(t, `{"type":"unread_count","count":12}`)
	assert.Equal(t, 12, ev.(UnreadCountEvent).Count)

	ev = decode(t, `{"type":"new_message_notification","conversationId":"c9"}`)
	assert.Equal(t, "c9", ev.(NewNotificationEvent).ConversationID)

	ev = decode(t, `{"type":"user_status","user_id":3,"status":"online"}`)
	assert.Equal(t, "3", ev.(UserStatusEvent).UserID)

	ev = decode(t, `{"type":"pong"}`)
	assert.Equal(t, EventPong, ev.Type())
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"mystery"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := DecodeEvent([]byte(`{not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}

func TestChatMessageIntentWire(t *testing.T) {
	intent := NewChatMessage("c1", "hello", "", "loc-1", "org-1")
	data, err := json.Marshal(intent)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "chat_message", wire["type"])
	assert.Equal(t, "c1", wire["conversationId"])
	assert.Equal(t, "hello", wire["content"])
	assert.Equal(t, "text", wire["messageType"])
	assert.Nil(t, wire["replyTo"])
	assert.Equal(t, "loc-1", wire["locationId"])
	assert.Equal(t, "org-1", wire["organizationId"])
}

func TestChatMessageIntentReply(t *testing.T) {
	intent := NewChatMessage("c1", "hello", "m7", "loc-1", "org-1")
	data, err := json.Marshal(intent)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "m7", wire["replyTo"])
}

func TestTypingIntentWire(t *testing.T) {
	data, err := json.Marshal(NewTyping("c1", "u1", "me", false))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"typing"`)

	data, err = json.Marshal(NewTyping("c1", "u1", "me", true))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"stop_typing"`)
}

func TestReadAndHeartbeatIntentWire(t *testing.T) {
	data, err := json.Marshal(NewReadMessages("c1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"read_messages","conversationId":"c1"}`, string(data))

	data, err = json.Marshal(NewHeartbeat())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(data))
}
