package model

// Outbound socket frames. Field names follow the platform's wire protocol.

// ChatMessageIntent asks the server to persist and fan out a text message.
// The server's chat_message_echo is what actually lands in the store.
type ChatMessageIntent struct {
	Kind           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	ReplyTo        *string   `json:"replyTo"`
	LocationID     string    `json:"locationId"`
	OrganizationID string    `json:"organizationId"`
}

// NewChatMessage builds a text-message intent. replyToID may be empty.
func NewChatMessage(conversationID, content, replyToID, locationID, organizationID string) ChatMessageIntent {
	intent := ChatMessageIntent{
		Kind:           "chat_message",
		ConversationID: conversationID,
		Content:        content,
		MessageType:    string(MessageTypeText),
		LocationID:     locationID,
		OrganizationID: organizationID,
	}
	if replyToID != "" {
		intent.ReplyTo = &replyToID
	}
	return intent
}

// TypingIntent broadcasts the local user's typing state.
type TypingIntent struct {
	Kind           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Status         string    `json:"status"`
}

// NewTyping builds a typing intent. stopped selects between the start and
// stop wire statuses.
func NewTyping(conversationID, userID, username string, stopped bool) TypingIntent {
	status := "typing"
	if stopped {
		status = "stop_typing"
	}
	return TypingIntent{
		Kind:           EventTyping,
		ConversationID: conversationID,
		UserID:         userID,
		Username:       username,
		Status:         status,
	}
}

// ReadMessagesIntent marks the conversation read up to now.
type ReadMessagesIntent struct {
	Kind           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
}

// NewReadMessages builds a read receipt intent.
func NewReadMessages(conversationID string) ReadMessagesIntent {
	return ReadMessagesIntent{Kind: "read_messages", ConversationID: conversationID}
}

// HeartbeatIntent keeps server-side presence fresh on the notification channel.
type HeartbeatIntent struct {
	Kind EventType `json:"type"`
}

// NewHeartbeat builds a heartbeat intent.
func NewHeartbeat() HeartbeatIntent {
	return HeartbeatIntent{Kind: "heartbeat"}
}
