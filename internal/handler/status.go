package handler

import (
	"net/http"
	"time"

	"github.com/nikhil-31/rapidconsult-sub000/internal/chat"
	"github.com/nikhil-31/rapidconsult-sub000/internal/session"
	"github.com/nikhil-31/rapidconsult-sub000/internal/socket"
)

// StatusHandler reports the client's live connection and chat state.
type StatusHandler struct {
	sess     *session.Session
	notifier *socket.Notifier
	chat     *chat.Session
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(sess *session.Session, notifier *socket.Notifier, chatSess *chat.Session) *StatusHandler {
	return &StatusHandler{sess: sess, notifier: notifier, chat: chatSess}
}

type statusResponse struct {
	SessionValid       bool   `json:"session_valid"`
	NotificationStatus string `json:"notification_status"`
	UnreadCount        int    `json:"unread_count"`

	ActiveConversation string `json:"active_conversation,omitempty"`
	ConversationStatus string `json:"conversation_status,omitempty"`
	StoredMessages     int    `json:"stored_messages"`
	TypingUsers        int    `json:"typing_users"`

	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		SessionValid: h.sess.Valid(),
	}

	if exp, ok := h.sess.ExpiresAt(); ok {
		resp.TokenExpiresAt = &exp
	}
	if h.notifier != nil {
		resp.NotificationStatus = string(h.notifier.Status())
		resp.UnreadCount = h.notifier.UnreadCount()
	}
	if h.chat != nil {
		if conv := h.chat.Active(); conv != nil {
			resp.ActiveConversation = conv.ConversationID
			resp.ConversationStatus = string(h.chat.SocketStatus())
		}
		if store := h.chat.Store(); store != nil {
			resp.StoredMessages = store.Len()
		}
		if typing := h.chat.Typing(); typing != nil {
			resp.TypingUsers = len(typing.Active())
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
