package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/session"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
)

func newTestClient(t *testing.T, sess *session.Session, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, sess, logger.NewNop())
}

func TestGetMessages(t *testing.T) {
	sess := session.New("secret-token", "u1", "me")
	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/", r.URL.Path)
		assert.Equal(t, "Token secret-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "conv-1", q.Get("conversation_id"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("page_size"))
		assert.Equal(t, "org-1", q.Get("organization_id"))
		assert.Equal(t, "loc-1", q.Get("location_id"))

		next := "http://example/api/messages/?page=3"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PaginatedMessages{
			Count: 120,
			Next:  &next,
			Results: []model.Message{{
				ID: "m1", ConversationID: "conv-1", Content: "hi",
				Type: model.MessageTypeText, Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}},
		})
	})

	res, err := c.GetMessages(context.Background(), "conv-1", "org-1", "loc-1", 2, 50)
	require.NoError(t, err)

	assert.Equal(t, 120, res.Count)
	require.NotNil(t, res.Next)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "m1", res.Results[0].ID)
}

func TestGetConversations(t *testing.T) {
	sess := session.New("secret-token", "u1", "me")
	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/active-conversations/", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PaginatedConversations{
			Count: 1,
			Results: []model.Conversation{{
				ConversationID:   "c1",
				ConversationType: model.ConversationDirect,
				DirectMessage:    &model.DirectMessage{OtherParticipantName: "alex"},
			}},
		})
	})

	res, err := c.GetConversations(context.Background(), "u1", "org-1", "loc-1", 1, "")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "alex", res.Results[0].Title())
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	sess := session.New("stale-token", "u1", "me")
	var invalidatedWith string
	sess.OnInvalidate(func(reason string) { invalidatedWith = reason })

	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	_, err := c.GetMessages(context.Background(), "conv-1", "org-1", "loc-1", 1, 50)
	assert.ErrorIs(t, err, session.ErrInvalid)
	assert.False(t, sess.Valid())
	assert.Equal(t, "unauthorized", invalidatedWith)

	// Subsequent calls fail fast without touching the network.
	_, err = c.GetConversations(context.Background(), "u1", "org-1", "loc-1", 1, "")
	assert.ErrorIs(t, err, session.ErrInvalid)
}

func TestNonSuccessReturnsAPIError(t *testing.T) {
	sess := session.New("token", "u1", "me")
	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversation not found", http.StatusNotFound)
	})

	_, err := c.GetMessages(context.Background(), "missing", "org-1", "loc-1", 1, 50)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "conversation not found")
	// A plain API error never kills the session.
	assert.True(t, sess.Valid())
}

func TestSendMessageMultipart(t *testing.T) {
	sess := session.New("token", "u1", "me")
	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/save-message/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "conv-1", r.FormValue("conversationId"))
		assert.Equal(t, "see attachment", r.FormValue("content"))
		assert.Equal(t, "org-1", r.FormValue("organization_id"))
		assert.Equal(t, "loc-1", r.FormValue("location_id"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "xray.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Message{ID: "m42", Type: model.MessageTypeFile})
	})

	msg, err := c.SendMessage(context.Background(), SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "see attachment",
		OrganizationID: "org-1",
		LocationID:     "loc-1",
		File:           &Attachment{Name: "xray.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "m42", msg.ID)
}

func TestSendMessageWithoutFile(t *testing.T) {
	sess := session.New("token", "u1", "me")
	c := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		assert.Error(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Message{ID: "m43"})
	})

	msg, err := c.SendMessage(context.Background(), SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "plain text",
	})
	require.NoError(t, err)
	assert.Equal(t, "m43", msg.ID)
}
