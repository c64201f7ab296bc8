package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
)

type captureSender struct {
	sent []interface{}
	err  error
}

func (c *captureSender) Send(v interface{}) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, v)
	return nil
}

func TestComposerSendText(t *testing.T) {
	sender := &captureSender{}
	c := NewComposer(nil, sender, nil, "conv-1", "org-1", "loc-1")

	c.SetText("patient in bay 4")
	msg, err := c.Send(context.Background())
	require.NoError(t, err)

	// Text goes over the socket; the echo is what lands in the store.
	assert.Nil(t, msg)
	require.Len(t, sender.sent, 1)
	intent, ok := sender.sent[0].(model.ChatMessageIntent)
	require.True(t, ok)
	assert.Equal(t, "conv-1", intent.ConversationID)
	assert.Equal(t, "patient in bay 4", intent.Content)
	assert.Equal(t, "org-1", intent.OrganizationID)
	assert.Equal(t, "loc-1", intent.LocationID)
	assert.Nil(t, intent.ReplyTo)

	// Optimistic clear.
	assert.Empty(t, c.Text())
}

func TestComposerSendWithReplyTarget(t *testing.T) {
	sender := &captureSender{}
	c := NewComposer(nil, sender, nil, "conv-1", "org-1", "loc-1")

	target := msg("m1", 0)
	c.SetReplyTo(&target)
	c.SetText("agreed")
	_, err := c.Send(context.Background())
	require.NoError(t, err)

	intent := sender.sent[0].(model.ChatMessageIntent)
	require.NotNil(t, intent.ReplyTo)
	assert.Equal(t, "m1", *intent.ReplyTo)
	assert.Nil(t, c.ReplyTo())
}

func TestComposerEmptyDraftIsNoop(t *testing.T) {
	sender := &captureSender{}
	c := NewComposer(nil, sender, nil, "conv-1", "org-1", "loc-1")

	msg, err := c.Send(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, sender.sent)
}

func TestComposerRejectsOversizedText(t *testing.T) {
	sender := &captureSender{}
	c := NewComposer(nil, sender, nil, "conv-1", "org-1", "loc-1")

	c.SetText(strings.Repeat("a", MaxMessageLength+1))
	_, err := c.Send(context.Background())
	assert.ErrorIs(t, err, ErrMessageTooLong)
	assert.Empty(t, sender.sent)

	// Exactly at the limit is fine, counted in runes not bytes.
	c.SetText(strings.Repeat("é", MaxMessageLength))
	_, err = c.Send(context.Background())
	assert.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestComposerKeepsDraftOnSendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("socket down")}
	c := NewComposer(nil, sender, nil, "conv-1", "org-1", "loc-1")

	c.SetText("try again")
	_, err := c.Send(context.Background())
	require.Error(t, err)
	assert.Equal(t, "try again", c.Text())
}

func TestComposerSendAttachment(t *testing.T) {
	var gotContent, gotFile string
	rc := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/save-message/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotContent = r.FormValue("content")

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		gotFile = string(data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Message{
			ID: "m9", ConversationID: "conv-1", Content: r.FormValue("content"),
			Type: model.MessageTypeFile, Timestamp: time.Now().UTC(),
		})
	})

	sender := &captureSender{}
	c := NewComposer(rc, sender, nil, "conv-1", "org-1", "loc-1")
	c.SetText("scan attached")
	c.Attach(rest.Attachment{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("pdfdata")})

	msg, err := c.Send(context.Background())
	require.NoError(t, err)

	require.NotNil(t, msg)
	assert.Equal(t, "m9", msg.ID)
	assert.Equal(t, "scan attached", gotContent)
	assert.Equal(t, "pdfdata", gotFile)
	// Attachment sends bypass the socket entirely.
	assert.Empty(t, sender.sent)
	assert.Empty(t, c.Text())
}

func TestComposerKeepsDraftOnUploadFailure(t *testing.T) {
	rc := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusBadGateway)
	})

	c := NewComposer(rc, &captureSender{}, nil, "conv-1", "org-1", "loc-1")
	c.SetText("scan attached")
	c.Attach(rest.Attachment{Name: "scan.pdf", Data: []byte("pdfdata")})

	_, err := c.Send(context.Background())
	require.Error(t, err)
	var apiErr *rest.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "scan attached", c.Text())
}
