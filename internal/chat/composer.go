package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

// MaxMessageLength is the longest text message the platform accepts.
const MaxMessageLength = 512

// ErrMessageTooLong is returned when the draft exceeds MaxMessageLength.
var ErrMessageTooLong = errors.New("message exceeds maximum length")

// IntentSender emits outbound frames on the conversation socket.
type IntentSender interface {
	Send(v interface{}) error
}

// Composer holds the local draft (text, at most one staged attachment, and
// an optional reply target) and orchestrates sending. Text goes over the
// socket (optimistic clear; the server echo is what lands in the store).
// Attachments go over a single multipart REST request; a failed send leaves
// the draft intact.
type Composer struct {
	rest   *rest.Client
	sender IntentSender
	typing *LocalTyping

	conversationID string
	organizationID string
	locationID     string

	mu         sync.Mutex
	text       string
	attachment *rest.Attachment
	replyTo    *model.Message
}

// NewComposer creates a composer for one conversation. typing may be nil.
func NewComposer(rc *rest.Client, sender IntentSender, typing *LocalTyping, conversationID, organizationID, locationID string) *Composer {
	return &Composer{
		rest:           rc,
		sender:         sender,
		typing:         typing,
		conversationID: conversationID,
		organizationID: organizationID,
		locationID:     locationID,
	}
}

// SetText replaces the draft text and signals local typing activity.
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	if c.typing != nil && text != "" {
		c.typing.Keystroke()
	}
}

// Text returns the current draft text.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Attach stages a single attachment, replacing any prior one.
func (c *Composer) Attach(att rest.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = &att
}

// ClearAttachment drops the staged attachment.
func (c *Composer) ClearAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = nil
}

// SetReplyTo stages a reply target.
func (c *Composer) SetReplyTo(m *model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyTo = m
}

// ReplyTo returns the staged reply target, if any.
func (c *Composer) ReplyTo() *model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replyTo
}

// Send dispatches the draft. With an attachment staged it performs the
// multipart REST request and returns the created message; with plain text it
// emits a socket intent and returns nil (the echo appends to the store).
// Empty drafts are a no-op.
func (c *Composer) Send(ctx context.Context) (*model.Message, error) {
	c.mu.Lock()
	text := c.text
	att := c.attachment
	replyTo := c.replyTo
	c.mu.Unlock()

	if text == "" && att == nil {
		return nil, nil
	}

	if att != nil {
		msg, err := c.rest.SendMessage(ctx, rest.SendMessageRequest{
			ConversationID: c.conversationID,
			Content:        text,
			OrganizationID: c.organizationID,
			LocationID:     c.locationID,
			File:           att,
		})
		if err != nil {
			// Draft stays intact so the user can retry manually.
			return nil, err
		}
		c.clearDraft()
		c.stopTyping()
		metrics.MessagesSentTotal.WithLabelValues("rest").Inc()
		return msg, nil
	}

	if len([]rune(text)) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	replyToID := ""
	if replyTo != nil {
		replyToID = replyTo.ID
	}
	intent := model.NewChatMessage(c.conversationID, text, replyToID, c.locationID, c.organizationID)
	if err := c.sender.Send(intent); err != nil {
		return nil, err
	}

	// Optimistic: clear immediately, the echo event appends the message.
	c.clearDraft()
	c.stopTyping()
	metrics.MessagesSentTotal.WithLabelValues("socket").Inc()
	return nil, nil
}

func (c *Composer) clearDraft() {
	c.mu.Lock()
	c.text = ""
	c.attachment = nil
	c.replyTo = nil
	c.mu.Unlock()
}

func (c *Composer) stopTyping() {
	if c.typing != nil {
		c.typing.StopNow()
	}
}
