package socket

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
)

// Notifier is the always-on notification channel. It is independent of any
// conversation: it reconnects without bound, heartbeats while open, and
// surfaces unread-count and presence broadcasts.
type Notifier struct {
	sess   *Session
	log    *logger.Logger
	unread atomic.Int64
}

// NotifierConfig configures the notification channel.
type NotifierConfig struct {
	BaseURL   string
	Token     string
	Heartbeat time.Duration

	// OnEvent receives every decoded notification event.
	OnEvent  func(model.Event)
	OnStatus func(Status)
}

// DialNotifier opens the notification channel and starts draining it.
func DialNotifier(ctx context.Context, cfg NotifierConfig, log *logger.Logger) (*Notifier, error) {
	n := &Notifier{log: log}

	sess, err := Dial(ctx, Config{
		URL:           NotificationsURL(cfg.BaseURL),
		Token:         cfg.Token,
		Channel:       "notifications",
		MaxReconnects: -1,
		Heartbeat:     cfg.Heartbeat,
		OnStatus:      cfg.OnStatus,
	}, log)
	if err != nil {
		return nil, err
	}
	n.sess = sess

	go n.drain(cfg.OnEvent)
	return n, nil
}

func (n *Notifier) drain(onEvent func(model.Event)) {
	for ev := range n.sess.Events() {
		switch e := ev.(type) {
		case model.UnreadCountEvent:
			n.unread.Store(int64(e.Count))
		case model.PongEvent:
			n.log.Debug("heartbeat acknowledged")
		case model.UserStatusEvent:
			n.log.Debug("user status broadcast",
				zap.String("user_id", e.UserID),
				zap.String("status", string(e.Status)))
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

// UnreadCount returns the last broadcast global unread count.
func (n *Notifier) UnreadCount() int {
	return int(n.unread.Load())
}

// Status returns the channel connection state.
func (n *Notifier) Status() Status {
	return n.sess.Status()
}

// Close shuts the channel down deliberately.
func (n *Notifier) Close() error {
	return n.sess.Close()
}
