package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
	"github.com/nikhil-31/rapidconsult-sub000/internal/session"
	"github.com/nikhil-31/rapidconsult-sub000/internal/socket"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

// Callbacks let an embedding view observe chat state changes. All fields are
// optional.
type Callbacks struct {
	// OnMessage fires for every live message appended to the store,
	// including messages echoed back for our own sends.
	OnMessage func(conversationID string, msg model.Message)
	// OnTyping fires with the active remote typist set.
	OnTyping func(active []string)
	// OnPresence fires on direct-peer presence transitions.
	OnPresence func(status model.PresenceStatus, lastSeen *time.Time)
	// OnStatus fires on socket state transitions.
	OnStatus func(status socket.Status)
	// OnLastRead fires when the server acknowledges a read receipt.
	OnLastRead func(lastReadAt time.Time)
}

// Options configures a chat session.
type Options struct {
	WSBaseURL string
	PageSize  int

	ReconnectInterval time.Duration
	MaxReconnects     int

	TypingExpiry     time.Duration
	TypingIdle       time.Duration
	ReadReceiptDelay time.Duration

	Callbacks Callbacks
}

// Session owns all per-conversation chat state: the socket, the message
// store, pagination, typing, presence, and the composer. Activating a new
// conversation tears the previous state down completely: socket listeners,
// typing timers, and in-flight page loads must not leak across.
type Session struct {
	opts Options
	auth *session.Session
	rest *rest.Client
	log  *logger.Logger

	mu         sync.Mutex
	active     *model.Conversation
	store      *Store
	pager      *Paginator
	typing     *TypingTracker
	presence   *PresenceTracker
	composer   *Composer
	sock       *socket.Session
	readTimer  *time.Timer
	lastReadAt *time.Time
	loopDone   chan struct{}
}

// NewSession creates an inactive chat session.
func NewSession(auth *session.Session, rc *rest.Client, opts Options, log *logger.Logger) *Session {
	if opts.ReadReceiptDelay <= 0 {
		opts.ReadReceiptDelay = 3 * time.Second
	}
	return &Session{opts: opts, auth: auth, rest: rc, log: log}
}

// Activate switches the session to a conversation. Prior state is torn down
// first; fresh state is built and the conversation socket dialed. The
// server pushes a history snapshot right after connect, so no REST call is
// needed for the first page.
func (s *Session) Activate(ctx context.Context, conv model.Conversation, organizationID, locationID string) error {
	s.teardown()

	log := s.log.WithConversation(conv.ConversationID)

	store := NewStore()
	pager := NewPaginator(s.rest, store, s.opts.PageSize, log)
	pager.Reset(conv.ConversationID, organizationID, locationID)

	typing := NewTypingTracker(s.auth.UserID(),
		WithTypingExpiry(s.opts.TypingExpiry),
		WithTypingChange(s.opts.Callbacks.OnTyping),
	)
	presence := NewPresenceTracker(s.auth.UserID(), s.opts.Callbacks.OnPresence)

	sock, err := socket.Dial(ctx, socket.Config{
		URL:               socket.ConversationURL(s.opts.WSBaseURL, conv.ConversationID),
		Token:             s.auth.Token(),
		Channel:           "conversation",
		ReconnectInterval: s.opts.ReconnectInterval,
		MaxReconnects:     s.opts.MaxReconnects,
		OnStatus:          s.opts.Callbacks.OnStatus,
	}, log)
	if err != nil {
		return fmt.Errorf("activate conversation %s: %w", conv.ConversationID, err)
	}

	local := NewLocalTyping(s.opts.TypingIdle, func(stopped bool) {
		intent := model.NewTyping(conv.ConversationID, s.auth.UserID(), s.auth.Username(), stopped)
		if err := sock.Send(intent); err != nil {
			log.Debug("typing broadcast failed", zap.Error(err))
		}
	})
	composer := NewComposer(s.rest, sock, local, conv.ConversationID, organizationID, locationID)

	loopDone := make(chan struct{})

	s.mu.Lock()
	c := conv
	s.active = &c
	s.store = store
	s.pager = pager
	s.typing = typing
	s.presence = presence
	s.composer = composer
	s.sock = sock
	s.lastReadAt = conv.LastReadAt
	s.loopDone = loopDone
	// Mark the conversation read shortly after it is on screen.
	s.readTimer = time.AfterFunc(s.opts.ReadReceiptDelay, func() {
		if err := sock.Send(model.NewReadMessages(conv.ConversationID)); err != nil {
			log.Debug("read receipt failed", zap.Error(err))
		}
	})
	s.mu.Unlock()

	go s.eventLoop(sock, store, pager, typing, presence, conv.ConversationID, log, loopDone)
	return nil
}

// eventLoop applies socket events to the state owned by this activation.
// All arguments are captured at activation time, so events from a previous
// conversation's socket can never touch the current state.
func (s *Session) eventLoop(sock *socket.Session, store *Store, pager *Paginator, typing *TypingTracker, presence *PresenceTracker, conversationID string, log *logger.Logger, done chan struct{}) {
	defer close(done)

	for ev := range sock.Events() {
		switch e := ev.(type) {
		case model.HistorySnapshotEvent:
			// A snapshot replaces the store only on first load. On
			// reconnect the store already has merged state the snapshot
			// knows nothing about, so it only refreshes has-more.
			if store.Len() == 0 {
				store.Replace(e.Messages)
				pager.RefreshHasMore(e.HasMore)
				pagerFirstPage(pager)
			} else {
				pager.RefreshHasMore(e.HasMore)
			}

		case model.MessageEchoEvent:
			if store.Append(e.Message) {
				metrics.MessagesReceivedTotal.Inc()
				if s.opts.Callbacks.OnMessage != nil {
					s.opts.Callbacks.OnMessage(conversationID, e.Message)
				}
			}

		case model.TypingEvent:
			typing.HandleRemote(e)

		case model.PresenceEvent:
			presence.Handle(e)

		case model.ReadAckEvent:
			s.setLastRead(e.LastReadAt)
			if s.opts.Callbacks.OnLastRead != nil {
				s.opts.Callbacks.OnLastRead(e.LastReadAt)
			}

		case model.WelcomeEvent:
			log.Info("connected", zap.String("message", e.Message))

		default:
			log.Debug("unhandled event", zap.String("type", string(ev.Type())))
		}
	}
}

// LoadOlder loads the next older history page into the store. Returns the
// number of messages prepended so the view can hold its scroll anchor.
func (s *Session) LoadOlder(ctx context.Context) (int, error) {
	s.mu.Lock()
	pager := s.pager
	s.mu.Unlock()
	if pager == nil {
		return 0, nil
	}
	return pager.LoadOlder(ctx)
}

// LoadFirstPage fetches the newest page over REST. Normally the socket
// snapshot covers this; the explicit path exists for retry after a failed
// connect.
func (s *Session) LoadFirstPage(ctx context.Context) error {
	s.mu.Lock()
	pager := s.pager
	s.mu.Unlock()
	if pager == nil {
		return nil
	}
	return pager.LoadFirstPage(ctx)
}

// Store returns the active conversation's message store, or nil.
func (s *Session) Store() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Composer returns the active conversation's composer, or nil.
func (s *Session) Composer() *Composer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composer
}

// Typing returns the active conversation's typing tracker, or nil.
func (s *Session) Typing() *TypingTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Presence returns the active conversation's presence tracker, or nil.
func (s *Session) Presence() *PresenceTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// Paginator returns the active conversation's paginator, or nil.
func (s *Session) Paginator() *Paginator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager
}

// Active returns the active conversation, or nil.
func (s *Session) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SocketStatus returns the conversation socket state.
func (s *Session) SocketStatus() socket.Status {
	s.mu.Lock()
	sock := s.sock
	s.mu.Unlock()
	if sock == nil {
		return socket.StatusClosed
	}
	return sock.Status()
}

// LastReadAt returns the read watermark acknowledged by the server.
func (s *Session) LastReadAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReadAt
}

// Close tears down the active conversation's state.
func (s *Session) Close() {
	s.teardown()
}

func (s *Session) setLastRead(t time.Time) {
	s.mu.Lock()
	s.lastReadAt = &t
	s.mu.Unlock()
}

func (s *Session) teardown() {
	s.mu.Lock()
	sock := s.sock
	typing := s.typing
	presence := s.presence
	pager := s.pager
	readTimer := s.readTimer
	loopDone := s.loopDone
	composer := s.composer

	s.active = nil
	s.store = nil
	s.pager = nil
	s.typing = nil
	s.presence = nil
	s.composer = nil
	s.sock = nil
	s.readTimer = nil
	s.lastReadAt = nil
	s.loopDone = nil
	s.mu.Unlock()

	if readTimer != nil {
		readTimer.Stop()
	}
	if typing != nil {
		typing.Clear()
	}
	if presence != nil {
		presence.Reset()
	}
	if pager != nil {
		// Invalidate in-flight page loads for the old conversation.
		pager.Reset("", "", "")
	}
	if composer != nil && composer.typing != nil {
		composer.typing.Cancel()
	}
	if sock != nil {
		_ = sock.Close()
		if loopDone != nil {
			<-loopDone
		}
	}
}

// pagerFirstPage records that the snapshot stands in for page one.
func pagerFirstPage(p *Paginator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == 0 {
		p.page = 1
	}
}
