// Package socket manages the live WebSocket channels to the platform: the
// per-conversation session and the always-on notification channel.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

// Status is the connection state surfaced to the UI.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusOpen         Status = "open"
	StatusReconnecting Status = "reconnecting"
	StatusClosed       Status = "closed"
	// StatusDisconnected means the retry budget is exhausted. The view stays
	// usable for already-loaded history.
	StatusDisconnected Status = "disconnected"
)

// ErrClosed is returned by Send after the session is closed.
var ErrClosed = errors.New("socket session closed")

const (
	defaultReconnectInterval = 5 * time.Second
	defaultMaxReconnects     = 20
	defaultHandshakeTimeout  = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	maxFrameSize             = 1 << 20
)

// Config configures a socket session.
type Config struct {
	// URL is the endpoint without the token query parameter.
	URL   string
	Token string

	// Channel labels the connection in logs and metrics.
	Channel string

	// ReconnectInterval is the fixed delay between reconnect attempts.
	ReconnectInterval time.Duration
	// MaxReconnects bounds reconnect attempts; negative means unlimited.
	MaxReconnects int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Heartbeat, when positive, sends a heartbeat frame at this cadence
	// while the connection is open.
	Heartbeat time.Duration

	// OnStatus is invoked on every connection state transition.
	OnStatus func(Status)
}

func (c *Config) applyDefaults() {
	if c.Channel == "" {
		c.Channel = "conversation"
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = defaultReconnectInterval
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = defaultMaxReconnects
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
}

// Session owns one logical socket connection. Inbound frames are decoded once
// at this boundary and delivered, in receipt order, on Events(). The channel
// closes when the session ends for any reason; Status() tells the two ends
// apart.
type Session struct {
	cfg    Config
	log    *logger.Logger
	dialer *websocket.Dialer

	writeMu sync.Mutex
	connMu  sync.Mutex
	conn    *websocket.Conn

	events chan model.Event
	status atomic.Value

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial opens the connection and starts the read loop. The first connect is
// synchronous; drops after that go through the reconnect policy.
func Dial(ctx context.Context, cfg Config, log *logger.Logger) (*Session, error) {
	cfg.applyDefaults()

	s := &Session{
		cfg: cfg,
		log: log.With(zap.String("channel", cfg.Channel)),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		events: make(chan model.Event, 64),
		closed: make(chan struct{}),
	}
	s.status.Store(StatusConnecting)

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Channel, err)
	}
	s.setConn(conn)
	s.setStatus(StatusOpen)

	go s.run()
	if cfg.Heartbeat > 0 {
		go s.heartbeatLoop()
	}
	return s, nil
}

// Events returns the inbound event stream. Closed on session end.
func (s *Session) Events() <-chan model.Event {
	return s.events
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	return s.status.Load().(Status)
}

// Send marshals an outbound intent onto the connection.
func (s *Session) Send(v interface{}) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	conn := s.currentConn()
	if conn == nil {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close shuts the session down deliberately. A deliberate close sends a
// normal-closure frame and suppresses reconnection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if conn := s.currentConn(); conn != nil {
			s.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.writeMu.Unlock()
			err = conn.Close()
		}
	})
	return err
}

func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	u.RawQuery = q.Encode()

	conn, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	metrics.RecordConnect(s.cfg.Channel, err)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameSize)
	return conn, nil
}

func (s *Session) run() {
	defer close(s.events)

	for {
		err := s.readLoop()

		select {
		case <-s.closed:
			s.setStatus(StatusClosed)
			return
		default:
		}

		// A normal closure from the server means the conversation ended;
		// do not fight it with reconnects.
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			s.log.Info("server closed connection")
			s.markClosed()
			s.setStatus(StatusClosed)
			return
		}

		s.log.Warn("connection dropped", zap.Error(err))
		s.setStatus(StatusReconnecting)

		if !s.reconnect() {
			s.markClosed()
			s.setStatus(StatusDisconnected)
			return
		}
		s.setStatus(StatusOpen)
	}
}

func (s *Session) readLoop() error {
	conn := s.currentConn()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := model.DecodeEvent(data)
		if err != nil {
			// Malformed or unknown frames are logged and dropped; they never
			// fail the connection.
			metrics.SocketDroppedFramesTotal.WithLabelValues(s.cfg.Channel).Inc()
			s.log.Warn("dropping frame", zap.Error(err))
			continue
		}
		metrics.SocketEventsTotal.WithLabelValues(s.cfg.Channel, string(ev.Type())).Inc()

		select {
		case s.events <- ev:
		case <-s.closed:
			return ErrClosed
		}
	}
}

// reconnect retries the dial under the configured policy. Returns false when
// the budget is exhausted or the session was closed meanwhile.
func (s *Session) reconnect() bool {
	policy := backoff.NewConstantBackOff(s.cfg.ReconnectInterval)
	var b backoff.BackOff = policy
	if s.cfg.MaxReconnects >= 0 {
		b = backoff.WithMaxRetries(policy, uint64(s.cfg.MaxReconnects))
	}

	attempt := 0
	op := func() error {
		select {
		case <-s.closed:
			return backoff.Permanent(ErrClosed)
		default:
		}

		attempt++
		metrics.SocketReconnectsTotal.WithLabelValues(s.cfg.Channel).Inc()
		s.log.Info("reconnecting", zap.Int("attempt", attempt))

		conn, err := s.connect(context.Background())
		if err != nil {
			return err
		}
		s.setConn(conn)
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		s.log.Error("reconnect budget exhausted", zap.Int("attempts", attempt), zap.Error(err))
		return false
	}
	return true
}

// heartbeatLoop sends heartbeats at the configured cadence while the
// connection reports open.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			if s.Status() != StatusOpen {
				continue
			}
			if err := s.Send(model.NewHeartbeat()); err != nil {
				s.log.Debug("heartbeat failed", zap.Error(err))
				continue
			}
			metrics.HeartbeatsTotal.Inc()
		}
	}
}

func (s *Session) setStatus(st Status) {
	prev := s.status.Swap(st)
	if prev == st {
		return
	}
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(st)
	}
}

func (s *Session) markClosed() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if conn := s.currentConn(); conn != nil {
			_ = conn.Close()
		}
	})
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Session) currentConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// ConversationURL builds the per-conversation socket endpoint.
func ConversationURL(base, conversationID string) string {
	return fmt.Sprintf("%s/voxchats/%s/", base, conversationID)
}

// NotificationsURL builds the global notification socket endpoint.
func NotificationsURL(base string) string {
	return base + "/notifications/"
}
