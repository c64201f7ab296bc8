// Package bridge republishes decoded chat events onto NATS subjects so other
// hospital integrations can consume them without speaking the platform's
// WebSocket protocol.
package bridge

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	Token    string
	CAFile   string
	CertFile string
	KeyFile  string

	// SubjectPrefix prefixes every published subject, e.g.
	// "rapidconsult.events" yields "rapidconsult.events.chat_message_echo".
	SubjectPrefix string
}

// Bridge publishes chat events to NATS.
type Bridge struct {
	conn   *nats.Conn
	prefix string
	logger *logger.Logger
}

// envelope is the published payload.
type envelope struct {
	Type  model.EventType `json:"type"`
	Event model.Event     `json:"event"`
	At    time.Time       `json:"at"`
}

// Connect establishes the NATS connection.
func Connect(cfg Config, log *logger.Logger) (*Bridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "rapidconsult.events"
	}

	return &Bridge{conn: nc, prefix: prefix, logger: log}, nil
}

// Publish republishes one decoded event. Failures are reported but never
// fatal to the chat client itself.
func (b *Bridge) Publish(ev model.Event) error {
	payload, err := json.Marshal(envelope{Type: ev.Type(), Event: ev, At: time.Now().UTC()})
	if err != nil {
		metrics.BridgePublishesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := b.prefix + "." + string(ev.Type())
	if err := b.conn.Publish(subject, payload); err != nil {
		metrics.BridgePublishesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.BridgePublishesTotal.WithLabelValues("ok").Inc()
	return nil
}

// IsConnected returns true if connected to NATS.
func (b *Bridge) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains and closes the connection.
func (b *Bridge) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
