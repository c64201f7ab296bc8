package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
)

func TestNotifierTracksUnreadCount(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, "/notifications/", r.URL.Path)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"unread_count","count":7}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"unread_count","count":9}`))
	})

	var mu sync.Mutex
	var seen []model.EventType
	n, err := DialNotifier(context.Background(), NotifierConfig{
		BaseURL: wsURL(srv),
		Token:   "t",
		OnEvent: func(ev model.Event) {
			mu.Lock()
			seen = append(seen, ev.Type())
			mu.Unlock()
		},
	}, logger.NewNop())
	require.NoError(t, err)
	defer n.Close()

	assert.Eventually(t, func() bool {
		return n.UnreadCount() == 9
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.EventType{model.EventUnreadCount, model.EventUnreadCount}, seen)
}

func TestNotifierHeartbeat(t *testing.T) {
	gotHeartbeat := make(chan struct{})
	var once sync.Once
	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &frame) == nil && frame.Type == "heartbeat" {
				once.Do(func() { close(gotHeartbeat) })
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
			}
		}
	})

	n, err := DialNotifier(context.Background(), NotifierConfig{
		BaseURL:   wsURL(srv),
		Token:     "t",
		Heartbeat: 20 * time.Millisecond,
	}, logger.NewNop())
	require.NoError(t, err)
	defer n.Close()

	select {
	case <-gotHeartbeat:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat received")
	}
	assert.Equal(t, StatusOpen, n.Status())
}
