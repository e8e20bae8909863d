package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *RealtimeHub, userID uint) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(&WSClient{UserID: userID, Conn: conn})
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// registration happens on the server goroutine after the handshake
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[userID]) > 0
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestRealtimeHubBroadcast(t *testing.T) {
	hub := NewRealtimeHub()
	conn := dialTestHub(t, hub, 7)

	hub.Broadcast(7, EventScheduleRecalculated, map[string]any{"schedule_id": 42})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventScheduleRecalculated, msg.Kind)
	assert.EqualValues(t, 42, msg.Payload["schedule_id"])
}

func TestRealtimeHubTargetsSingleUser(t *testing.T) {
	hub := NewRealtimeHub()
	conn := dialTestHub(t, hub, 7)

	// event for a different user must not reach this connection
	hub.Broadcast(8, EventNotificationSent, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected a read timeout, not a message")
}

// keepalive pings and broadcasts share one connection and must not
// interleave writes
func TestRealtimeHubConcurrentPingAndBroadcast(t *testing.T) {
	hub := NewRealtimeHub()
	conn := dialTestHub(t, hub, 7)

	// drain the client side so server writes never block
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hub.mu.RLock()
	var client *WSClient
	for c := range hub.clients[7] {
		client = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = client.Ping()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast(7, EventScheduleRecalculated, map[string]any{"schedule_id": i})
		}
	}()
	wg.Wait()
}

func TestRealtimeHubUnregister(t *testing.T) {
	hub := NewRealtimeHub()
	dialTestHub(t, hub, 7)

	hub.mu.RLock()
	var client *WSClient
	for c := range hub.clients[7] {
		client = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, client)

	hub.Unregister(client)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.clients)
}
