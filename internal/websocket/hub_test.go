package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPublishReachesAllClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ServeWs(hub, w, r) }))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Publish(EventPositionAssigned, map[string]string{"lotCode": "LOT-01"})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventPositionAssigned, ev["type"])
		assert.Equal(t, "LOT-01", ev["payload"].(map[string]interface{})["lotCode"])
	}
}

func TestIdentifyReplacesOldConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ServeWs(hub, w, r) }))
	defer srv.Close()

	first := dial(t, srv)
	waitForClients(t, hub, 1)
	require.NoError(t, first.WriteJSON(map[string]string{"type": "SCANNER_IDENTIFY", "deviceId": "hh-1", "msgId": "m1"}))
	ack := readEvent(t, first)
	assert.Equal(t, "ACK", ack["type"])
	assert.Equal(t, "m1", ack["msgId"])

	second := dial(t, srv)
	waitForClients(t, hub, 2)
	require.NoError(t, second.WriteJSON(map[string]string{"type": "SCANNER_IDENTIFY", "deviceId": "hh-1", "msgId": "m2"}))
	readEvent(t, second)

	waitForClients(t, hub, 1)
	assert.True(t, hub.SendToDevice("hh-1", map[string]string{"type": "PING"}))
	assert.False(t, hub.SendToDevice("hh-2", map[string]string{"type": "PING"}))
}
