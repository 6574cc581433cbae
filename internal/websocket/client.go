package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Scanners only send small control messages
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Scanners are handhelds on the warehouse LAN and boards served from other hosts
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Device id after SCANNER_IDENTIFY, a generated web_ id before
	ID string
}

// inbound is what scanners may send
type inbound struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"deviceId,omitempty"`
	MsgID    string          `json:"msgId,omitempty"`
	Code     string          `json:"code,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		enqueue(c.hub, c.hub.unregister, c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	// The hub owns c.ID once the pumps run
	deviceID := c.ID
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WS error: %v", err)
			}
			break
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "SCANNER_IDENTIFY":
			if msg.DeviceID == "" {
				continue
			}
			deviceID = msg.DeviceID
			enqueue(c.hub, c.hub.identify, rename{client: c, id: msg.DeviceID, msgID: msg.MsgID})
		case EventScan:
			// Live scans are relayed so boards can follow a worker
			c.hub.Publish(EventScan, map[string]string{"deviceId": deviceID, "code": msg.Code})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and registers the connection as an anonymous listener
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WS upgrade failed: %v", err)
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 64), ID: "web_" + uuid.New().String()}
	if !enqueue(hub, hub.register, client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
