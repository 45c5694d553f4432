package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// WebSocket client modes.
const (
	// ModeLegacy clients receive bare message envelopes only.
	ModeLegacy = "legacy"
	// ModeEvents clients receive protocol.ServerEvent frames, including
	// submessage events.
	ModeEvents = "events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents a WebSocket connection in a room.
type Client struct {
	room   *Room
	conn   *websocket.Conn
	send   chan protocol.ServerEvent
	sender string
	mode   string
}

// Send queues an event for delivery to this client.
func (c *Client) Send(event protocol.ServerEvent) {
	if c.mode != ModeEvents && event.Event != protocol.EventMessage {
		return
	}
	select {
	case c.send <- event:
	default:
		// Client too slow; drop message.
	}
}

// inboundFrame is what a client may write: a message to post, or a
// submessage to append when MessageID is set.
type inboundFrame struct {
	protocol.SendRequest
	MessageID string `json:"message_id,omitempty"`
	MsgType   string `json:"msg_type,omitempty"`
	Content   string `json:"content,omitempty"`
}

// readPump reads frames from the WebSocket and posts them to the room.
func (c *Client) readPump() {
	defer func() {
		c.room.UnregisterClient(c)
		c.room.UntrackParticipant(c.sender)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var frame inboundFrame
		err := c.conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read error", "room", c.room.name, "sender", c.sender, "error", err)
			}
			return
		}
		sender := frame.Sender
		if sender == "" {
			sender = c.sender
		}
		if frame.MessageID != "" {
			c.postSubmessage(sender, frame)
			continue
		}
		msgType := frame.Type
		if msgType == "" {
			msgType = protocol.TypeText
		}
		if len(frame.Widget) > 0 {
			if _, err := c.room.AddWidgetMessage(sender, frame.Payload, frame.Metadata, frame.Widget); err != nil {
				slog.Warn("ws widget message rejected", "room", c.room.name, "sender", sender, "error", err)
			}
			continue
		}
		c.room.AddMessage(sender, msgType, frame.Payload, frame.Metadata)
	}
}

func (c *Client) postSubmessage(sender string, frame inboundFrame) {
	msgType := submessage.MsgTypeWidget
	if frame.MsgType != "" {
		msgType = submessage.ParseMsgType(frame.MsgType)
	}
	if _, err := c.room.AddSubmessage(frame.MessageID, sender, msgType, frame.Content); err != nil {
		slog.Warn("ws submessage rejected",
			"room", c.room.name,
			"sender", sender,
			"message_id", frame.MessageID,
			"error", err,
		)
	}
}

// writePump sends events from the send channel to the WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var v any = event
			if c.mode != ModeEvents {
				// Legacy clients receive bare envelopes.
				v = event.Message
			}
			if err := c.conn.WriteJSON(v); err != nil {
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

// ServeWS upgrades an HTTP connection to WebSocket and registers the client.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, roomName, sender string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade error", "room", roomName, "error", err)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode != ModeEvents {
		mode = ModeLegacy
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		role = "user"
	}

	room := hub.GetOrCreateRoom(roomName)
	client := &Client{
		room:   room,
		conn:   conn,
		send:   make(chan protocol.ServerEvent, 256),
		sender: sender,
		mode:   mode,
	}
	room.RegisterClient(client)
	id := room.TrackParticipant(sender, role)
	slog.Info("ws client joined", "room", roomName, "sender", sender, "sender_id", id, "mode", mode)

	// Announce join.
	room.AddMessage("system", protocol.TypeSystem, protocol.Payload{
		Text: sender + " joined the room",
	}, nil)

	go client.writePump()
	go client.readPump()
}
