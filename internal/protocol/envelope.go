package protocol

import (
	"encoding/json"
	"time"
)

// Envelope wraps a message with metadata assigned by the server.
//
// Submessages holds the message's submessage wire items in arrival order.
// They stay raw here so that one malformed item never prevents decoding the
// rest of a message list; use the widgetview package to read them.
type Envelope struct {
	ID          string            `json:"id"`
	Room        string            `json:"room"`
	Sender      string            `json:"sender"`
	SenderID    int64             `json:"sender_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Type        string            `json:"type"`
	Payload     Payload           `json:"payload"`
	SeqNum      int64             `json:"seq"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Submessages []json.RawMessage `json:"submessages,omitempty"`
}

// SendRequest is the JSON body for POST /api/rooms/{room}/messages.
//
// Widget, when set, is the content of the message's first submessage (the
// widget definition) and is attached on behalf of Sender.
type SendRequest struct {
	Sender   string            `json:"sender"`
	Type     string            `json:"type"`
	Payload  Payload           `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Widget   json.RawMessage   `json:"widget,omitempty"`
}

// SubmessageRequest is the JSON body for
// POST /api/rooms/{room}/messages/{id}/submessages.
type SubmessageRequest struct {
	Sender  string `json:"sender"`
	MsgType string `json:"msg_type,omitempty"`
	Content string `json:"content"`
}

// SubmessageList is the response for GET /api/rooms/{room}/messages/{id}/submessages.
type SubmessageList struct {
	Room        string            `json:"room"`
	MessageID   string            `json:"message_id"`
	Submessages []json.RawMessage `json:"submessages"`
}

// MessageList is the response for message list endpoints.
type MessageList struct {
	Room     string     `json:"room"`
	Messages []Envelope `json:"messages"`
	Count    int        `json:"count"`
}

// RoomInfo describes an active room.
type RoomInfo struct {
	Name         string `json:"name"`
	Clients      int    `json:"clients"`
	MessageCount int    `json:"message_count"`
	LastSeq      int64  `json:"last_seq"`
}

// RoomList is the response for GET /api/rooms.
type RoomList struct {
	Rooms []RoomInfo `json:"rooms"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status    string  `json:"status"`
	Uptime    string  `json:"uptime"`
	UptimeSec float64 `json:"uptime_seconds"`
	Rooms     int     `json:"rooms"`
}

// Server event names.
const (
	EventMessage    = "message"
	EventSubmessage = "submessage"
)

// ServerEvent is the discriminated union sent to WebSocket clients that
// connect with mode=events.
type ServerEvent struct {
	Event      string           `json:"event"`
	Message    *Envelope        `json:"message,omitempty"`
	Submessage *SubmessageEvent `json:"submessage,omitempty"`
}

// SubmessageEvent announces a submessage appended to an existing message.
type SubmessageEvent struct {
	Room       string          `json:"room"`
	MessageID  string          `json:"message_id"`
	Index      int             `json:"index"`
	Submessage json.RawMessage `json:"submessage"`
}

// ParticipantInfo describes a known participant. ID is the numeric sender
// id the room assigned to them; it is what submessages and option keys
// refer to.
type ParticipantInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	Connected bool      `json:"connected"`
}

// ParticipantList is the response for participant listing endpoints.
type ParticipantList struct {
	Room         string            `json:"room"`
	Participants []ParticipantInfo `json:"participants"`
}
