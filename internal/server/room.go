package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/corvino/widgetchat/internal/widgetview"
	"github.com/google/uuid"
)

var (
	// ErrMessageNotFound is returned for submessage operations on a message
	// that is unknown or has been trimmed from history.
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidContent is returned when submessage content is not JSON.
	ErrInvalidContent = errors.New("submessage content must be valid JSON")
)

// RoomSnapshot holds a point-in-time view of a room for listing.
type RoomSnapshot struct {
	Name         string
	Clients      int
	MessageCount int
	LastSeq      int64
}

// participantState tracks a participant known to the room.
type participantState struct {
	ID        int64
	Name      string
	Role      string
	JoinedAt  time.Time
	Connected bool
}

// Room holds messages, their submessages, and connected WebSocket clients.
type Room struct {
	name       string
	maxHistory int

	mu           sync.RWMutex
	messages     []*protocol.Envelope
	byID         map[string]*protocol.Envelope
	seq          int64
	clients      map[*Client]struct{}
	participants map[string]*participantState
	nextSenderID int64
}

// NewRoom creates a room with the given name and history limit.
func NewRoom(name string, maxHistory int) *Room {
	return &Room{
		name:         name,
		maxHistory:   maxHistory,
		messages:     make([]*protocol.Envelope, 0, 64),
		byID:         make(map[string]*protocol.Envelope),
		clients:      make(map[*Client]struct{}),
		participants: make(map[string]*participantState),
	}
}

// AddMessage stores a message, assigns server-side fields, broadcasts to WS clients, and returns the envelope.
func (r *Room) AddMessage(sender, msgType string, payload protocol.Payload, metadata map[string]string) protocol.Envelope {
	env, _ := r.addMessage(sender, msgType, payload, metadata, nil)
	return env
}

// AddWidgetMessage stores a message whose first submessage is the widget
// definition content, authored by the message sender.
func (r *Room) AddWidgetMessage(sender string, payload protocol.Payload, metadata map[string]string, content json.RawMessage) (protocol.Envelope, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, content); err != nil {
		return protocol.Envelope{}, ErrInvalidContent
	}
	return r.addMessage(sender, protocol.TypeWidget, payload, metadata, compact.Bytes())
}

func (r *Room) addMessage(sender, msgType string, payload protocol.Payload, metadata map[string]string, widget []byte) (protocol.Envelope, error) {
	r.mu.Lock()
	r.seq++
	env := &protocol.Envelope{
		ID:        uuid.New().String(),
		Room:      r.name,
		Sender:    sender,
		SenderID:  r.senderIDLocked(sender),
		Timestamp: time.Now().UTC(),
		Type:      msgType,
		Payload:   payload,
		SeqNum:    r.seq,
		Metadata:  metadata,
	}
	if widget != nil {
		item, err := submessage.EncodeEnvelope(submessage.Envelope{
			SenderID: env.SenderID,
			MsgType:  submessage.MsgTypeWidget,
			Content:  string(widget),
		})
		if err != nil {
			r.seq--
			r.mu.Unlock()
			return protocol.Envelope{}, fmt.Errorf("encode widget: %w", err)
		}
		env.Submessages = []json.RawMessage{item}
	}
	r.messages = append(r.messages, env)
	r.byID[env.ID] = env
	// Trim if over max history.
	if len(r.messages) > r.maxHistory {
		excess := len(r.messages) - r.maxHistory
		for _, old := range r.messages[:excess] {
			delete(r.byID, old.ID)
		}
		r.messages = slices.Clone(r.messages[excess:])
	}
	out := snapshot(env)
	clients := r.clientsLocked()
	r.mu.Unlock()

	if widget != nil {
		logDecodeProblems(r.name, out.ID, out.Submessages, 0)
	}

	event := protocol.ServerEvent{Event: protocol.EventMessage, Message: &out}
	for _, c := range clients {
		c.Send(event)
	}
	return out, nil
}

// AddSubmessage appends a submessage to an existing message and broadcasts
// it. The server enforces no schema beyond content being JSON; a submessage
// that does not decode is stored anyway and logged.
func (r *Room) AddSubmessage(messageID, sender string, msgType submessage.MsgType, content string) (protocol.SubmessageEvent, error) {
	if !json.Valid([]byte(content)) {
		return protocol.SubmessageEvent{}, ErrInvalidContent
	}

	r.mu.Lock()
	env, ok := r.byID[messageID]
	if !ok {
		r.mu.Unlock()
		return protocol.SubmessageEvent{}, ErrMessageNotFound
	}
	item, err := submessage.EncodeEnvelope(submessage.Envelope{
		SenderID: r.senderIDLocked(sender),
		MsgType:  msgType,
		Content:  content,
	})
	if err != nil {
		r.mu.Unlock()
		return protocol.SubmessageEvent{}, fmt.Errorf("encode submessage: %w", err)
	}
	env.Submessages = append(env.Submessages, item)
	index := len(env.Submessages) - 1
	items := slices.Clone(env.Submessages)
	clients := r.clientsLocked()
	r.mu.Unlock()

	logDecodeProblems(r.name, messageID, items, index)

	event := protocol.SubmessageEvent{
		Room:       r.name,
		MessageID:  messageID,
		Index:      index,
		Submessage: item,
	}
	for _, c := range clients {
		c.Send(protocol.ServerEvent{Event: protocol.EventSubmessage, Submessage: &event})
	}
	return event, nil
}

// Submessages returns the submessages of a message in arrival order.
func (r *Room) Submessages(messageID string) ([]json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.byID[messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return slices.Clone(env.Submessages), nil
}

// Message returns a copy of the message with the given id.
func (r *Room) Message(messageID string) (protocol.Envelope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.byID[messageID]
	if !ok {
		return protocol.Envelope{}, false
	}
	return snapshot(env), true
}

// MessagesAfter returns messages with SeqNum > after, up to limit.
func (r *Room) MessagesAfter(after int64, limit int) []protocol.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Seq numbers are monotonic.
	start, _ := slices.BinarySearchFunc(r.messages, after+1, func(env *protocol.Envelope, seq int64) int {
		switch {
		case env.SeqNum < seq:
			return -1
		case env.SeqNum > seq:
			return 1
		default:
			return 0
		}
	})
	result := r.messages[start:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return snapshotAll(result)
}

// LatestMessages returns the last n messages.
func (r *Room) LatestMessages(n int) []protocol.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || len(r.messages) == 0 {
		return nil
	}
	start := max(len(r.messages)-n, 0)
	return snapshotAll(r.messages[start:])
}

// RegisterClient adds a WebSocket client to the room.
func (r *Room) RegisterClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

// UnregisterClient removes a WebSocket client from the room.
func (r *Room) UnregisterClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

// Snapshot returns a point-in-time summary of this room.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomSnapshot{
		Name:         r.name,
		Clients:      len(r.clients),
		MessageCount: len(r.messages),
		LastSeq:      r.seq,
	}
}

// SenderID returns the numeric id of a sender, assigning the next free id
// the first time a name is seen. Ids start at 1 and never change.
func (r *Room) SenderID(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.senderIDLocked(name)
}

func (r *Room) senderIDLocked(name string) int64 {
	if ps, ok := r.participants[name]; ok {
		return ps.ID
	}
	r.nextSenderID++
	r.participants[name] = &participantState{
		ID:       r.nextSenderID,
		Name:     name,
		Role:     "user",
		JoinedAt: time.Now().UTC(),
	}
	return r.nextSenderID
}

// TrackParticipant registers or updates a connected participant.
func (r *Room) TrackParticipant(name, role string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.senderIDLocked(name)
	ps := r.participants[name]
	ps.Connected = true
	ps.Role = role
	return id
}

// UntrackParticipant marks a participant as disconnected.
func (r *Room) UntrackParticipant(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ps, ok := r.participants[name]; ok {
		ps.Connected = false
	}
}

// ListParticipants returns info about all known participants ordered by id.
func (r *Room) ListParticipants() []protocol.ParticipantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.ParticipantInfo, 0, len(r.participants))
	for _, ps := range r.participants {
		out = append(out, protocol.ParticipantInfo{
			ID:        ps.ID,
			Name:      ps.Name,
			Role:      ps.Role,
			JoinedAt:  ps.JoinedAt,
			Connected: ps.Connected,
		})
	}
	slices.SortFunc(out, func(a, b protocol.ParticipantInfo) int {
		return int(a.ID - b.ID)
	})
	return out
}

func (r *Room) clientsLocked() []*Client {
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

func snapshot(env *protocol.Envelope) protocol.Envelope {
	out := *env
	out.Submessages = slices.Clone(env.Submessages)
	return out
}

func snapshotAll(envs []*protocol.Envelope) []protocol.Envelope {
	if len(envs) == 0 {
		return nil
	}
	out := make([]protocol.Envelope, len(envs))
	for i, env := range envs {
		out[i] = snapshot(env)
	}
	return out
}

// logDecodeProblems warns when the submessage at index does not decode in
// the context of its list.
func logDecodeProblems(room, messageID string, items []json.RawMessage, index int) {
	view, err := widgetview.Decode(items)
	if err != nil {
		return
	}
	var problem, kind string
	switch {
	case index == 0 || view.Error != "":
		problem, kind = view.Error, view.ErrorKind
	case index-1 < len(view.Events):
		problem, kind = view.Events[index-1].Error, view.Events[index-1].ErrorKind
	}
	if problem == "" {
		return
	}
	slog.Warn("stored undecodable submessage",
		"room", room,
		"message_id", messageID,
		"index", index,
		"kind", kind,
		"error", problem,
	)
}
