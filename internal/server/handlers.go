package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/corvino/widgetchat/internal/synopsis"
	"github.com/corvino/widgetchat/internal/widgetview"
)

// Handlers holds references needed by HTTP handlers.
type Handlers struct {
	Hub       *Hub
	StartTime time.Time
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.StartTime)
	resp := protocol.HealthResponse{
		Status:    "ok",
		Uptime:    uptime.Round(time.Second).String(),
		UptimeSec: uptime.Seconds(),
		Rooms:     h.Hub.RoomCount(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRooms handles GET /api/rooms.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	snapshots := h.Hub.ListRooms()
	rooms := make([]protocol.RoomInfo, len(snapshots))
	for i, s := range snapshots {
		rooms[i] = protocol.RoomInfo{
			Name:         s.Name,
			Clients:      s.Clients,
			MessageCount: s.MessageCount,
			LastSeq:      s.LastSeq,
		}
	}
	writeJSON(w, http.StatusOK, protocol.RoomList{Rooms: rooms})
}

// SendMessage handles POST /api/rooms/{room}/messages.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}

	var req protocol.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Sender == "" {
		writeError(w, http.StatusBadRequest, "sender required")
		return
	}
	if req.Type == "" {
		req.Type = protocol.TypeText
	}

	room := h.Hub.GetOrCreateRoom(roomName)
	if len(req.Widget) > 0 {
		env, err := room.AddWidgetMessage(req.Sender, req.Payload, req.Metadata, req.Widget)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, env)
		return
	}
	env := room.AddMessage(req.Sender, req.Type, req.Payload, req.Metadata)
	writeJSON(w, http.StatusCreated, env)
}

// GetMessages handles GET /api/rooms/{room}/messages?after={seq}&limit={n}.
func (h *Handlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}

	room := h.Hub.GetRoom(roomName)
	if room == nil {
		writeJSON(w, http.StatusOK, protocol.MessageList{Room: roomName, Messages: []protocol.Envelope{}, Count: 0})
		return
	}

	after := int64(0)
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after parameter")
			return
		}
		after = n
	}

	limit, ok := intParam(w, r, "limit", 100)
	if !ok {
		return
	}

	msgs := room.MessagesAfter(after, limit)
	if msgs == nil {
		msgs = []protocol.Envelope{}
	}
	writeJSON(w, http.StatusOK, protocol.MessageList{Room: roomName, Messages: msgs, Count: len(msgs)})
}

// LatestMessages handles GET /api/rooms/{room}/messages/latest?n={count}.
func (h *Handlers) LatestMessages(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}

	room := h.Hub.GetRoom(roomName)
	if room == nil {
		writeJSON(w, http.StatusOK, protocol.MessageList{Room: roomName, Messages: []protocol.Envelope{}, Count: 0})
		return
	}

	n, ok := intParam(w, r, "n", 10)
	if !ok {
		return
	}

	msgs := room.LatestMessages(n)
	if msgs == nil {
		msgs = []protocol.Envelope{}
	}
	writeJSON(w, http.StatusOK, protocol.MessageList{Room: roomName, Messages: msgs, Count: len(msgs)})
}

// AddSubmessage handles POST /api/rooms/{room}/messages/{id}/submessages.
func (h *Handlers) AddSubmessage(w http.ResponseWriter, r *http.Request) {
	room, messageID, ok := h.messageRoom(w, r)
	if !ok {
		return
	}

	var req protocol.SubmessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Sender == "" {
		writeError(w, http.StatusBadRequest, "sender required")
		return
	}
	msgType := submessage.MsgTypeWidget
	if req.MsgType != "" {
		msgType = submessage.ParseMsgType(req.MsgType)
	}

	event, err := room.AddSubmessage(messageID, req.Sender, msgType, req.Content)
	switch {
	case errors.Is(err, ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		slog.Error("add submessage", "room", room.name, "message_id", messageID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, event)
	}
}

// GetSubmessages handles GET /api/rooms/{room}/messages/{id}/submessages.
func (h *Handlers) GetSubmessages(w http.ResponseWriter, r *http.Request) {
	room, messageID, ok := h.messageRoom(w, r)
	if !ok {
		return
	}
	items, err := room.Submessages(messageID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, protocol.SubmessageList{Room: room.name, MessageID: messageID, Submessages: items})
}

// GetWidget handles GET /api/rooms/{room}/messages/{id}/widget.
func (h *Handlers) GetWidget(w http.ResponseWriter, r *http.Request) {
	room, messageID, ok := h.messageRoom(w, r)
	if !ok {
		return
	}
	items, err := room.Submessages(messageID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	view, err := widgetview.Decode(items)
	if err != nil {
		writeError(w, http.StatusNotFound, "message has no widget")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Synopsis handles GET /api/rooms/{room}/synopsis?n={count}.
func (h *Handlers) Synopsis(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}
	n, ok := intParam(w, r, "n", defaultMaxHistory)
	if !ok {
		return
	}
	var msgs []protocol.Envelope
	if room := h.Hub.GetRoom(roomName); room != nil {
		msgs = room.LatestMessages(n)
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, synopsis.Build(roomName, msgs))
}

// HandleWS handles WS /ws/{room}?sender={name}&mode={legacy|events}.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}
	sender := r.URL.Query().Get("sender")
	if sender == "" {
		sender = "anonymous"
	}
	ServeWS(h.Hub, w, r, roomName, sender)
}

// ListParticipants handles GET /api/rooms/{room}/participants.
func (h *Handlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}

	room := h.Hub.GetRoom(roomName)
	if room == nil {
		writeJSON(w, http.StatusOK, protocol.ParticipantList{Room: roomName, Participants: []protocol.ParticipantInfo{}})
		return
	}

	participants := room.ListParticipants()
	writeJSON(w, http.StatusOK, protocol.ParticipantList{Room: roomName, Participants: participants})
}

// messageRoom resolves the room and message id path values, writing a 404
// when the room does not exist.
func (h *Handlers) messageRoom(w http.ResponseWriter, r *http.Request) (*Room, string, bool) {
	roomName := r.PathValue("room")
	messageID := r.PathValue("id")
	if roomName == "" || messageID == "" {
		writeError(w, http.StatusBadRequest, "room name and message id required")
		return nil, "", false
	}
	room := h.Hub.GetRoom(roomName)
	if room == nil {
		writeError(w, http.StatusNotFound, ErrMessageNotFound.Error())
		return nil, "", false
	}
	return room, messageID, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s parameter", name))
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
