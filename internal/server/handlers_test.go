package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/widgetview"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func postPoll(t *testing.T, h http.Handler) protocol.Envelope {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/rooms/lobby/messages", protocol.SendRequest{
		Sender:  "alice",
		Type:    protocol.TypeWidget,
		Payload: protocol.NewPollPayload("Lunch?"),
		Widget:  json.RawMessage(`{"widget_type":"poll","extra_data":{"question":"Lunch?","options":["Pizza","Tacos"]}}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[protocol.Envelope](t, rec)
}

func TestSendMessage(t *testing.T) {
	h := NewHandler(NewHub(0))

	rec := doJSON(t, h, http.MethodPost, "/api/rooms/lobby/messages", protocol.SendRequest{
		Sender:  "alice",
		Payload: protocol.NewTextPayload("hello"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeBody[protocol.Envelope](t, rec)
	require.Equal(t, protocol.TypeText, env.Type)
	require.Equal(t, int64(1), env.SenderID)
	require.Empty(t, env.Submessages)

	rec = doJSON(t, h, http.MethodPost, "/api/rooms/lobby/messages", protocol.SendRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms/lobby/messages?after=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[protocol.MessageList](t, rec)
	require.Equal(t, 1, list.Count)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms/lobby/messages?limit=zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmessageEndpoints(t *testing.T) {
	h := NewHandler(NewHub(0))
	poll := postPoll(t, h)
	require.Len(t, poll.Submessages, 1)
	base := "/api/rooms/lobby/messages/" + poll.ID

	rec := doJSON(t, h, http.MethodPost, base+"/submessages", protocol.SubmessageRequest{
		Sender:  "bob",
		Content: `{"type":"new_option","option":"Sushi","idx":0}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	event := decodeBody[protocol.SubmessageEvent](t, rec)
	require.Equal(t, 1, event.Index)

	rec = doJSON(t, h, http.MethodPost, base+"/submessages", protocol.SubmessageRequest{
		Sender:  "alice",
		Content: `{"type":"vote","key":"2,0","vote":1}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/submessages", protocol.SubmessageRequest{
		Sender:  "alice",
		Content: `{"type":`,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/rooms/lobby/messages/nope/submessages", protocol.SubmessageRequest{
		Sender:  "alice",
		Content: `{}`,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, base+"/submessages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[protocol.SubmessageList](t, rec)
	require.Len(t, list.Submessages, 3)

	rec = doJSON(t, h, http.MethodGet, base+"/widget", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[widgetview.View](t, rec)
	require.Equal(t, "poll", view.Kind)
	require.Equal(t, []string{"canned,0", "canned,1", "2,0"}, view.OptionKeys)
	require.Len(t, view.Events, 2)
	require.Equal(t, "add", view.Events[1].Vote)
}

func TestWidgetOfPlainMessage(t *testing.T) {
	h := NewHandler(NewHub(0))
	rec := doJSON(t, h, http.MethodPost, "/api/rooms/lobby/messages", protocol.SendRequest{
		Sender:  "alice",
		Payload: protocol.NewTextPayload("hello"),
	})
	env := decodeBody[protocol.Envelope](t, rec)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms/lobby/messages/"+env.ID+"/widget", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms/other/messages/"+env.ID+"/widget", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSynopsisAndParticipants(t *testing.T) {
	h := NewHandler(NewHub(0))
	postPoll(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/rooms/lobby/synopsis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	require.Contains(t, rec.Body.String(), "Lunch?")

	rec = doJSON(t, h, http.MethodGet, "/api/rooms/lobby/participants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[protocol.ParticipantList](t, rec)
	require.Len(t, list.Participants, 1)
	require.Equal(t, int64(1), list.Participants[0].ID)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms", nil)
	rooms := decodeBody[protocol.RoomList](t, rec)
	require.Len(t, rooms.Rooms, 1)
	require.Equal(t, "lobby", rooms.Rooms[0].Name)
}
