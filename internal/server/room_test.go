package server

import (
	"encoding/json"
	"testing"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/stretchr/testify/require"
)

func TestRoomSenderIDs(t *testing.T) {
	room := NewRoom("lobby", 10)

	require.Equal(t, int64(1), room.SenderID("alice"))
	require.Equal(t, int64(2), room.SenderID("bob"))
	require.Equal(t, int64(1), room.SenderID("alice"))

	env := room.AddMessage("carol", protocol.TypeText, protocol.NewTextPayload("hi"), nil)
	require.Equal(t, int64(3), env.SenderID)

	require.Equal(t, int64(2), room.TrackParticipant("bob", "agent"))

	participants := room.ListParticipants()
	require.Len(t, participants, 3)
	require.Equal(t, "alice", participants[0].Name)
	require.Equal(t, "bob", participants[1].Name)
	require.True(t, participants[1].Connected)
	require.Equal(t, "agent", participants[1].Role)
	require.False(t, participants[2].Connected)
}

func TestRoomWidgetMessage(t *testing.T) {
	room := NewRoom("lobby", 10)
	widget := json.RawMessage(`{"widget_type": "poll",
		"extra_data": {"question": "Lunch?", "options": ["Pizza", "Tacos"]}}`)

	env, err := room.AddWidgetMessage("alice", protocol.NewPollPayload("Lunch?"), nil, widget)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeWidget, env.Type)
	require.Len(t, env.Submessages, 1)

	item, err := submessage.DecodeEnvelope(env.Submessages[0])
	require.NoError(t, err)
	require.Equal(t, env.SenderID, item.SenderID)
	require.Equal(t, submessage.MsgTypeWidget, item.MsgType)

	def, err := item.Definition()
	require.NoError(t, err)
	require.Equal(t, submessage.PollDefinition{Question: "Lunch?", Options: []string{"Pizza", "Tacos"}}, def)

	_, err = room.AddWidgetMessage("alice", protocol.Payload{}, nil, json.RawMessage(`{`))
	require.ErrorIs(t, err, ErrInvalidContent)
}

func TestRoomAddSubmessage(t *testing.T) {
	room := NewRoom("lobby", 10)
	env, err := room.AddWidgetMessage("alice", protocol.NewPollPayload("Lunch?"), nil,
		json.RawMessage(`{"widget_type":"poll","extra_data":{"question":"Lunch?","options":["Pizza"]}}`))
	require.NoError(t, err)

	event, err := room.AddSubmessage(env.ID, "bob", submessage.MsgTypeWidget, `{"type":"new_option","option":"Sushi","idx":0}`)
	require.NoError(t, err)
	require.Equal(t, 1, event.Index)
	require.Equal(t, env.ID, event.MessageID)

	// Malformed events are stored, not rejected.
	event, err = room.AddSubmessage(env.ID, "bob", submessage.MsgTypeWidget, `{"type":"vote","key":"x","vote":1}`)
	require.NoError(t, err)
	require.Equal(t, 2, event.Index)

	_, err = room.AddSubmessage(env.ID, "bob", submessage.MsgTypeWidget, `not json`)
	require.ErrorIs(t, err, ErrInvalidContent)

	_, err = room.AddSubmessage("missing", "bob", submessage.MsgTypeWidget, `{}`)
	require.ErrorIs(t, err, ErrMessageNotFound)

	items, err := room.Submessages(env.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	second, err := submessage.DecodeEnvelope(items[1])
	require.NoError(t, err)
	require.Equal(t, int64(2), second.SenderID)

	stored, ok := room.Message(env.ID)
	require.True(t, ok)
	require.Len(t, stored.Submessages, 3)
	// Copies handed out earlier do not see later items.
	require.Len(t, env.Submessages, 1)
}

func TestRoomHistoryTrim(t *testing.T) {
	room := NewRoom("lobby", 2)
	first := room.AddMessage("alice", protocol.TypeText, protocol.NewTextPayload("1"), nil)
	room.AddMessage("alice", protocol.TypeText, protocol.NewTextPayload("2"), nil)
	room.AddMessage("alice", protocol.TypeText, protocol.NewTextPayload("3"), nil)

	_, ok := room.Message(first.ID)
	require.False(t, ok)
	_, err := room.AddSubmessage(first.ID, "bob", submessage.MsgTypeWidget, `{}`)
	require.ErrorIs(t, err, ErrMessageNotFound)

	msgs := room.MessagesAfter(0, 0)
	require.Len(t, msgs, 2)
	require.Equal(t, int64(2), msgs[0].SeqNum)

	msgs = room.MessagesAfter(2, 10)
	require.Len(t, msgs, 1)
	require.Equal(t, "3", msgs[0].Payload.Text)

	latest := room.LatestMessages(5)
	require.Len(t, latest, 2)
	require.Equal(t, int64(3), room.Snapshot().LastSeq)
}
