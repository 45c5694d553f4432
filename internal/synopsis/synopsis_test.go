package synopsis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestBuildRendersPoll(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []protocol.Envelope{
		{Sender: "system", Type: protocol.TypeSystem, Timestamp: ts, Payload: protocol.NewTextPayload("alice joined the room")},
		{Sender: "alice", Type: protocol.TypeText, Timestamp: ts, Payload: protocol.NewTextPayload("lunch soon")},
		{
			Sender:    "alice",
			SenderID:  1,
			Type:      protocol.TypeWidget,
			Timestamp: ts,
			Payload:   protocol.NewPollPayload("Lunch?"),
			Submessages: []json.RawMessage{
				json.RawMessage(`{"sender_id":1,"msg_type":"widget","content":"{\"widget_type\":\"poll\",\"extra_data\":{\"question\":\"Lunch?\",\"options\":[\"Pizza\"]}}"}`),
				json.RawMessage(`{"sender_id":2,"msg_type":"widget","content":"{\"type\":\"new_option\",\"option\":\"Sushi\",\"idx\":0}"}`),
				json.RawMessage(`{"sender_id":1,"msg_type":"widget","content":"{\"type\":\"vote\",\"key\":\"2,0\",\"vote\":1}"}`),
				json.RawMessage(`{"sender_id":2,"msg_type":"widget","content":"{\"type\":\"vote\",\"key\":\"nope\",\"vote\":1}"}`),
			},
		},
	}

	out := BuildAt("lobby", messages, ts)

	require.True(t, strings.HasPrefix(out, "# WidgetChat Digest: "))
	require.Contains(t, out, "**Participants**: alice\n")
	require.Contains(t, out, "**Messages**: 3\n")
	require.Contains(t, out, `> poll "Lunch?" [Pizza] (3 events)`)
	require.Contains(t, out, "> - `canned,0` Pizza")
	require.Contains(t, out, `> - #1 sender 2 added option "Sushi" (2,0)`)
	require.Contains(t, out, "> - #2 sender 1 vote add 2,0")
	require.Contains(t, out, "> - #3 sender 2: error: ")

	// Arrival order is kept.
	require.Less(t, strings.Index(out, "#1 sender"), strings.Index(out, "#2 sender"))
	require.Less(t, strings.Index(out, "#2 sender"), strings.Index(out, "#3 sender"))
}

func TestBuildEmptyRoom(t *testing.T) {
	out := BuildAt("empty", nil, time.Now())
	require.Contains(t, out, "**Room**: empty\n")
	require.Contains(t, out, "**Messages**: 0\n")
	require.NotContains(t, out, "**Time range**")
}
