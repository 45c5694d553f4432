package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/server"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/corvino/widgetchat/internal/widgetview"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(server.NewHandler(server.NewHub(0)))
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, url, sender string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-s", url, "-r", "lobby", "-n", sender}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestPollCommands(t *testing.T) {
	url := newTestServer(t)

	id, err := run(t, url, "alice", "poll", "create", "Lunch?", "Pizza", "Tacos")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	key, err := run(t, url, "bob", "poll", "option", id, "Sushi")
	require.NoError(t, err)
	require.Equal(t, "2,0", key)

	key, err = run(t, url, "bob", "poll", "option", id, "Ramen")
	require.NoError(t, err)
	require.Equal(t, "2,1", key)

	_, err = run(t, url, "alice", "poll", "vote", id, "2,0")
	require.NoError(t, err)
	_, err = run(t, url, "alice", "poll", "vote", "--remove", id, "canned,1")
	require.NoError(t, err)

	_, err = run(t, url, "alice", "poll", "vote", id, "bogus")
	require.ErrorIs(t, err, submessage.ErrMalformedKeyShape)
	_, err = run(t, url, "alice", "poll", "vote", id, "9,9")
	require.ErrorIs(t, err, widgetview.ErrUnknownOption)

	_, err = run(t, url, "alice", "poll", "question", id, "Dinner", "instead?")
	require.NoError(t, err)

	out, err := run(t, url, "carol", "poll", "show", id)
	require.NoError(t, err)
	require.Contains(t, out, `poll "Lunch?" [Pizza | Tacos] (5 events) (by sender 1)`)
	require.Contains(t, out, `#5 sender 1 changed the question to "Dinner instead?"`)
	require.Contains(t, out, "option keys: canned,0 canned,1 2,0 2,1")

	out, err = run(t, url, "carol", "poll", "show", "--json", id)
	require.NoError(t, err)
	var view widgetview.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Events, 5)
	require.Equal(t, "remove", view.Events[3].Vote)
}

func TestSendAndRecv(t *testing.T) {
	url := newTestServer(t)

	_, err := run(t, url, "alice", "send", "hello", "there")
	require.NoError(t, err)
	_, err = run(t, url, "", "send", "anonymous")
	require.ErrorIs(t, err, errNoSender)

	out, err := run(t, url, "bob", "recv")
	require.NoError(t, err)
	require.Contains(t, out, "alice: hello there")

	out, err = run(t, url, "bob", "recv", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"sender_id": 1`)

	_, err = run(t, url, "bob", "recv", "--format", "yaml")
	require.Error(t, err)
}

func TestInbox(t *testing.T) {
	url := newTestServer(t)
	_, err := run(t, url, "alice", "send", "first")
	require.NoError(t, err)

	flagServer, flagRoom = url, "lobby"
	seqPath := filepath.Join(t.TempDir(), seqFileName)
	require.NoError(t, writeSeqFile(seqPath, seqState{}))

	var out bytes.Buffer
	require.NoError(t, runInbox(&out, seqPath))
	require.Contains(t, out.String(), "alice: first")

	state, err := readSeqFile(seqPath)
	require.NoError(t, err)
	require.Equal(t, int64(1), state.Seq)

	out.Reset()
	require.NoError(t, runInbox(&out, seqPath))
	require.Empty(t, out.String())
}

func TestStatusAndRooms(t *testing.T) {
	url := newTestServer(t)
	_, err := run(t, url, "alice", "send", "hi")
	require.NoError(t, err)

	out, err := run(t, url, "alice", "status")
	require.NoError(t, err)
	require.Contains(t, out, "is ok")
	require.Regexp(t, `1\s+alice`, out)

	out, err = run(t, url, "alice", "rooms", "--json")
	require.NoError(t, err)
	var list struct {
		Rooms []struct {
			Name string `json:"name"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Rooms, 1)
	require.Equal(t, "lobby", list.Rooms[0].Name)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcherPrintsEvents(t *testing.T) {
	url := newTestServer(t)
	var out, status syncBuffer
	w := &watcher{url: buildWSURL(url, "lobby", "carol"), out: &out, status: &status}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.watch(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "carol joined the room")
	}, 5*time.Second, 10*time.Millisecond)
	require.Contains(t, status.String(), "connected")

	env, err := postMessage(url, "lobby", protocol.SendRequest{Sender: "alice", Type: protocol.TypeText, Payload: protocol.NewTextPayload("hi")})
	require.NoError(t, err)
	_, err = postSubmessage(url, "lobby", env.ID, protocol.SubmessageRequest{Sender: "alice", Content: `{"type":"question","question":"?"}`})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "alice: hi") && strings.Contains(s, "↳")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
