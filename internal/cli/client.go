package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/submessage"
	"github.com/corvino/widgetchat/internal/widgetview"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func apiURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func roomPath(room string, parts ...string) string {
	path := "/api/rooms/" + url.PathEscape(room)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// doJSON sends body (when non-nil) as JSON and decodes a response with the
// wanted status into out.
func doJSON(method, u string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, u, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func postMessage(server, room string, req protocol.SendRequest) (*protocol.Envelope, error) {
	var env protocol.Envelope
	if err := doJSON(http.MethodPost, apiURL(server, roomPath(room, "messages")), req, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func postSubmessage(server, room, messageID string, req protocol.SubmessageRequest) (*protocol.SubmessageEvent, error) {
	var event protocol.SubmessageEvent
	u := apiURL(server, roomPath(room, "messages", messageID, "submessages"))
	if err := doJSON(http.MethodPost, u, req, http.StatusCreated, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func getWidget(server, room, messageID string) (*widgetview.View, error) {
	var view widgetview.View
	u := apiURL(server, roomPath(room, "messages", messageID, "widget"))
	if err := doJSON(http.MethodGet, u, nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func getMessages(server, room string, after int64, limit int) (*protocol.MessageList, error) {
	var list protocol.MessageList
	u := apiURL(server, roomPath(room, "messages")+fmt.Sprintf("?after=%d&limit=%d", after, limit))
	if err := doJSON(http.MethodGet, u, nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func getLatestMessages(server, room string, n int) (*protocol.MessageList, error) {
	var list protocol.MessageList
	u := apiURL(server, roomPath(room, "messages", "latest")+fmt.Sprintf("?n=%d", n))
	if err := doJSON(http.MethodGet, u, nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func getParticipants(server, room string) (*protocol.ParticipantList, error) {
	var list protocol.ParticipantList
	if err := doJSON(http.MethodGet, apiURL(server, roomPath(room, "participants")), nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func getRooms(server string) (*protocol.RoomList, error) {
	var list protocol.RoomList
	if err := doJSON(http.MethodGet, apiURL(server, "/api/rooms"), nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func getHealth(server string) (*protocol.HealthResponse, error) {
	var health protocol.HealthResponse
	if err := doJSON(http.MethodGet, apiURL(server, "/api/health"), nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// senderIDOf returns the numeric id the room assigned to name, or false if
// name has not posted or connected yet.
func senderIDOf(server, room, name string) (int64, bool, error) {
	list, err := getParticipants(server, room)
	if err != nil {
		return 0, false, err
	}
	for _, p := range list.Participants {
		if p.Name == name {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

// formatPlain formats an envelope for human-readable output.
func formatPlain(env protocol.Envelope) string {
	var b strings.Builder
	ts := env.Timestamp.Local().Format("15:04:05")
	fmt.Fprintf(&b, "[#%d %s] %s", env.SeqNum, ts, env.Sender)

	if to := env.Metadata["to"]; to != "" {
		fmt.Fprintf(&b, " → %s", to)
	}

	switch env.Type {
	case protocol.TypeCode:
		fmt.Fprintf(&b, " shared code")
		if env.Payload.FilePath != "" {
			fmt.Fprintf(&b, " (%s)", env.Payload.FilePath)
		}
		if env.Payload.Language != "" {
			fmt.Fprintf(&b, " [%s]", env.Payload.Language)
		}
		fmt.Fprintf(&b, ":\n```%s\n%s\n```", env.Payload.Language, env.Payload.Code)
	case protocol.TypeDiff:
		fmt.Fprintf(&b, " shared diff")
		if env.Payload.FilePath != "" {
			fmt.Fprintf(&b, " (%s)", env.Payload.FilePath)
		}
		fmt.Fprintf(&b, ":\n%s", env.Payload.Diff)
	case protocol.TypeSystem:
		fmt.Fprintf(&b, " --- %s", env.Payload.Text)
	default:
		fmt.Fprintf(&b, ": %s", env.Payload.Text)
	}

	if len(env.Submessages) > 0 {
		if view, err := widgetview.Decode(env.Submessages); err == nil {
			fmt.Fprintf(&b, "\n    %s [id %s]", view.Summary(), env.ID)
		}
	}
	return b.String()
}

// formatSubmessage formats a live submessage event. The item is shown
// without its poll context; use "poll show" for the decoded list.
func formatSubmessage(event protocol.SubmessageEvent) string {
	prefix := fmt.Sprintf("  ↳ %s #%d", shortID(event.MessageID), event.Index)
	item, err := submessage.DecodeEnvelope(event.Submessage)
	if err != nil {
		return prefix + " (" + err.Error() + ")"
	}
	return fmt.Sprintf("%s sender %d: %s", prefix, item.SenderID, item.Content)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ANSI color codes for sender coloring.
var senderColors = []string{
	"\033[36m", // Cyan
	"\033[32m", // Green
	"\033[33m", // Yellow
	"\033[35m", // Magenta
	"\033[34m", // Blue
	"\033[31m", // Red
	"\033[96m", // Bright Cyan
	"\033[92m", // Bright Green
}

const ansiReset = "\033[0m"

// senderColor returns a deterministic ANSI color for a sender name.
func senderColor(name string) string {
	var h uint32
	for _, c := range name {
		h = h*31 + uint32(c)
	}
	return senderColors[h%uint32(len(senderColors))]
}

// formatColor wraps formatPlain with ANSI color on the sender name.
func formatColor(env protocol.Envelope) string {
	plain := formatPlain(env)
	color := senderColor(env.Sender)
	return strings.Replace(plain, "] "+env.Sender, "] "+color+env.Sender+ansiReset, 1)
}
