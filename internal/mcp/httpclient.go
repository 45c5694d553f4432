package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/widgetview"
)

// HTTPClient talks to the WidgetChat server REST API on behalf of one
// sender in one room.
type HTTPClient struct {
	BaseURL string
	Room    string
	Sender  string
	client  *http.Client
}

// NewHTTPClient creates a new HTTP client for the MCP tools.
func NewHTTPClient(baseURL, room, sender string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Room:    room,
		Sender:  sender,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) url(parts ...string) string {
	path := c.BaseURL + "/api/rooms/" + url.PathEscape(c.Room)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (c *HTTPClient) do(ctx context.Context, method, u string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// SendMessage posts a message to the room.
func (c *HTTPClient) SendMessage(ctx context.Context, text, msgType string, metadata map[string]string) (*protocol.Envelope, error) {
	if msgType == "" {
		msgType = protocol.TypeText
	}
	req := protocol.SendRequest{
		Sender:   c.Sender,
		Type:     msgType,
		Payload:  protocol.NewTextPayload(text),
		Metadata: metadata,
	}
	var env protocol.Envelope
	if err := c.do(ctx, http.MethodPost, c.url("messages"), req, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// CreatePoll posts a poll message whose first submessage is the poll
// definition.
func (c *HTTPClient) CreatePoll(ctx context.Context, question string, options []string) (*protocol.Envelope, error) {
	content, err := widgetview.PollContent(question, options)
	if err != nil {
		return nil, err
	}
	req := protocol.SendRequest{
		Sender:  c.Sender,
		Type:    protocol.TypeWidget,
		Payload: protocol.NewPollPayload(question),
		Widget:  json.RawMessage(content),
	}
	var env protocol.Envelope
	if err := c.do(ctx, http.MethodPost, c.url("messages"), req, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// AppendSubmessage appends a widget submessage to a message.
func (c *HTTPClient) AppendSubmessage(ctx context.Context, messageID, content string) (*protocol.SubmessageEvent, error) {
	req := protocol.SubmessageRequest{Sender: c.Sender, Content: content}
	var event protocol.SubmessageEvent
	if err := c.do(ctx, http.MethodPost, c.url("messages", messageID, "submessages"), req, http.StatusCreated, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Widget fetches the decoded widget view of a message.
func (c *HTTPClient) Widget(ctx context.Context, messageID string) (*widgetview.View, error) {
	var view widgetview.View
	if err := c.do(ctx, http.MethodGet, c.url("messages", messageID, "widget"), nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetMessages fetches messages from the room.
func (c *HTTPClient) GetMessages(ctx context.Context, latest int, after int64) (*protocol.MessageList, error) {
	var u string
	if latest > 0 {
		u = c.url("messages", "latest") + fmt.Sprintf("?n=%d", latest)
	} else {
		u = c.url("messages") + fmt.Sprintf("?after=%d&limit=100", after)
	}
	var list protocol.MessageList
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListParticipants lists all participants in the room.
func (c *HTTPClient) ListParticipants(ctx context.Context) (*protocol.ParticipantList, error) {
	var list protocol.ParticipantList
	if err := c.do(ctx, http.MethodGet, c.url("participants"), nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SenderID returns the numeric id the room assigned to this client's
// sender, or 0 if the sender has not posted yet.
func (c *HTTPClient) SenderID(ctx context.Context) (int64, error) {
	list, err := c.ListParticipants(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range list.Participants {
		if p.Name == c.Sender {
			return p.ID, nil
		}
	}
	return 0, nil
}
