package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/widgetview"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// prop is a shorthand for building a JSON Schema property.
func prop(typ, desc string) any {
	return map[string]any{
		"type":        typ,
		"description": desc,
	}
}

func propEnum(typ, desc string, enum []string) any {
	vals := make([]any, len(enum))
	for i, v := range enum {
		vals[i] = v
	}
	return map[string]any{
		"type":        typ,
		"description": desc,
		"enum":        vals,
	}
}

func propArray(itemType, desc string) any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": itemType},
	}
}

// RegisterTools adds all WidgetChat tools to the MCP server.
func RegisterTools(srv *mcpserver.MCPServer, client *HTTPClient) {
	srv.AddTool(mcplib.Tool{
		Name:        "send_message",
		Description: "Send a message to the chatroom. Set `to` to address it to one participant; everyone in the room still sees it.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": prop("string", "The message text to send"),
				"type": propEnum("string", "Message type: text (default), code, or diff", []string{"text", "code", "diff"}),
				"to":   prop("string", "Optional: recipient name"),
			},
			Required: []string{"text"},
		},
	}, makeSendMessageHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "get_messages",
		Description: "Read recent messages from the chatroom. Poll messages include a one-line summary and their message id.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"latest": prop("number", "Get the last N messages (default: 20)"),
				"after":  prop("number", "Get messages after this sequence number"),
			},
		},
	}, makeGetMessagesHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "list_participants",
		Description: "List all participants of the room with their numeric sender ids.",
		InputSchema: mcplib.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, makeListParticipantsHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "create_poll",
		Description: "Post a poll to the chatroom. Returns the message id used by the other poll tools.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"question": prop("string", "The poll question"),
				"options":  propArray("string", "Initial options; they get the keys canned,0, canned,1, ..."),
			},
			Required: []string{"question"},
		},
	}, makeCreatePollHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "add_poll_option",
		Description: "Add an option to a poll. Returns the new option's key.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"message_id": prop("string", "Id of the poll message"),
				"option":     prop("string", "The option text"),
			},
			Required: []string{"message_id", "option"},
		},
	}, makeAddPollOptionHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "edit_poll_question",
		Description: "Change the question of a poll.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"message_id": prop("string", "Id of the poll message"),
				"question":   prop("string", "The new question"),
			},
			Required: []string{"message_id", "question"},
		},
	}, makeEditPollQuestionHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "vote_poll",
		Description: "Vote for a poll option by key, or withdraw a vote with remove=true.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"message_id": prop("string", "Id of the poll message"),
				"key":        prop("string", "Option key, e.g. canned,0 or 7,0 (see show_poll)"),
				"remove":     prop("boolean", "Withdraw the vote instead of adding it"),
			},
			Required: []string{"message_id", "key"},
		},
	}, makeVotePollHandler(client))

	srv.AddTool(mcplib.Tool{
		Name:        "show_poll",
		Description: "Show a poll: its initial options with keys and every change made to it, in order.",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"message_id": prop("string", "Id of the poll message"),
				"json":       prop("boolean", "Return the decoded view as JSON"),
			},
			Required: []string{"message_id"},
		},
	}, makeShowPollHandler(client))
}

func makeSendMessageHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		text := request.GetString("text", "")
		msgType := request.GetString("type", protocol.TypeText)
		to := request.GetString("to", "")
		if text == "" {
			return mcplib.NewToolResultError("text is required"), nil
		}

		var metadata map[string]string
		if to != "" {
			metadata = map[string]string{"to": to}
		}

		env, err := client.SendMessage(ctx, text, msgType, metadata)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to send: %v", err)), nil
		}
		return mcplib.NewToolResultText(fmt.Sprintf("Message sent (seq #%d)", env.SeqNum)), nil
	}
}

func makeGetMessagesHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		latest := request.GetInt("latest", 20)
		after := int64(request.GetFloat("after", 0))
		if after > 0 {
			latest = 0
		}

		list, err := client.GetMessages(ctx, latest, after)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to get messages: %v", err)), nil
		}
		if len(list.Messages) == 0 {
			return mcplib.NewToolResultText("No messages found."), nil
		}

		var sb strings.Builder
		for _, env := range list.Messages {
			writeMessage(&sb, env)
			sb.WriteString("\n")
		}
		return mcplib.NewToolResultText(sb.String()), nil
	}
}

func writeMessage(sb *strings.Builder, env protocol.Envelope) {
	ts := env.Timestamp.Local().Format("15:04:05")
	fmt.Fprintf(sb, "[#%d %s] %s", env.SeqNum, ts, env.Sender)
	if to := env.Metadata["to"]; to != "" {
		fmt.Fprintf(sb, " → %s", to)
	}
	switch env.Type {
	case protocol.TypeCode:
		fmt.Fprintf(sb, " shared code:\n```%s\n%s\n```", env.Payload.Language, env.Payload.Code)
	case protocol.TypeDiff:
		fmt.Fprintf(sb, " shared diff:\n%s", env.Payload.Diff)
	case protocol.TypeSystem:
		fmt.Fprintf(sb, " --- %s", env.Payload.Text)
	default:
		fmt.Fprintf(sb, ": %s", env.Payload.Text)
	}
	if len(env.Submessages) > 0 {
		if view, err := widgetview.Decode(env.Submessages); err == nil {
			fmt.Fprintf(sb, "\n  %s (message_id: %s)", view.Summary(), env.ID)
		}
	}
}

func makeListParticipantsHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		list, err := client.ListParticipants(ctx)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to list participants: %v", err)), nil
		}
		if len(list.Participants) == 0 {
			return mcplib.NewToolResultText("No participants in this room."), nil
		}

		var sb strings.Builder
		for _, p := range list.Participants {
			status := "disconnected"
			if p.Connected {
				status = "connected"
			}
			fmt.Fprintf(&sb, "%s (id: %d, role: %s, %s, joined: %s)\n", p.Name, p.ID, p.Role, status, p.JoinedAt.Local().Format("15:04:05"))
		}
		return mcplib.NewToolResultText(sb.String()), nil
	}
}

func makeCreatePollHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		question := request.GetString("question", "")
		if question == "" {
			return mcplib.NewToolResultError("question is required"), nil
		}
		options := request.GetStringSlice("options", nil)

		env, err := client.CreatePoll(ctx, question, options)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to create poll: %v", err)), nil
		}
		return mcplib.NewToolResultText(fmt.Sprintf("Poll created (message_id: %s, seq #%d)", env.ID, env.SeqNum)), nil
	}
}

func makeAddPollOptionHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		messageID := request.GetString("message_id", "")
		option := request.GetString("option", "")
		if messageID == "" || option == "" {
			return mcplib.NewToolResultError("message_id and option are required"), nil
		}

		view, err := client.Widget(ctx, messageID)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to load poll: %v", err)), nil
		}
		senderID, err := client.SenderID(ctx)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to look up sender id: %v", err)), nil
		}
		content, key, err := view.OptionContent(senderID, option)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		event, err := client.AppendSubmessage(ctx, messageID, content)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to add option: %v", err)), nil
		}
		if stored, ok := widgetview.AddedOptionKey(event.Submessage); ok {
			key = stored
		}
		return mcplib.NewToolResultText(fmt.Sprintf("Option added (key: %s)", key)), nil
	}
}

func makeEditPollQuestionHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		messageID := request.GetString("message_id", "")
		question := request.GetString("question", "")
		if messageID == "" || question == "" {
			return mcplib.NewToolResultError("message_id and question are required"), nil
		}

		view, err := client.Widget(ctx, messageID)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to load poll: %v", err)), nil
		}
		content, err := view.QuestionContent(question)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		if _, err := client.AppendSubmessage(ctx, messageID, content); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to edit question: %v", err)), nil
		}
		return mcplib.NewToolResultText("Question changed."), nil
	}
}

func makeVotePollHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		messageID := request.GetString("message_id", "")
		key := request.GetString("key", "")
		remove := request.GetBool("remove", false)
		if messageID == "" || key == "" {
			return mcplib.NewToolResultError("message_id and key are required"), nil
		}

		view, err := client.Widget(ctx, messageID)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to load poll: %v", err)), nil
		}
		content, err := view.VoteContent(key, remove)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		if _, err := client.AppendSubmessage(ctx, messageID, content); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to vote: %v", err)), nil
		}
		if remove {
			return mcplib.NewToolResultText(fmt.Sprintf("Vote for %s withdrawn.", key)), nil
		}
		return mcplib.NewToolResultText(fmt.Sprintf("Voted for %s.", key)), nil
	}
}

func makeShowPollHandler(client *HTTPClient) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		messageID := request.GetString("message_id", "")
		if messageID == "" {
			return mcplib.NewToolResultError("message_id is required"), nil
		}

		view, err := client.Widget(ctx, messageID)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to load poll: %v", err)), nil
		}
		if request.GetBool("json", false) {
			data, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcplib.NewToolResultText(string(data)), nil
		}

		var sb strings.Builder
		sb.WriteString(view.Summary())
		sb.WriteString("\n")
		if view.Error != "" {
			fmt.Fprintf(&sb, "error: %s\n", view.Error)
		}
		if view.Poll != nil {
			for _, o := range view.Poll.Options {
				fmt.Fprintf(&sb, "- %s: %s\n", o.Key, o.Text)
			}
		}
		for _, ev := range view.Events {
			fmt.Fprintf(&sb, "%s\n", ev.Describe())
		}
		if len(view.OptionKeys) > 0 {
			fmt.Fprintf(&sb, "option keys: %s\n", strings.Join(view.OptionKeys, ", "))
		}
		return mcplib.NewToolResultText(sb.String()), nil
	}
}
