package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config holds the configuration for the MCP server.
type Config struct {
	ServerURL string
	Room      string
	Name      string
}

const instructions = `Tools for one widgetchat room. Polls are chat messages whose first
submessage defines the poll; every later submessage is an event (new option,
question change, vote). Options are addressed by key: "canned,N" for the
poll's initial options and "SENDER_ID,N" for options added later. Use
show_poll to read the current option keys before voting.`

// NewServer builds the MCP server with every tool registered against client.
func NewServer(client *HTTPClient) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		"widgetchat",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(instructions),
	)
	RegisterTools(srv, client)
	return srv
}

// Serve runs the MCP server over stdio until stdin closes, ctx is done or
// the process is signalled.
func Serve(ctx context.Context, cfg Config) error {
	if cfg.ServerURL == "" || cfg.Room == "" || cfg.Name == "" {
		return fmt.Errorf("mcp: server URL, room and name are all required")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := NewServer(NewHTTPClient(cfg.ServerURL, cfg.Room, cfg.Name))
	return mcpserver.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout)
}
