package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		noColor bool
		once    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a room for live messages and poll activity via WebSocket",
		Long: `Streams messages and submessage events from the room. When the connection
drops, watch reconnects with exponential backoff unless --once is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoom(); err != nil {
				return err
			}
			sender := flagSender
			if sender == "" {
				sender = "watcher"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			w := &watcher{
				url:    buildWSURL(flagServer, flagRoom, sender),
				out:    cmd.OutOrStdout(),
				status: cmd.ErrOrStderr(),
				color:  !noColor,
			}
			if once {
				return w.watch(ctx)
			}
			w.run(ctx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output (useful for piping/logging)")
	cmd.Flags().BoolVar(&once, "once", false, "exit when the connection drops instead of reconnecting")

	return cmd
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

type watcher struct {
	url    string
	out    io.Writer
	status io.Writer
	color  bool
}

// run watches until ctx is done, reconnecting on failure.
func (w *watcher) run(ctx context.Context) {
	backoff := minBackoff
	for {
		start := time.Now()
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return
		}
		// A connection that stayed up for a while resets the backoff.
		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}
		if err != nil {
			fmt.Fprintf(w.status, "connection lost: %v\n", err)
		}
		fmt.Fprintf(w.status, "reconnecting in %s...\n", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// watch holds one connection open and prints events until it closes or
// ctx is done.
func (w *watcher) watch(ctx context.Context) error {
	fmt.Fprintf(w.status, "connecting to %s ...\n", w.url)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	fmt.Fprintln(w.status, "connected")

	done := make(chan error, 1)
	go func() {
		done <- readEvents(conn, w.out, w.color)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(w.status, "\ndisconnecting...")
		return conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}
}

func readEvents(conn *websocket.Conn, out io.Writer, color bool) error {
	for {
		var event protocol.ServerEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("read: %w", err)
			}
			return nil
		}
		fmt.Fprintln(out, formatEvent(event, color))
	}
}

func formatEvent(event protocol.ServerEvent, color bool) string {
	switch {
	case event.Event == protocol.EventSubmessage && event.Submessage != nil:
		return formatSubmessage(*event.Submessage)
	case event.Message != nil && color:
		return formatColor(*event.Message)
	case event.Message != nil:
		return formatPlain(*event.Message)
	default:
		return fmt.Sprintf("(unknown event %q)", event.Event)
	}
}

func buildWSURL(server, room, sender string) string {
	// Convert http(s) to ws(s).
	u := strings.TrimRight(server, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	q := url.Values{}
	q.Set("sender", sender)
	q.Set("mode", "events")
	return fmt.Sprintf("%s/ws/%s?%s", u, url.PathEscape(room), q.Encode())
}
