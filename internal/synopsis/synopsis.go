package synopsis

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/widgetview"
)

// Build creates a markdown digest from a room's messages.
func Build(room string, messages []protocol.Envelope) string {
	return BuildAt(room, messages, time.Now())
}

// BuildAt is Build with a fixed generation time.
func BuildAt(room string, messages []protocol.Envelope, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# WidgetChat Digest: %s\n\n", now.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Room**: %s\n", room)

	// Collect unique senders.
	senders := map[string]bool{}
	for _, env := range messages {
		if env.Type != protocol.TypeSystem {
			senders[env.Sender] = true
		}
	}
	names := make([]string, 0, len(senders))
	for name := range senders {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintf(&b, "**Participants**: %s\n", strings.Join(names, ", "))

	if len(messages) > 0 {
		first := messages[0].Timestamp.Local().Format("15:04:05")
		last := messages[len(messages)-1].Timestamp.Local().Format("15:04:05")
		fmt.Fprintf(&b, "**Time range**: %s to %s\n", first, last)
	}
	fmt.Fprintf(&b, "**Messages**: %d\n", len(messages))
	fmt.Fprintf(&b, "\n---\n\n## Transcript\n\n")

	for _, env := range messages {
		ts := env.Timestamp.Local().Format("15:04:05")

		if env.Type == protocol.TypeSystem {
			fmt.Fprintf(&b, "*[%s] %s*\n\n", ts, env.Payload.Text)
			continue
		}

		sender := fmt.Sprintf("**%s**", env.Sender)
		if to := env.Metadata["to"]; to != "" {
			sender += fmt.Sprintf(" → **%s**", to)
		}

		switch env.Type {
		case protocol.TypeCode:
			fmt.Fprintf(&b, "[%s] %s shared code", ts, sender)
			if env.Payload.FilePath != "" {
				fmt.Fprintf(&b, " (%s)", env.Payload.FilePath)
			}
			fmt.Fprintf(&b, ":\n```%s\n%s\n```", env.Payload.Language, env.Payload.Code)
		case protocol.TypeDiff:
			fmt.Fprintf(&b, "[%s] %s shared diff", ts, sender)
			if env.Payload.FilePath != "" {
				fmt.Fprintf(&b, " (%s)", env.Payload.FilePath)
			}
			fmt.Fprintf(&b, ":\n```diff\n%s\n```", env.Payload.Diff)
		default:
			fmt.Fprintf(&b, "[%s] %s: %s", ts, sender, env.Payload.Text)
		}
		if len(env.Submessages) > 0 {
			writeWidget(&b, env)
		}

		fmt.Fprintf(&b, "\n\n")
	}

	fmt.Fprintf(&b, "---\n\n## Decisions\n\n")
	fmt.Fprintf(&b, "*Add poll outcomes, decisions, and action items here.*\n\n")
	fmt.Fprintf(&b, "- \n")

	return b.String()
}

func writeWidget(b *strings.Builder, env protocol.Envelope) {
	view, err := widgetview.Decode(env.Submessages)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\n\n> %s", view.Summary())
	if view.Poll != nil {
		for _, o := range view.Poll.Options {
			fmt.Fprintf(b, "\n> - `%s` %s", o.Key, o.Text)
		}
	}
	for _, ev := range view.Events {
		fmt.Fprintf(b, "\n> - %s", ev.Describe())
	}
}
