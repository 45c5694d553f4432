package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/spf13/cobra"
)

var errNoBody = errors.New("no message provided (use args, --body, or pipe to stdin)")

func newSendCmd() *cobra.Command {
	var (
		msgType  string
		filePath string
		language string
		body     string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message to a room",
		Long: `Send a message to a room. The body is taken from --body, then the
positional arguments joined with spaces, then piped stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoomAndSender(); err != nil {
				return err
			}
			content, err := messageBody(body, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			payload, err := buildPayload(msgType, content, filePath, language)
			if err != nil {
				return err
			}
			if msgType == "" {
				msgType = protocol.TypeText
			}

			env, err := postMessage(flagServer, flagRoom, protocol.SendRequest{
				Sender:  flagSender,
				Type:    msgType,
				Payload: payload,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "sent message #%d to room %q (sender id %d)\n", env.SeqNum, env.Room, env.SenderID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&msgType, "type", "t", "", "message type: text, code, diff (default: text)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "file path (for code/diff types)")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "language (for code type; auto-detected from file if omitted)")
	cmd.Flags().StringVar(&body, "body", "", "message body (alternative to args/stdin)")

	return cmd
}

// messageBody picks the message text. An interactive terminal on stdin
// counts as no input.
func messageBody(body string, args []string, stdin io.Reader) (string, error) {
	var content string
	switch {
	case body != "":
		content = body
	case len(args) > 0:
		content = strings.Join(args, " ")
	default:
		if f, ok := stdin.(*os.File); ok {
			stat, err := f.Stat()
			if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
				return "", errNoBody
			}
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		content = string(b)
	}
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return "", errNoBody
	}
	return content, nil
}

// buildPayload maps a CLI message type onto a payload. Widget messages are
// created with "poll create", not here.
func buildPayload(msgType, content, filePath, language string) (protocol.Payload, error) {
	switch msgType {
	case "", protocol.TypeText:
		return protocol.NewTextPayload(content), nil
	case protocol.TypeCode:
		return protocol.NewCodePayload(content, filePath, language), nil
	case protocol.TypeDiff:
		return protocol.NewDiffPayload(content, filePath), nil
	default:
		return protocol.Payload{}, fmt.Errorf("unsupported message type %q (want text, code or diff)", msgType)
	}
}
