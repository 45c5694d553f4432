package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/spf13/cobra"
)

func newRecvCmd() *cobra.Command {
	var (
		after  int64
		limit  int
		latest int
		format string
	)

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Receive messages from a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoom(); err != nil {
				return err
			}

			var list *protocol.MessageList
			var err error
			if latest > 0 {
				list, err = getLatestMessages(flagServer, flagRoom, latest)
			} else {
				list, err = getMessages(flagServer, flagRoom, after, limit)
			}
			if err != nil {
				return err
			}

			return printMessages(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "return messages after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "max messages to return")
	cmd.Flags().IntVar(&latest, "latest", 0, "return the N most recent messages")
	cmd.Flags().StringVar(&format, "format", "plain", "output format: plain, json")

	return cmd
}

func printMessages(out io.Writer, list *protocol.MessageList, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "plain":
	default:
		return fmt.Errorf("unknown format %q (want plain or json)", format)
	}

	if list.Count == 0 {
		fmt.Fprintln(out, "no messages")
		return nil
	}
	printPlain(out, list.Messages)
	return nil
}
