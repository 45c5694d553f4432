package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/corvino/widgetchat/internal/widgetview"
	"github.com/spf13/cobra"
)

func newPollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Create, edit, vote on and show poll widgets",
		Long: `Polls are widget messages. Every change to a poll is appended to the
message as a submessage; "poll show" decodes the list.

Options are named by keys: "canned,<n>" for the options given at creation
and "<sender id>,<n>" for options added later.`,
	}
	cmd.AddCommand(
		newPollCreateCmd(),
		newPollOptionCmd(),
		newPollQuestionCmd(),
		newPollVoteCmd(),
		newPollShowCmd(),
	)
	return cmd
}

func newPollCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <question> [options...]",
		Short: "Post a new poll",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoomAndSender(); err != nil {
				return err
			}
			content, err := widgetview.PollContent(args[0], args[1:])
			if err != nil {
				return err
			}
			env, err := postMessage(flagServer, flagRoom, protocol.SendRequest{
				Sender:  flagSender,
				Type:    protocol.TypeWidget,
				Payload: protocol.NewPollPayload(args[0]),
				Widget:  json.RawMessage(content),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), env.ID)
			return nil
		},
	}
}

func newPollOptionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "option <message-id> <text>",
		Short: "Add an option to a poll",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoomAndSender(); err != nil {
				return err
			}
			view, err := getWidget(flagServer, flagRoom, args[0])
			if err != nil {
				return err
			}
			senderID, _, err := senderIDOf(flagServer, flagRoom, flagSender)
			if err != nil {
				return err
			}
			content, key, err := view.OptionContent(senderID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			event, err := appendPollEvent(args[0], content)
			if err != nil {
				return err
			}
			// A first-time sender only gets an id once the server has
			// stored the item; report the key it actually created.
			if stored, ok := widgetview.AddedOptionKey(event.Submessage); ok {
				key = stored
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newPollQuestionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "question <message-id> <text>",
		Short: "Change the question of a poll",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoomAndSender(); err != nil {
				return err
			}
			view, err := getWidget(flagServer, flagRoom, args[0])
			if err != nil {
				return err
			}
			content, err := view.QuestionContent(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			_, err = appendPollEvent(args[0], content)
			return err
		},
	}
}

func newPollVoteCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "vote <message-id> <option-key>",
		Short: "Vote for a poll option, or withdraw a vote with --remove",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoomAndSender(); err != nil {
				return err
			}
			view, err := getWidget(flagServer, flagRoom, args[0])
			if err != nil {
				return err
			}
			content, err := view.VoteContent(args[1], remove)
			if err != nil {
				return err
			}
			_, err = appendPollEvent(args[0], content)
			return err
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "withdraw the vote instead of adding it")
	return cmd
}

func newPollShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Show a poll and every change made to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoom(); err != nil {
				return err
			}
			view, err := getWidget(flagServer, flagRoom, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decoded view as JSON")
	return cmd
}

func appendPollEvent(messageID, content string) (*protocol.SubmessageEvent, error) {
	return postSubmessage(flagServer, flagRoom, messageID, protocol.SubmessageRequest{
		Sender:  flagSender,
		Content: content,
	})
}

func printView(out io.Writer, view *widgetview.View) {
	fmt.Fprintf(out, "%s (by sender %d)\n", view.Summary(), view.SenderID)
	if view.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", view.Error)
		return
	}
	if view.Poll != nil {
		for _, o := range view.Poll.Options {
			fmt.Fprintf(out, "  %-12s %s\n", o.Key, o.Text)
		}
	}
	if len(view.Events) > 0 {
		fmt.Fprintln(out, "events:")
		for _, ev := range view.Events {
			fmt.Fprintf(out, "  %s\n", ev.Describe())
		}
	}
	if len(view.OptionKeys) > 0 {
		fmt.Fprintf(out, "option keys: %s\n", strings.Join(view.OptionKeys, " "))
	}
}
