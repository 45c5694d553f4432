package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/spf13/cobra"
)

type seqState struct {
	Seq int64 `json:"seq"`
}

func newInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Print messages that arrived since the last check",
		Long: `Checks for new messages since the last inbox call. Prints them if found,
stays silent if there's nothing new. On first run, fetches the latest 5
messages to give context. The last seen sequence number is kept in the
nearest .widgetchat-seq file, created in the current directory on first run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoom(); err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			return runInbox(cmd.OutOrStdout(), findUp(wd, seqFileName))
		},
	}
}

func runInbox(out io.Writer, seqPath string) error {
	if seqPath == "" {
		return inboxBootstrap(out)
	}

	state, err := readSeqFile(seqPath)
	if err != nil {
		// Corrupted file; start over.
		return inboxBootstrap(out)
	}

	list, err := getMessages(flagServer, flagRoom, state.Seq, 100)
	if err != nil {
		return err
	}
	if list.Count == 0 {
		return nil
	}
	printPlain(out, list.Messages)
	return writeSeqFile(seqPath, seqState{Seq: maxSeq(state.Seq, list.Messages)})
}

// inboxBootstrap runs when no seq file exists yet.
func inboxBootstrap(out io.Writer) error {
	list, err := getLatestMessages(flagServer, flagRoom, 5)
	if err != nil {
		return err
	}
	printPlain(out, list.Messages)
	return writeSeqFile(seqFileName, seqState{Seq: maxSeq(0, list.Messages)})
}

func printPlain(out io.Writer, msgs []protocol.Envelope) {
	for _, env := range msgs {
		fmt.Fprintln(out, formatPlain(env))
	}
}

func maxSeq(seq int64, msgs []protocol.Envelope) int64 {
	for _, env := range msgs {
		seq = max(seq, env.SeqNum)
	}
	return seq
}

func readSeqFile(path string) (*seqState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state seqState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func writeSeqFile(path string, state seqState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
