package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagServer string
	flagRoom   string
	flagSender string
)

var (
	errNoRoom   = errors.New("room is required (use -r, WIDGETCHAT_ROOM or widgetchat join)")
	errNoSender = errors.New("sender name is required (use -n, WIDGETCHAT_SENDER or widgetchat join)")
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "widgetchat",
		Short:         "CLI for WidgetChat - chat rooms with interactive poll widgets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Resolve defaults: flags > env vars > .widgetchat config > hardcoded defaults.
	var cfg *Config
	if wd, err := os.Getwd(); err == nil {
		cfg = loadConfig(wd)
	}
	defaults := resolveDefaults(cfg, os.Getenv)

	root.PersistentFlags().StringVarP(&flagServer, "server", "s", defaults.Server, "server URL")
	root.PersistentFlags().StringVarP(&flagRoom, "room", "r", defaults.Room, "room name")
	root.PersistentFlags().StringVarP(&flagSender, "name", "n", defaults.Sender, "sender name")

	root.AddCommand(
		newSendCmd(),
		newRecvCmd(),
		newInboxCmd(),
		newPollCmd(),
		newWatchCmd(),
		newRoomsCmd(),
		newStatusCmd(),
		newJoinCmd(),
		newDigestCmd(),
		newMCPServeCmd(),
	)

	return root
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func requireRoom() error {
	if flagRoom == "" {
		return errNoRoom
	}
	return nil
}

func requireRoomAndSender() error {
	if err := requireRoom(); err != nil {
		return err
	}
	if flagSender == "" {
		return errNoSender
	}
	return nil
}
