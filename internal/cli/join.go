package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <url> [room] [name]",
		Short: "Connect to a WidgetChat server",
		Long: `Connects to a WidgetChat server, verifies it's reachable, and writes
a .widgetchat config file in the current directory so all future commands
just work. Missing arguments are prompted for.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if len(args) >= 1 {
				cfg.Server = args[0]
			}
			if len(args) >= 2 {
				cfg.Room = args[1]
			}
			if len(args) >= 3 {
				cfg.Sender = args[2]
			}
			return runJoin(cmd.InOrStdin(), cmd.OutOrStdout(), cfg)
		},
	}
	return cmd
}

func runJoin(in io.Reader, out io.Writer, cfg Config) error {
	reader := bufio.NewReader(in)
	prompt := func(label string, value *string) {
		if *value != "" {
			return
		}
		fmt.Fprint(out, label)
		line, _ := reader.ReadString('\n')
		*value = strings.TrimSpace(line)
	}

	prompt("Server URL: ", &cfg.Server)
	if cfg.Server == "" {
		return fmt.Errorf("server URL is required")
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")

	fmt.Fprintf(out, "Connecting to %s ...\n", cfg.Server)
	health, err := getHealth(cfg.Server)
	if err != nil {
		return fmt.Errorf("could not reach server: %w", err)
	}
	fmt.Fprintf(out, "Connected! Server is %s (uptime: %s, %d rooms)\n", health.Status, health.Uptime, health.Rooms)

	prompt("Room name (e.g. myproject): ", &cfg.Room)
	if cfg.Room == "" {
		return fmt.Errorf("room name is required")
	}
	prompt("Your name (e.g. alice): ", &cfg.Sender)
	if cfg.Sender == "" {
		return fmt.Errorf("name is required")
	}

	if err := writeConfig(configFileName, cfg); err != nil {
		return fmt.Errorf("write %s: %w", configFileName, err)
	}
	fmt.Fprintf(out, "Wrote %s\n\n", configFileName)
	fmt.Fprintf(out, "  Server: %s\n  Room:   %s\n  Name:   %s\n\n", cfg.Server, cfg.Room, cfg.Sender)
	fmt.Fprintln(out, "  Quick commands:")
	fmt.Fprintln(out, `    widgetchat send "hello everyone!"`)
	fmt.Fprintln(out, `    widgetchat poll create "Lunch?" Pizza Tacos`)
	fmt.Fprintln(out, "    widgetchat watch")
	return nil
}
