package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/corvino/widgetchat/internal/protocol"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server health and list who is in the current room",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := getHealth(flagServer)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server %s is %s (up %s, %d rooms)\n", flagServer, health.Status, health.Uptime, health.Rooms)
			if flagRoom == "" {
				return nil
			}

			list, err := getParticipants(flagServer, flagRoom)
			if err != nil {
				return err
			}
			return printParticipants(out, list)
		},
	}
}

// printParticipants shows the numeric sender ids used in option keys next
// to each name.
func printParticipants(w io.Writer, list *protocol.ParticipantList) error {
	if len(list.Participants) == 0 {
		_, err := fmt.Fprintf(w, "room %q has no participants\n", list.Room)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tROLE\tSTATE\n")
	for _, p := range list.Participants {
		state := "away"
		if p.Connected {
			state = "online"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, state)
	}
	return tw.Flush()
}

func newRoomsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List active rooms on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := getRooms(flagServer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return printRooms(out, list.Rooms)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw room list")
	return cmd
}

func printRooms(w io.Writer, rooms []protocol.RoomInfo) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "no active rooms")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ROOM\tCLIENTS\tMSGS\tLAST SEQ\t\n")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", r.Name, r.Clients, r.MessageCount, r.LastSeq)
	}
	return tw.Flush()
}
