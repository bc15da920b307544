package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/collab/internal/client"
	"github.com/matheus3301/collab/internal/rpc"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Status.GetStatus(ctx, &rpc.GetStatusRequest{})
				if err != nil {
					return err
				}
				return printStatus(os.Stdout, resp)
			})
		},
	})
}

func printStatus(w io.Writer, resp *rpc.GetStatusResponse) error {
	if jsonFlag {
		return outputJSON(w, resp)
	}
	state := resp.State
	if resp.Reason != "" {
		state += " (" + resp.Reason + ")"
	}
	fmt.Fprintf(w, "Profile:  %s\n", resp.Profile)
	fmt.Fprintf(w, "State:    %s\n", state)
	fmt.Fprintf(w, "Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(w, "Store:    %s (%d users, %d chats, %d messages)\n", resp.Driver, resp.Users, resp.Chats, resp.Messages)
	fmt.Fprintf(w, "Relay:    %s\n", onOff(resp.Relay, fmt.Sprintf("%d pending", resp.PendingOutbox)))
	fmt.Fprintf(w, "Bridge:   %s\n", onOff(resp.Bridge, ""))
	return nil
}

func onOff(on bool, detail string) string {
	if !on {
		return "off"
	}
	if detail == "" {
		return "on"
	}
	return "on, " + detail
}
