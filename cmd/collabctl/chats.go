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
		Use:   "open OTHER_USER_ID",
		Short: "Get or create the conversation with another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAs(); err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Chat.GetOrCreateChat(ctx, &rpc.GetOrCreateChatRequest{UserA: asFlag, UserB: args[0]})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp)
				}
				fmt.Println(resp.ChatID)
				return nil
			})
		},
	})

	var limit int
	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "List conversations of the acting user, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAs(); err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Chat.ListChats(ctx, &rpc.ListChatsRequest{UserID: asFlag, Limit: limit})
				if err != nil {
					return err
				}
				return printChats(os.Stdout, resp.Chats, asFlag)
			})
		},
	}
	chatsCmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of chats")
	rootCmd.AddCommand(chatsCmd)
}

func printChats(w io.Writer, chats []rpc.Chat, self string) error {
	if jsonFlag {
		return outputJSON(w, chats)
	}
	if len(chats) == 0 {
		fmt.Fprintln(w, "No chats found.")
		return nil
	}
	for _, c := range chats {
		other := c.Other(self)
		updated := time.UnixMilli(c.UpdatedAt).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%-36s %-36s %s\n", c.ID, other, updated)
	}
	return nil
}
