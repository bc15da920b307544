package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matheus3301/collab/internal/client"
	"github.com/matheus3301/collab/internal/rpc"
	"github.com/matheus3301/collab/internal/view"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "send CHAT_ID TEXT",
		Short: "Send a message as the acting user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAs(); err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Message.SendMessage(ctx, &rpc.SendMessageRequest{
					ChatID:   args[0],
					SenderID: asFlag,
					Content:  args[1],
				})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp)
				}
				if !resp.Success {
					return errors.New(resp.Error)
				}
				fmt.Println(resp.Message.ID)
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "history CHAT_ID",
		Short: "Print the messages of a chat, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Message.ListMessages(ctx, &rpc.ListMessagesRequest{ChatID: args[0]})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp.Messages)
				}
				th := view.NewThread(args[0])
				th.Apply(&rpc.MessageSnapshot{ChatID: args[0], Messages: resp.Messages})
				return th.Render(os.Stdout, asFlag)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "read CHAT_ID",
		Short: "Mark the other participant's messages as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAs(); err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Message.MarkRead(ctx, &rpc.MarkReadRequest{ChatID: args[0], ReaderID: asFlag})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp)
				}
				fmt.Printf("Marked %d messages read.\n", resp.Updated)
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch CHAT_ID",
		Short: "Follow a chat and reprint it on every change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchThread(ctx, view.NewThread(args[0]), c.Message, func(t *view.Thread) {
				if jsonFlag {
					_ = outputJSON(os.Stdout, t.Messages())
					return
				}
				fmt.Printf("--- %s (%d unread) ---\n", t.ChatID(), t.Unread(asFlag))
				_ = t.Render(os.Stdout, asFlag)
			})
		},
	})
}

// watchThread follows th in the background and calls render whenever it
// changes. Snapshots that land while render runs collapse into one redraw.
func watchThread(ctx context.Context, th *view.Thread, mc rpc.MessageClient, render func(*view.Thread)) error {
	errCh := make(chan error, 1)
	go func() { errCh <- th.Follow(ctx, mc, nil) }()
	for {
		select {
		case <-th.RefreshCh():
			render(th)
		case err := <-errCh:
			select {
			case <-th.RefreshCh():
				render(th)
			default:
			}
			return err
		}
	}
}
