package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheus3301/collab/internal/client"
	"github.com/matheus3301/collab/internal/rpc"
	"github.com/matheus3301/collab/internal/view"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search the user directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAs(); err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Directory.Search(ctx, &rpc.SearchRequest{Query: query, CallerID: asFlag})
				if err != nil {
					return err
				}
				return printUsers(os.Stdout, resp.Users)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the demo users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Directory.SeedDemoUsers(ctx, &rpc.SeedDemoUsersRequest{})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp)
				}
				fmt.Printf("Created %d demo users.\n", resp.Created)
				return nil
			})
		},
	})

	userCmd := &cobra.Command{Use: "user", Short: "User directory operations"}

	var u rpc.User
	var interests string
	var hidden bool
	putCmd := &cobra.Command{
		Use:   "put USERNAME",
		Short: "Create or update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Username = args[0]
			u.IsVisible = !hidden
			if interests != "" {
				for _, in := range strings.Split(interests, ",") {
					if in = strings.TrimSpace(in); in != "" {
						u.Interests = append(u.Interests, in)
					}
				}
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Directory.PutUser(ctx, &rpc.PutUserRequest{User: u})
				if err != nil {
					return err
				}
				if jsonFlag {
					return outputJSON(os.Stdout, resp.User)
				}
				fmt.Printf("Stored %s (%s)\n", resp.User.Username, resp.User.ID)
				return nil
			})
		},
	}
	putCmd.Flags().StringVar(&u.ID, "id", "", "user ID (generated when empty)")
	putCmd.Flags().StringVar(&u.Email, "email", "", "email address")
	putCmd.Flags().StringVar(&u.Avatar, "avatar", "", "avatar URL")
	putCmd.Flags().StringVar(&u.Bio, "bio", "", "profile bio")
	putCmd.Flags().StringVar(&u.Role, "role", "", "role, e.g. brand or influencer")
	putCmd.Flags().StringVar(&interests, "interests", "", "comma-separated interests")
	putCmd.Flags().BoolVar(&hidden, "hidden", false, "hide the user from search")
	userCmd.AddCommand(putCmd)

	rootCmd.AddCommand(userCmd)
}

func printUsers(w io.Writer, users []rpc.User) error {
	if jsonFlag {
		return outputJSON(w, users)
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(w, "%-36s %-20s %-12s %4d  %s\n",
			u.ID, view.Sanitize(u.Username), view.Sanitize(u.Role), u.MatchScore, view.Sanitize(u.Bio))
	}
	return nil
}
