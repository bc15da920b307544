package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/collab/internal/client"
	"github.com/matheus3301/collab/internal/profile"
)

var (
	profileFlag string
	jsonFlag    bool
	asFlag      string
	timeoutFlag time.Duration
	rootCmd     = &cobra.Command{
		Use:           "collabctl",
		Short:         "Control a collab daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&asFlag, "as", "", "acting user ID")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "request timeout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// connect dials the daemon of the selected profile.
func connect() (*client.Client, error) {
	name := profile.Resolve(profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return nil, err
	}
	c, err := client.New(profile.SocketPath(name))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	return c, nil
}

// withClient runs fn with a connected client and a request deadline.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()
	return fn(ctx, c)
}

func requireAs() error {
	if asFlag == "" {
		return fmt.Errorf("--as is required")
	}
	return nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
