package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheus3301/collab/internal/config"
	"github.com/matheus3301/collab/internal/profile"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the global configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in defaults to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(os.Stdout, profile.ConfigPath(), profileFlag, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig writes the default configuration to path. defaultProfile, when
// set, becomes the profile used without --profile.
func initConfig(w io.Writer, path, defaultProfile string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg := config.Default()
	if defaultProfile != "" {
		if err := profile.ValidateName(defaultProfile); err != nil {
			return err
		}
		cfg.DefaultProfile = defaultProfile
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}
