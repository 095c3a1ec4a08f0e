package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dori/todosync/internal/config"
	"github.com/dori/todosync/internal/remote/googletasks"
)

func newLoginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Tasks and turn on sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := googletasks.Login(cmd.Context(), cfg, out); err != nil {
				return err
			}

			if cfg.Sync.Backend != config.BackendGoogleTasks {
				cfg.Sync.Backend = config.BackendGoogleTasks
				if err := cfg.Save(); err != nil {
					return fmt.Errorf("failed to enable sync: %w", err)
				}
			}
			fmt.Fprintf(out, "Logged in. Tasks sync to the %q list.\n", cfg.Sync.ListName)
			return nil
		},
	}
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Google credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			removed, err := googletasks.Logout(cfg)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out. Tasks stay on this machine.")
			return nil
		},
	}
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todosync %s\n", version)
		},
	}
}
