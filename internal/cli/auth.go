package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/staykeep/internal/prefs"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login USER_ID",
		Short: "Sign in and sync preferences with the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.SignIn(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}

			service := application.Service()
			if service.Mode() != prefs.ModeRemote {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (no remote store configured, preferences stay local)\n", args[0])
				return nil
			}
			n, err := service.FavoriteCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s, %d favorites synced\n", service.UserID(), n)
			return nil
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to device-local preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and storage mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			current := application.Session().Current()
			if !current.SignedIn() {
				fmt.Fprintln(out, "Not signed in")
			} else {
				fmt.Fprintf(out, "User: %s\n", current.UserID)
				fmt.Fprintf(out, "Signed in: %s\n", current.SignedInAt.Local().Format(time.DateTime))
			}
			fmt.Fprintf(out, "Device: %s\n", current.DeviceID)
			fmt.Fprintf(out, "Mode: %s\n", application.Service().Mode())
			return nil
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reload preferences from the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			service := application.Service()
			return service.RequireAction(cmd.Context(), func(ctx context.Context) error {
				if err := service.Store().Load(ctx); err != nil {
					return err
				}
				n, err := service.FavoriteCount(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d favorites and %d recent searches\n", n, len(service.RecentSearches()))
				return nil
			}, nil)
		},
	}
}
