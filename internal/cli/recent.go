package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RecentAddOptions holds options for the recent add command.
type RecentAddOptions struct {
	Replace string
}

// NewRecentCommand creates the recent command group.
func NewRecentCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Manage recent searches",
	}

	cmd.AddCommand(newRecentAddCommand(global))
	cmd.AddCommand(newRecentListCommand(global))
	cmd.AddCommand(newRecentRemoveCommand(global))
	cmd.AddCommand(newRecentClearCommand(global))

	return cmd
}

func newRecentAddCommand(global *GlobalOptions) *cobra.Command {
	opts := &RecentAddOptions{}

	cmd := &cobra.Command{
		Use:   "add QUERY",
		Short: "Record a search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Service().AddRecentSearch(cmd.Context(), args[0], opts.Replace)
		},
	}

	cmd.Flags().StringVar(&opts.Replace, "replace", "", "Earlier search this one refines")

	return cmd
}

func newRecentListCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent searches, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			queries := application.Service().RecentSearches()
			if opts.JSON {
				if queries == nil {
					queries = []string{}
				}
				return writeJSON(cmd.OutOrStdout(), queries)
			}
			for _, q := range queries {
				fmt.Fprintln(cmd.OutOrStdout(), q)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func newRecentRemoveCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove QUERY",
		Short: "Remove a recent search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Service().RemoveRecentSearch(cmd.Context(), args[0])
		},
	}
}

func newRecentClearCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Service().ClearRecentSearches(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recent searches cleared")
			return nil
		},
	}
}
