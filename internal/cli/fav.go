package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/favorites"
)

// FavAddOptions holds options for the fav add command.
type FavAddOptions struct {
	Location string
}

// FavListOptions holds options for the fav list and search commands.
type FavListOptions struct {
	Sort string
	JSON bool
}

// FavExportOptions holds options for the fav export command.
type FavExportOptions struct {
	Output    string
	Clipboard bool
}

// FavImportOptions holds options for the fav import command.
type FavImportOptions struct {
	Merge bool
}

// NewFavCommand creates the fav command group.
func NewFavCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favorite hotels",
	}

	cmd.AddCommand(newFavAddCommand(global))
	cmd.AddCommand(newFavRemoveCommand(global))
	cmd.AddCommand(newFavToggleCommand(global))
	cmd.AddCommand(newFavListCommand(global))
	cmd.AddCommand(newFavSearchCommand(global))
	cmd.AddCommand(newFavStatsCommand(global))
	cmd.AddCommand(newFavExportCommand(global))
	cmd.AddCommand(newFavImportCommand(global))
	cmd.AddCommand(newFavClearCommand(global))

	return cmd
}

func newFavAddCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavAddOptions{}

	cmd := &cobra.Command{
		Use:   "add ID NAME",
		Short: "Add or replace a favorite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			entry := favorites.NewEntry(args[0], args[1], opts.Location)
			if err := application.Service().AddFavorite(cmd.Context(), entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", entry.Name, entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Location, "location", "l", "", "Hotel location")

	return cmd
}

func newFavRemoveCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Service().RemoveFavorite(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newFavToggleCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavAddOptions{}

	cmd := &cobra.Command{
		Use:   "toggle ID NAME",
		Short: "Favorite a hotel, or unfavorite it if already favorited",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			entry := favorites.NewEntry(args[0], args[1], opts.Location)
			favorited, err := application.Service().ToggleFavorite(cmd.Context(), entry)
			if err != nil {
				return err
			}
			if favorited {
				fmt.Fprintf(cmd.OutOrStdout(), "Favorited %s\n", entry.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Unfavorited %s\n", entry.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Location, "location", "l", "", "Hotel location")

	return cmd
}

func newFavListCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := favorites.ParseSortBy(opts.Sort)
			if err != nil {
				return err
			}

			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			list, err := application.Service().SortedFavorites(cmd.Context(), by)
			if err != nil {
				return err
			}
			return outputFavorites(cmd.OutOrStdout(), list, opts.JSON)
		},
	}

	cmd.Flags().StringVarP(&opts.Sort, "sort", "s", "recent", "Sort order: recent, name, location")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func newFavSearchCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavListOptions{}

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search favorites by name or location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			service := application.Service()
			list, err := service.SearchFavorites(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := service.AddRecentSearch(cmd.Context(), args[0], ""); err != nil {
				application.Logger().Warn("failed to record recent search", zap.Error(err))
			}
			return outputFavorites(cmd.OutOrStdout(), list, opts.JSON)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func newFavStatsCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavListOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show favorites statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			stats, err := application.Service().FavoriteStats(cmd.Context())
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			outputStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func newFavExportCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export favorites as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			data, err := application.Service().ExportFavorites(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case opts.Clipboard:
				if err := clipboard.WriteAll(data); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Favorites copied to clipboard")
			case opts.Output != "":
				if err := os.WriteFile(opts.Output, []byte(data+"\n"), 0644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Favorites exported to %s\n", opts.Output)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), data)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the export to a file")
	cmd.Flags().BoolVar(&opts.Clipboard, "clipboard", false, "Copy the export to the clipboard")

	return cmd
}

func newFavImportCommand(global *GlobalOptions) *cobra.Command {
	opts := &FavImportOptions{}

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import favorites from an export file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			n, err := application.Service().ImportFavorites(cmd.Context(), data, opts.Merge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d favorites\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "Merge into existing favorites instead of replacing them")

	return cmd
}

func newFavClearCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Service().ClearFavorites(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Favorites cleared")
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read import: %w", err)
	}
	return string(data), nil
}

func outputFavorites(out io.Writer, list []favorites.Entry, asJSON bool) error {
	if asJSON {
		if list == nil {
			list = []favorites.Entry{}
		}
		return writeJSON(out, list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No favorites")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, e := range list {
		rows = append(rows, []string{e.ID, e.Name, e.Location, e.AddedAt.Local().Format(time.DateTime)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "LOCATION", "ADDED").
		Rows(rows...)
	fmt.Fprintln(out, t.String())
	return nil
}

func outputStats(out io.Writer, stats favorites.Stats) {
	fmt.Fprintf(out, "Total: %d\n", stats.TotalFavorites)
	if stats.NewestFavorite != nil {
		fmt.Fprintf(out, "Newest: %s (%s)\n", stats.NewestFavorite.Name, stats.NewestFavorite.AddedAt.Local().Format(time.DateTime))
	}
	if stats.OldestFavorite != nil {
		fmt.Fprintf(out, "Oldest: %s (%s)\n", stats.OldestFavorite.Name, stats.OldestFavorite.AddedAt.Local().Format(time.DateTime))
	}
	if len(stats.FavoritesByLocation) == 0 {
		return
	}

	locations := make([]string, 0, len(stats.FavoritesByLocation))
	for loc := range stats.FavoritesByLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	fmt.Fprintln(out, "By location:")
	for _, loc := range locations {
		fmt.Fprintf(out, "  %s: %d\n", loc, stats.FavoritesByLocation[loc])
	}
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
