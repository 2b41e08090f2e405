package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/artpar/staykeep/internal/app"
	"github.com/artpar/staykeep/internal/config"
	"github.com/artpar/staykeep/internal/logging"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/tui"
	"github.com/artpar/staykeep/internal/tui/views"
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	DataDir    string
	Storage    string
	Remote     string
	LogLevel   string
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:           "staykeep",
		Short:         "staykeep - hotel favorites and recent searches",
		Long:          "staykeep keeps favorited hotels and recent searches on this device, and syncs them to a remote store while signed in.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file (default <data-dir>/config.yaml)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Data directory (default ~/.staykeep)")
	flags.StringVar(&opts.Storage, "storage", "", "Local storage driver: sqlite, file, memory, s3")
	flags.StringVar(&opts.Remote, "remote", "", "Remote store driver: none, memory, sqlite, pgx")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(NewFavCommand(opts))
	cmd.AddCommand(NewRecentCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// loadConfig resolves the configuration for opts.
func loadConfig(opts *GlobalOptions) (config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		dir := opts.DataDir
		if dir == "" {
			dir = config.DefaultConfig().DataDir
		}
		path = config.DefaultPath(dir)
	}

	return config.Load(path,
		config.WithDataDir(opts.DataDir),
		config.WithStorageDriver(opts.Storage),
		config.WithRemoteDriver(opts.Remote),
		config.WithLogLevel(opts.LogLevel),
	)
}

// openApp loads the configuration and builds the application.
func openApp(ctx context.Context, opts *GlobalOptions, appOpts ...app.Option) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	application, err := app.New(ctx, cfg, appOpts...)
	if err != nil {
		return nil, err
	}
	return application, nil
}

// tuiModel wraps the MainView for bubbletea
type tuiModel struct {
	view *views.MainView
}

func (m tuiModel) Init() tea.Cmd {
	return m.view.Init()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.view.Update(msg)
	m.view = updated.(*views.MainView)
	return m, cmd
}

func (m tuiModel) View() string {
	return m.view.View()
}

// runTUI starts the TUI application. Logs go to a file so they do not
// corrupt the alternate screen.
func runTUI(cmd *cobra.Command, opts *GlobalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: filepath.Join(cfg.DataDir, "staykeep.log"),
	})
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer application.Close()

	model := tuiModel{
		view: views.NewMainView(application.Service()),
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	unsubscribe := application.Notifier().Subscribe(func(event notify.Event) {
		// Send blocks until the event loop is running.
		go p.Send(tui.ChangedMsg{Event: event})
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}
