package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/staykeep/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(global *GlobalOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve preferences over HTTP with a live websocket change feed",
		Long: `Serve favorites and recent searches over HTTP.

Endpoints:
  GET /healthz               liveness and current mode
  GET /api/favorites         favorites (?sort=name|location|recent, ?q=search)
  GET /api/favorites/stats   favorites statistics
  GET /api/recent            recent searches
  GET /ws                    websocket stream of change events
  GET /metrics               Prometheus metrics
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", "", "Listen address (default from config, 127.0.0.1:7420)")

	return cmd
}

func runServe(cmd *cobra.Command, global *GlobalOptions, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := openApp(ctx, global)
	if err != nil {
		return err
	}
	defer application.Close()

	addr := opts.Addr
	if addr == "" {
		addr = application.Config().ListenAddr
	}

	srv := server.New(application.Service(), addr,
		server.WithMetrics(application.Metrics()),
		server.WithLogger(application.Logger()),
	)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (%s mode)\n", srv.ListenAddr(), application.Service().Mode())
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl+C to stop...\n")

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
	return nil
}
