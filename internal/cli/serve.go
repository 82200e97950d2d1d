package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/potholes/internal/web"
)

var serveFlags = []flagBinding{
	{"addr", "server.addr"},
	{"static-root", "server.static_root"},
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the frontend home page",
		Long: `Serve the built frontend's index.html from --static-root.

The page is read on every request so a new frontend build is picked up
without a restart. When no build is present a placeholder page is served.
The server stops gracefully on SIGINT or SIGTERM.

Example:
  potholes serve --addr :8000 --static-root staticfiles`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().String("static-root", "staticfiles", "directory holding the frontend build (resolved against base_dir)")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if err := opts.bindFlags(cmd, serveFlags); err != nil {
		return err
	}
	cfg, logger, err := opts.prepare(cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}

	staticRoot := resolvePath(cfg.BaseDir, cfg.Server.StaticRoot)
	formatter.VerboseLog("Serving %s on %s", staticRoot, cfg.Server.Addr)

	srv := web.NewServer(cfg.Server.Addr, staticRoot, logger)
	if err := srv.ListenAndServe(commandContext(cmd)); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
