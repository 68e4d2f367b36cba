package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/cli/config"
	"github.com/aiokaizen/bear-vision/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Long: `Start the HTTP server of the administration interface.

Every entity listed in menu_items gets list, detail, create and update pages.
With --watch, editing the configuration file updates the menu without a restart.`,
		Example: `  # Serve on the configured port
  bearvision serve

  # Serve on a custom port and reload the menu on config changes
  bearvision serve --port 3000 --watch`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().Bool("watch", false, "Reload menu_items when the config file changes")
	cmd.Flags().Int("page-size", config.DefaultPageSize, "Rows per list page")
	cmd.Flags().Bool("secure-cookies", false, "Mark the session cookie secure (HTTPS only)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.NewSite()
	if err != nil {
		return err
	}

	cfg := cc.Cfg
	flags := cmd.Flags()
	srv := server.New(server.Config{
		Site:       s,
		Port:       cfg.Server.Port,
		Watch:      cfg.Server.Watch,
		ConfigPath: cfg.File,
		Reload: func() ([]string, error) {
			reloaded, err := config.Load(cfg.File, flags)
			if err != nil {
				return nil, err
			}
			return reloaded.MenuItems, nil
		},
		Logger: cc.Logger,
	})

	if cfg.Server.Watch && cfg.File == "" {
		cc.Logger.Warn("no configuration file to watch")
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://localhost:%d\n", cfg.Server.Port)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
