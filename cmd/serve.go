// =============================================================================
// Report Consolidator - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   reportctl serve [--addr :8080]
//
// Serves the JSON API until interrupted (SIGINT/SIGTERM).
//
// =============================================================================

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/export"
	"github.com/ginjaninja78/report-consolidator/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.config

		store, err := app.reportStore()
		if err != nil {
			return err
		}

		var ppt *export.Client
		if cfg.Backend.URL != "" {
			ppt = export.NewClient(cfg.Backend.URL, cfg.Backend.PPTPath, cfg.Backend.Timeout, app.logger)
		} else {
			app.logger.Warn("backend.url not set; PPT export disabled")
		}

		srv := server.New(server.Deps{
			Store:    store,
			Registry: app.registry,
			PPT:      ppt,
			Logger:   app.logger,
			Version:  Version,
		})
		defer srv.Close()

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
}
