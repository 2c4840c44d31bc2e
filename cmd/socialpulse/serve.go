package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/socialpulse/internal/app"
	"github.com/sakif/socialpulse/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled resend sweep",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		srv, err := server.New(a, logger)
		if err != nil {
			a.Close()
			return err
		}
		// Start blocks until SIGINT/SIGTERM and closes the database
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides PORT)")
}
