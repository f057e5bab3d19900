package cli

import (
	"github.com/spf13/cobra"

	"github.com/pkgdepot/depot/internal/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the depot HTTP API",
		Long: `Serve exposes the package database over HTTP: manifest ingestion via
POST /v1/manifests, plus spec and compiler queries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.HTTP.Listen = listen
			}

			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return api.NewServer(st, logger).ListenAndServe(cfg.HTTP.Listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
