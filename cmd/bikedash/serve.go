package main

import (
	"github.com/spf13/cobra"

	"bikedash/internal/app"
	"bikedash/internal/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the dashboard API",
		Long: `Loads the dataset, failing if it is missing or matches no known column
profile, then serves the dashboard API, health probes, Prometheus metrics and
the reload WebSocket until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.NewApplication(app.Options{
				ConfigFile: opts.configFile,
				Build:      buildInfo(),
				Configure: func(cfg *config.Config) error {
					if port != 0 {
						cfg.Server.Port = port
					}
					return opts.apply(cfg)
				},
			})
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured HTTP port")
	return cmd
}
