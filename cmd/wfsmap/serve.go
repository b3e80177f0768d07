package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wfs-draw-query/internal/capabilities"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/health"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/server"
)

func serveCmd(gf *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/capabilities with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := gf.config()
			if addr != "" {
				cfg.Addr = addr
			}
			rt, err := newRuntime(cmd.Context(), cfg, gf, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			client := capabilities.NewClient(cfg.GeoServerURL, rt.capsFetcher, rt.logger)
			routes := server.Routes{
				Version:      Version,
				CORSOrigins:  cfg.CORSOrigins,
				Capabilities: capabilities.Handler(rt.logger, client, cfg.FeatureType),
				Ready:        map[string]health.Checker{},
			}
			if rt.redis != nil {
				routes.Ready["redis"] = rt.redis
			}
			rt.logger.Info("starting wfsmap server",
				"addr", cfg.Addr, "version", Version, "geoserver", cfg.GeoServerURL)
			return server.Run(cmd.Context(), cfg.Addr, rt.logger, routes)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (ADDR)")
	return cmd
}
