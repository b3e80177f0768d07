package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/wfs-draw-query/internal/capabilities"
)

func capabilitiesCmd(gf *globalFlags) *cobra.Command {
	var (
		all     bool
		useYAML bool
	)
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print the WFS metadata of the feature type (or --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := gf.config()
			rt, err := newRuntime(cmd.Context(), cfg, gf, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			client := capabilities.NewClient(cfg.GeoServerURL, rt.capsFetcher, rt.logger)
			var v any
			if all {
				fts, err := client.List(cmd.Context())
				if err != nil {
					return err
				}
				v = fts
			} else {
				ft, err := client.Lookup(cmd.Context(), cfg.FeatureType)
				switch {
				case errors.Is(err, capabilities.ErrNotFound):
					v = capabilities.NotFound{Status: false}
				case err != nil:
					return err
				default:
					v = ft
				}
			}
			return encode(cmd, v, useYAML)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every advertised feature type")
	cmd.Flags().BoolVarP(&useYAML, "yaml", "y", false, "output as YAML instead of JSON")
	return cmd
}

func encode(cmd *cobra.Command, v any, useYAML bool) error {
	var (
		out []byte
		err error
	)
	if useYAML {
		out, err = yaml.Marshal(v)
	} else {
		out, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
