package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
	"github.com/mohammed-shakir/wfs-draw-query/internal/mapview"
)

type queryResult struct {
	Layer    string           `yaml:"layer"`
	URL      string           `yaml:"url"`
	Count    int              `yaml:"count"`
	Features []featureSummary `yaml:"features"`
}

type featureSummary struct {
	ID         any            `yaml:"id,omitempty"`
	Geometry   string         `yaml:"geometry"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

func queryCmd(gf *globalFlags) *cobra.Command {
	var (
		ringArg string
		srs     string
		useYAML bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Draw a polygon headlessly and print the features inside it",
		Example: `  wfsmap query --ring "-70.7 -33.5, -70.6 -33.5, -70.6 -33.4"
  wfsmap query --srs EPSG:3857 --ring "-7870000 -3960000, ..." --yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := gf.config()
			rt, err := newRuntime(cmd.Context(), cfg, gf, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			proj.Init()
			ring, err := parseRing(ringArg, srs, cfg.WorkingSRS)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			src, err := runQuery(ctx, rt, ring)
			if err != nil {
				return err
			}
			return printResult(cmd, src, useYAML)
		},
	}
	cmd.Flags().StringVar(&ringArg, "ring", "", `polygon vertices as "x y, x y, ..." (at least 3)`)
	cmd.Flags().StringVar(&srs, "srs", proj.WGS84, "projection of the --ring coordinates")
	cmd.Flags().BoolVarP(&useYAML, "yaml", "y", false, "print a YAML summary instead of GeoJSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "give up after this long (0 waits forever)")
	_ = cmd.MarkFlagRequired("ring")
	return cmd
}

// settled is a filter source once its single load has completed.
type settled struct {
	layer string
	url   string
	fc    *geojson.FeatureCollection
	err   error
}

// runQuery opens a session on an event loop, replays the ring as clicks and
// waits for the filter layer that replaces the bbox layer to load.
func runQuery(ctx context.Context, rt *runtime, ring model.Ring) (settled, error) {
	loop := mapview.NewLoop()
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go func() { _ = loop.Run(loopCtx) }()

	done := make(chan settled, 1)
	var (
		s       *mapview.Session
		openErr error
		drawErr error
	)
	err := loop.Do(ctx, func() {
		s, openErr = mapview.Open(ctx, rt.cfg, mapview.Deps{Fetcher: rt.fetcher, Poster: loop, Logger: rt.logger})
		if openErr != nil {
			return
		}
		s.Manager().OnSwap(func(l *mapview.Layer) {
			l.Source.OnLoad(func(src *mapview.FeatureSource) {
				st := src.Status()
				res := settled{layer: l.ID, url: src.URL(), err: st.LastErr}
				if st.LastErr == nil {
					res.fc = src.FeatureCollection()
				}
				select {
				case done <- res:
				default:
				}
			})
		})
		for _, p := range ring {
			_ = s.Dispatch(mapview.PointerEvent{Kind: mapview.PointerClick, Point: p})
		}
		_ = s.Dispatch(mapview.PointerEvent{Kind: mapview.KeyFinish})
		if d := s.Draw(); d != nil && d.State() == mapview.DrawActive {
			drawErr = fmt.Errorf("%w: got %d distinct", mapview.ErrTooFewVertices, len(d.Vertices()))
		}
	})
	if err != nil {
		return settled{}, err
	}
	if openErr != nil {
		return settled{}, openErr
	}
	defer func() {
		// the loop may already be gone when ctx ended
		_ = loop.Do(context.Background(), s.Dispose)
	}()
	if drawErr != nil {
		return settled{}, drawErr
	}

	select {
	case res := <-done:
		if res.err != nil {
			return res, fmt.Errorf("filter query: %w", res.err)
		}
		return res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return settled{}, errors.New("filter query timed out")
		}
		return settled{}, ctx.Err()
	}
}

func printResult(cmd *cobra.Command, res settled, useYAML bool) error {
	out := cmd.OutOrStdout()
	if !useYAML {
		b, err := json.MarshalIndent(res.fc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}

	sum := queryResult{Layer: res.layer, URL: res.url, Count: len(res.fc.Features)}
	for _, f := range res.fc.Features {
		fs := featureSummary{ID: f.ID, Properties: f.Properties}
		if f.Geometry != nil {
			fs.Geometry = f.Geometry.GeoJSONType()
		}
		sum.Features = append(sum.Features, fs)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return err
	}
	return enc.Close()
}
