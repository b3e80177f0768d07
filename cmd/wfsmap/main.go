// Command wfsmap browses a GeoServer WFS feature type, sends polygon queries to it and serves its metadata.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wfs-draw-query/internal/cache"
	"github.com/mohammed-shakir/wfs-draw-query/internal/cache/redisstore"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/config"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/httpclient"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
	"github.com/mohammed-shakir/wfs-draw-query/internal/logger"
)

var Version = "dev"

// flags shared by every subcommand; empty values keep the environment setting
type globalFlags struct {
	geoserver   string
	featureType string
	logLevel    string
	noCache     bool
}

func main() {
	var gf globalFlags
	root := &cobra.Command{
		Use:           "wfsmap",
		Short:         "Query a WFS feature type by view extent or drawn polygon",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&gf.geoserver, "geoserver", "", "GeoServer base URL (GEOSERVER_URL)")
	pf.StringVarP(&gf.featureType, "type", "t", "", "feature type name (FEATURE_TYPE)")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (LOG_LEVEL)")
	pf.BoolVar(&gf.noCache, "no-cache", false, "bypass the response cache")

	root.AddCommand(
		viewCmd(&gf),
		queryCmd(&gf),
		capabilitiesCmd(&gf),
		serveCmd(&gf),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "wfsmap:", err)
		stop()
		os.Exit(1)
	}
}

func (gf *globalFlags) config() config.Config {
	cfg := config.FromEnv()
	if gf.geoserver != "" {
		cfg.GeoServerURL = gf.geoserver
	}
	if gf.featureType != "" {
		cfg.FeatureType = gf.featureType
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	return cfg
}

// runtime is the wiring every subcommand shares.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	fetcher executor.Interface
	redis   *redisstore.Client
	closers []func() error

	// capabilities documents are XML and bypass the GetFeature cache
	capsFetcher executor.Interface
}

// newRuntime builds logging and the outbound fetch chain. Logs go to out
// unless LOG_FILE is set.
func newRuntime(ctx context.Context, cfg config.Config, gf *globalFlags, out io.Writer) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		rt.closers = append(rt.closers, f.Close)
	}
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "wfsmap",
	}, out)
	rt.logger = logger.NewSlog(&zl)
	observability.ExposeBuildInfo(Version)

	hc := httpclient.NewOutbound(cfg.HTTPTimeout, "wfsmap/"+Version)
	rt.capsFetcher = executor.New(rt.logger, hc, executor.WithAccept("application/xml"), executor.WithUpstream("capabilities"))
	exec := executor.New(rt.logger, hc, executor.WithUpstream("geoserver"))
	if gf.noCache {
		rt.fetcher = exec
		return rt, nil
	}

	opts := []cache.Option{cache.WithLRU(cfg.Cache.LRUSize, cfg.Cache.TTL)}
	if cfg.Cache.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			// the LRU still serves; a missing shared tier is not fatal
			rt.logger.Warn("redis unavailable, using in-process cache only", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			rt.redis = rc
			rt.closers = append(rt.closers, rc.Close)
			opts = append(opts, cache.WithShared(rc, cfg.Cache.OpTimeout))
		}
	}
	rt.fetcher = cache.New(exec, rt.logger, cfg.Cache.TTL, opts...)
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}
