package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/as/hlsfilter/internal/api"
	"github.com/as/hlsfilter/internal/cache"
	"github.com/as/hlsfilter/internal/config"
	"github.com/as/hlsfilter/internal/log"
	"github.com/as/hlsfilter/internal/telemetry"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath, func(addr string) (net.Listener, error) {
				return net.Listen("tcp", addr)
			})
		},
	}
}

// tracing maps the telemetry section onto the provider config
func tracing(c config.TelemetryConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Enabled,
		ServiceName:    "hlsfilter",
		ServiceVersion: version,
		Environment:    c.Environment,
		ExporterType:   c.Exporter,
		Endpoint:       c.Endpoint,
		SamplingRate:   c.SamplingRate,
	}
}

// serve runs the service until ctx is done. listen opens the configured
// listen address.
func serve(ctx context.Context, path string, listen func(addr string) (net.Listener, error)) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: "hlsfilter", Version: version})
	logger := log.WithComponent("daemon")
	logger.Info().Str(log.FieldEvent, "startup").Str("version", version).Str("listen", cfg.Listen).Msg("starting hlsfilter")

	holder := config.NewHolder(cfg, path)
	holder.OnReload(func(prev, next config.Config) {
		if prev.Log.Level == next.Log.Level {
			return
		}
		if err := log.SetLevel(next.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("log level not applied")
		}
	})

	tp, err := telemetry.NewProvider(ctx, tracing(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown error")
		}
	}()

	var c cache.Cache = cache.Nop{}
	if cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, log.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("response cache disabled")
		} else {
			c = r
		}
	}
	defer c.Close()

	ln, err := listen(cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := api.New(holder, c)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ln) })
	g.Go(func() error {
		if err := holder.Watch(ctx); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("config reload disabled")
		}
		return nil
	})
	err = g.Wait()
	logger.Info().Str(log.FieldEvent, "shutdown").Msg("hlsfilter stopped")
	return err
}
