package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"scale-dashboard/internal/api"
	"scale-dashboard/internal/cache"
	"scale-dashboard/internal/config"
	"scale-dashboard/internal/jobs"
	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
	"scale-dashboard/internal/timefmt"
	"scale-dashboard/internal/upstream"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP service",
		Long: `Serve job details and node health over HTTP.

Job payloads are fetched from the Scale API through a read-through cache.
Nodes are polled on an interval and the health summary is pushed to
subscribers of /api/nodes/health/stream.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

func newLogger(cfg config.LogConfig, out io.Writer) *logs.Logger {
	level, err := logs.ParseLevel(cfg.Level)
	if err != nil {
		level = logs.INFO
	}
	logger := logs.NewLogger(cfg.Buffer, level)
	if cfg.JSON {
		logger = logger.WithSink(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level.SlogLevel(),
		})))
	}
	return logger
}

// upstreamConfig maps loaded settings onto the client configuration.
func upstreamConfig(cfg config.UpstreamConfig) upstream.Config {
	ucfg := upstream.DefaultConfig()
	ucfg.BaseURL = cfg.BaseURL
	ucfg.JobPath = cfg.JobPath
	ucfg.NodesPath = cfg.NodesPath
	ucfg.Token = cfg.Token
	ucfg.Retry.MaxRetries = cfg.MaxRetries
	ucfg.Retry.BaseBackoff = cfg.BaseBackoff
	ucfg.Retry.MaxBackoff = cfg.MaxBackoff
	ucfg.Timeout.Request = cfg.Timeout
	ucfg.Health.FailureThreshold = cfg.FailureThreshold
	ucfg.Health.SuccessThreshold = cfg.SuccessThreshold
	ucfg.Poll.Interval = cfg.PollInterval
	return ucfg
}

// newStore opens the configured cache backend. The returned cleaner is nil
// for backends that expire entries on their own.
func newStore(
	ctx context.Context,
	cfg config.CacheConfig,
	clk clock.WithTicker,
	reg *metrics.Registry,
	logger *logs.Logger,
) (cache.Store, *cache.Cleaner, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("redis cache connected", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return cache.NewRedisStore(client, cfg.Redis.Prefix, clk), nil, client.Close, nil
	default:
		store := cache.NewMemoryStore(clk, reg)
		cleaner := cache.NewCleaner(store, clk, cfg.CleanupInterval, reg, logger)
		return store, cleaner, func() error { return nil }, nil
	}
}

func serve(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := newLogger(cfg.Log, out)
	reg := metrics.NewRegistry()
	clk := clock.RealClock{}

	ucfg := upstreamConfig(cfg.Upstream)
	tracker := upstream.NewTracker(ucfg.Health, reg)
	client := upstream.NewClient(ucfg, tracker, reg, logger)

	store, cleaner, closeStore, err := newStore(ctx, cfg.Cache, clk, reg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	controller := nodes.NewController(reg, nodes.Options{
		NodeType:        cfg.Display.NodeType,
		ShowDescription: cfg.Display.ShowDescription,
	})
	poller := upstream.NewPoller(client, controller, ucfg.Poll, reg, logger)

	handler := api.NewHandler(api.Deps{
		Builder:  jobs.NewDetailBuilder(timefmt.NewFormatter(cfg.Display.DateFormat)),
		Jobs:     client,
		Cache:    cache.NewReadThrough(store, clk, cfg.Cache.TTL, reg, logger),
		Nodes:    controller,
		Tracker:  tracker,
		Metrics:  reg,
		Logger:   logger,
		Clock:    clk,
		LogLimit: cfg.Log.Buffer,
	})

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(handler, logger),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		logger.Info("server started", "addr", cfg.Server.Addr, "upstream", ucfg.BaseURL, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		poller.Start(egctx)
		return nil
	})

	if cleaner != nil {
		eg.Go(func() error {
			cleaner.Start(egctx)
			return nil
		})
	}

	return eg.Wait()
}
