// Command rugsdatad is the single daemon binary: it dials the upstream
// game feed, validates and normalizes every event, persists the derived
// tables, and re-broadcasts a normalized stream over its own WebSocket
// and REST surface. Startup loads config, opens the database pool and
// Redis client, then joins the socket consumer, event router, and HTTP
// server as sibling tasks under an errgroup. A shutdown signal or an HTTP
// listener error triggers a coordinated shutdown of the rest; the other
// tasks return nil when they exit, so their exit alone does not.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Dutchthenomad/rugsdata/internal/api"
	"github.com/Dutchthenomad/rugsdata/internal/broadcast"
	"github.com/Dutchthenomad/rugsdata/internal/cache"
	"github.com/Dutchthenomad/rugsdata/internal/config"
	"github.com/Dutchthenomad/rugsdata/internal/events"
	"github.com/Dutchthenomad/rugsdata/internal/gamestate"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/schema"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
	"github.com/Dutchthenomad/rugsdata/internal/verifier"
	"github.com/Dutchthenomad/rugsdata/internal/version"
	"github.com/Dutchthenomad/rugsdata/internal/wsclient"
)

func main() {
	configPath := flag.String("config", "configs/rugsdatad.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	logger.Info("starting rugsdatad", "version", version.Version, "commit", version.Commit, "config", *configPath)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnvOverrides()

	logger.Info("configuration loaded", "instance_id", cfg.Instance.ID, "upstream_url", cfg.Upstream.URL, "listen_address", cfg.Listen.Address)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	dsn := storage.BuildDSN(cfg.Database)
	logger.Info("running migrations")
	if err := storage.Migrate(dsn); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	pool, err := storage.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	store := storage.New(pool)

	registry, err := schema.Load(cfg.Schemas.Dir)
	if err != nil {
		logger.Error("failed to load schemas", "error", err)
		os.Exit(1)
	}
	logger.Info("schemas loaded", "count", len(registry.List()))

	var liveCache *cache.LiveState
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
		if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
			logger.Warn("redis unreachable, live_state cache disabled", "error", pingErr)
			rdb = nil
		} else {
			logger.Info("redis cache connected", "addr", cfg.Cache.Addr)
		}
		liveCache = cache.New(rdb, 5*time.Second, logger)
	} else {
		liveCache = cache.New(nil, 0, logger)
	}

	m := metrics.New()
	tracker := gamestate.New(logger)
	writers := storage.NewWorkerPool(store, cfg.Writers.QueueCapacity, m, logger)
	hub := broadcast.New(cfg.Broadcaster.SubscriberBufferSize, cfg.Broadcaster.HeartbeatInterval, m, logger)
	router := events.New(registry, tracker, writers, hub, m, logger, liveCache)
	consumer := wsclient.NewConsumer(wsclient.Config{
		URL:                cfg.Upstream.URL,
		FrontendVersion:    cfg.Upstream.FrontendVersion,
		ReconnectBaseDelay: cfg.Upstream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Upstream.ReconnectMaxDelay,
		MaxReconnects:      cfg.Upstream.MaxReconnects,
		PingTimeout:        cfg.Upstream.PingTimeout,
		WriteTimeout:       cfg.Upstream.WriteTimeout,
		RawQueueCapacity:   cfg.Upstream.RawQueueCapacity,
	}, writers, m, logger)
	verifierSvc := verifier.New(store, writers, cfg.Writers.VerifierWorkers)
	sweeper := storage.NewSweeper(store, cfg.Retention, logger)

	httpServer := api.NewServer(cfg.Listen.Address, api.Deps{
		Store:       store,
		Tracker:     tracker,
		Hub:         hub,
		Metrics:     m,
		Registry:    registry,
		Verifier:    verifierSvc,
		Cache:       liveCache,
		CORSOrigins: cfg.Listen.CORSOrigins,
		Logger:      logger,
		StartedAt:   time.Now(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { runRecovered(logger, "upstream-consumer", func() { consumer.Run(gctx) }); return nil })
	g.Go(func() error { runRecovered(logger, "event-router", func() { router.Run(gctx, consumer.Frames()) }); return nil })
	g.Go(func() error {
		runRecovered(logger, "persistence-writers", func() { writers.Run(gctx, cfg.Writers.Workers) })
		return nil
	})
	g.Go(func() error { runRecovered(logger, "sweeper", func() { sweeper.Run(gctx) }); return nil })
	g.Go(func() error {
		stop := make(chan struct{})
		go func() {
			<-gctx.Done()
			close(stop)
		}()
		runRecovered(logger, "heartbeat", func() { hub.RunHeartbeat(stop) })
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", "address", cfg.Listen.Address)
		if err := httpServer.ListenAndServe(); err != nil {
			select {
			case <-gctx.Done():
				return nil
			default:
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		hub.Shutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("rugsdatad stopped")
}

// runRecovered runs fn, logging and swallowing any panic rather than
// crashing the whole process over one task's bug.
func runRecovered(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "task", name, "panic", r)
		}
	}()
	fn()
}
