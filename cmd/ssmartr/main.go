package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ssmartr/internal/amqp"
	"ssmartr/internal/backend"
	"ssmartr/internal/budget"
	"ssmartr/internal/categorize"
	"ssmartr/internal/config"
	"ssmartr/internal/hittest"
	apphttp "ssmartr/internal/http"
	"ssmartr/internal/log"
	"ssmartr/internal/middleware/ratelimit"
	"ssmartr/internal/notify"
	"ssmartr/internal/seed"
	"ssmartr/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logger := log.New(logCfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.LogError(context.Background(), "Failed to close backend", err, log.OpShutdown, nil)
		}
	}()

	notifier := notify.New(logger)
	defer notifier.Close()

	if cfg.SeedOnStart {
		if err := seedStore(ctx, cfg, be, notifier, logger); err != nil {
			return err
		}
	}

	// Every writer staging on the shared changeset takes the same lock.
	var writeLock sync.Mutex
	engine := categorize.New(be.Store, notifier, logger, categorize.Options{
		PropagationDelay: cfg.PropagationDelay,
		Lock:             &writeLock,
	})
	categories := services.NewCategoryService(be.Store, notifier, logger, &writeLock)
	aggregator := budget.NewAggregator(be.Store, notifier, logger, budget.Options{
		Income: cfg.Income(),
		TTL:    cfg.OverviewCacheTTL,
	})

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerMinute = cfg.RateLimitPerMinute

	srv := apphttp.NewServer(apphttp.Config{
		Addr:      ":" + cfg.Port,
		Card:      hittest.Size{Width: cfg.CardWidth, Height: cfg.CardHeight},
		RateLimit: rl,
	}, apphttp.Deps{
		Engine:     engine,
		Categories: categories,
		Overview:   aggregator,
		Reader:     be.Store,
		Updates:    notifier,
		Ready:      be.Ready,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting ssmartr server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"income", cfg.Income().StringFixed(2))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError(shutdownCtx, "Server shutdown error", err, log.OpShutdown, nil)
		}
		return nil
	})

	g.Go(func() error {
		return aggregator.Run(gctx)
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The broker only feeds the export worker; the API runs without it.
			logger.LogError(ctx, "Failed to initialize AMQP client, changes will not be forwarded", err, log.OpStartup, nil)
		} else {
			defer client.Close()
			bridge := amqp.NewBridge(client, notifier, logger)
			g.Go(func() error {
				return bridge.Run(gctx)
			})
			logger.Info("Forwarding changes to broker", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	return g.Wait()
}

func seedStore(ctx context.Context, cfg *config.Config, be *backend.BackendResult, notifier *notify.Notifier, logger *log.Logger) error {
	now := time.Now()
	ds := seed.DefaultDataset(now)
	if cfg.SeedFile != "" {
		loaded, err := seed.LoadDataset(cfg.SeedFile, now)
		if err != nil {
			return err
		}
		ds = loaded
	}

	seeded, err := seed.SeedIfEmpty(ctx, be.Store, ds, logger)
	if err != nil {
		return err
	}
	if seeded {
		notifier.Publish(notify.ReasonSeeded)
	}
	return nil
}
