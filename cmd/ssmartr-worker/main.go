package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ssmartr/internal/amqp"
	"ssmartr/internal/backend"
	"ssmartr/internal/budget"
	"ssmartr/internal/config"
	"ssmartr/internal/log"
	"ssmartr/internal/notify"
	"ssmartr/internal/services"
	"ssmartr/internal/sheets"
	gsheet "ssmartr/internal/sheets/google"
	mem "ssmartr/internal/sheets/memory"
	"ssmartr/internal/sheets/xlsx"
	"ssmartr/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logCfg.Component = log.ComponentWorker
	logger := log.New(logCfg)
	log.SetDefault(logger)

	logger.Info("Starting ssmartr-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Worker is reading a private in-memory store, exports will not follow the API")
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

	writer, err := newOverviewWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// The worker's own notifier; remote changes are republished on it so the
	// cached overview moves on.
	notifier := notify.New(logger)
	defer notifier.Close()

	aggregator := budget.NewAggregator(be.Store, notifier, logger, budget.Options{
		Income: cfg.Income(),
		TTL:    cfg.OverviewCacheTTL,
	})
	exporter := worker.NewExportWorker(aggregator, writer, notifier, logger)

	// On startup, export once to recover from changes missed while down
	logger.Info("Performing startup export...")
	if err := exporter.StartupExport(ctx); err != nil {
		// Don't exit - the periodic export retries
		logger.LogError(ctx, "Failed startup export", err, log.OpStartup, nil)
	}

	processor := services.NewExportProcessor(exporter, services.ExportProcessorConfig{
		Interval: cfg.ExportInterval,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeChanges(gctx, exporter.HandleChange)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Shutdown timeout reached", log.FieldError, err)
		}
		return nil
	})

	return g.Wait()
}

// newOverviewWriter prefers Google Sheets, then a local workbook, then an
// in-memory writer that only logs.
func newOverviewWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.OverviewWriter, error) {
	switch {
	case cfg.GoogleSpreadsheetID != "":
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return client, nil
	case cfg.ExportXLSXPath != "":
		fw, err := xlsx.NewFileWriter(cfg.ExportXLSXPath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Exporting overview to workbook", "path", cfg.ExportXLSXPath)
		return fw, nil
	default:
		logger.Info("No export target configured - overview kept in memory only")
		return mem.New(), nil
	}
}
